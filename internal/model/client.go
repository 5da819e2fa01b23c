package model

import "time"

// Client represents an agency client whose content is being produced.
type Client struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// WeeklyCapacity is the number of items the agency can produce for this
	// client per 7-day week. Always >= 1; the API rejects anything lower.
	WeeklyCapacity int    `json:"weekly_capacity"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

// NewClient creates a new Client.
func NewClient(id, name string, weeklyCapacity int) Client {
	now := time.Now().UTC().Format(time.RFC3339)
	return Client{
		ID:             id,
		Name:           name,
		WeeklyCapacity: weeklyCapacity,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}
