package model

import "time"

// Feedback is one piece of rejection feedback attached to an item. A new
// record is appended every time an item is moved into rejected, preserving
// the review history.
type Feedback struct {
	ID        string `json:"id"`
	ItemID    string `json:"item_id"`
	Text      string `json:"text"`
	CreatedAt string `json:"created_at"`
}

// NewFeedback creates a new Feedback record.
func NewFeedback(id, itemID, text string) Feedback {
	return Feedback{
		ID:        id,
		ItemID:    itemID,
		Text:      text,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
}
