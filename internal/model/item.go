package model

import (
	"time"

	"github.com/slatehq/slate/internal/lifecycle"
	"github.com/slatehq/slate/internal/schedule"
)

// Item kind constants
const (
	KindFlow   = "flow"
	KindPinned = "pinned"
)

// Brief state constants for the enrichment worker.
const (
	BriefNone     = "NONE"     // no source URL, nothing to fetch
	BriefPending  = "PENDING"  // waiting for the worker
	BriefFetching = "FETCHING" // claimed by the worker
	BriefReady    = "READY"
	BriefFailed   = "FAILED"
)

// DayFormat is the calendar-day wire format used for pinned dates.
const DayFormat = "2006-01-02"

// Item represents a content item in a client's backlog.
type Item struct {
	ID       string `json:"id"`
	ClientID string `json:"client_id"`
	Title    string `json:"title"`
	// Brief is working notes for the writer; pre-filled by the enrichment
	// worker when a source URL is present.
	Brief string `json:"brief,omitempty"`
	Kind  string `json:"kind"`
	// PinnedDate is a calendar day (DayFormat); nil unless Kind is pinned.
	PinnedDate *string `json:"pinned_date,omitempty"`
	// PriorityIndex orders flow items within a client; lower = sooner.
	PriorityIndex int     `json:"priority_index"`
	Status        string  `json:"status"`
	SourceURL     string  `json:"source_url,omitempty"`
	BriefState    string  `json:"brief_state"`
	BriefError    *string `json:"brief_error,omitempty"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
}

// ItemWithFeedback is an Item together with its rejection feedback history.
type ItemWithFeedback struct {
	Item
	Feedback []Feedback `json:"feedback"`
}

// ItemFilter holds query parameters for listing items.
type ItemFilter struct {
	ClientID string
	Status   []string
	Kind     []string
}

// NewItem creates a new draft Item. Items carrying a source URL start with a
// pending brief so the enrichment worker picks them up.
func NewItem(id, clientID, title, kind, sourceURL string, priorityIndex int) Item {
	now := time.Now().UTC().Format(time.RFC3339)
	briefState := BriefNone
	if sourceURL != "" {
		briefState = BriefPending
	}
	return Item{
		ID:            id,
		ClientID:      clientID,
		Title:         title,
		Kind:          kind,
		PriorityIndex: priorityIndex,
		Status:        string(lifecycle.StatusDraft),
		SourceURL:     sourceURL,
		BriefState:    briefState,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// ScheduleInput converts the item into the engine's input shape. Unparseable
// dates degrade to the zero time rather than failing: the engine treats a
// zero pinned date as "undated" and a zero creation time as never stale.
func (i Item) ScheduleInput() schedule.Item {
	var pinned time.Time
	if i.PinnedDate != nil {
		pinned, _ = time.Parse(DayFormat, *i.PinnedDate)
	}
	created, _ := time.Parse(time.RFC3339, i.CreatedAt)
	return schedule.Item{
		ID:            i.ID,
		Kind:          schedule.Kind(i.Kind),
		PinnedDate:    pinned,
		PriorityIndex: i.PriorityIndex,
		CreatedAt:     created,
	}
}
