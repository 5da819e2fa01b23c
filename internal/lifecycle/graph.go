// Package lifecycle defines the content status state machine. The graph is a
// static lookup table plus pure validation functions; it never touches
// storage and has no side effects. Every status write must pass Validate
// before being persisted.
package lifecycle

import "fmt"

// Status is a content item's lifecycle state.
type Status string

const (
	StatusDraft           Status = "draft"
	StatusPendingApproval Status = "pending_approval"
	StatusRejected        Status = "rejected"
	StatusApproved        Status = "approved"
	StatusFinished        Status = "finished"
	StatusPublished       Status = "published"
)

// forwardSequence is the linear production progression. A transition is legal
// from any state in it to any strictly later state, so an item can be
// resolved in one step (e.g. draft straight to published).
var forwardSequence = []Status{
	StatusDraft,
	StatusPendingApproval,
	StatusApproved,
	StatusFinished,
	StatusPublished,
}

// extraEdges lists the legal transitions outside the forward sequence:
// rejections, send-backs, reopening finished work, and restarting published
// work.
var extraEdges = map[Status][]Status{
	StatusDraft:           {StatusRejected},
	StatusPendingApproval: {StatusRejected, StatusDraft},
	StatusApproved:        {StatusRejected, StatusDraft},
	StatusFinished:        {StatusApproved},
	StatusPublished:       {StatusDraft},
	StatusRejected:        {StatusDraft, StatusPendingApproval},
}

// reachable is the flattened adjacency table: reachable[from][to] is true
// when the transition is legal. No state has a self-edge; a request for the
// current status is a caller-level no-op, not a transition.
var reachable = buildReachable()

func buildReachable() map[Status]map[Status]bool {
	table := make(map[Status]map[Status]bool, len(forwardSequence)+1)
	add := func(from, to Status) {
		if table[from] == nil {
			table[from] = make(map[Status]bool)
		}
		table[from][to] = true
	}
	for i, from := range forwardSequence {
		for _, to := range forwardSequence[i+1:] {
			add(from, to)
		}
	}
	for from, tos := range extraEdges {
		for _, to := range tos {
			add(from, to)
		}
	}
	return table
}

// All returns every status, in forward order with rejected last.
func All() []Status {
	return []Status{
		StatusDraft,
		StatusPendingApproval,
		StatusApproved,
		StatusFinished,
		StatusPublished,
		StatusRejected,
	}
}

// Valid reports whether s names a known status.
func Valid(s Status) bool {
	switch s {
	case StatusDraft, StatusPendingApproval, StatusRejected,
		StatusApproved, StatusFinished, StatusPublished:
		return true
	}
	return false
}

// CanTransition reports whether the graph has an edge from one status to
// another.
func CanTransition(from, to Status) bool {
	return reachable[from][to]
}

// Validate checks a requested status change. It returns an
// *InvalidTransitionError when the graph has no such edge, and
// ErrMissingFeedback when moving into rejected without feedback text.
// Feedback length and content are the caller's concern; the graph only
// enforces presence.
func Validate(from, to Status, feedbackProvided bool) error {
	if !CanTransition(from, to) {
		return &InvalidTransitionError{From: from, To: to}
	}
	if to == StatusRejected && !feedbackProvided {
		return ErrMissingFeedback
	}
	return nil
}

// InvalidTransitionError reports a status change with no edge in the graph.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %s to %s", e.From, e.To)
}
