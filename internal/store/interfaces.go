package store

import (
	"context"

	"github.com/slatehq/slate/internal/model"
)

// ClientStore provides access to client records.
type ClientStore interface {
	CreateClient(ctx context.Context, c model.Client) error
	GetClient(ctx context.Context, id string) (*model.Client, error)
	ListClients(ctx context.Context) ([]model.Client, error)
	UpdateClient(ctx context.Context, id, name string, weeklyCapacity int) error
	DeleteClient(ctx context.Context, id string) error
}

// ItemReader provides read access to items.
type ItemReader interface {
	GetItem(ctx context.Context, id string) (*model.ItemWithFeedback, error)
	ListItems(ctx context.Context, f model.ItemFilter) ([]model.Item, error)
	CountByStatus(ctx context.Context, clientID string) (map[string]int, error)
}

// ItemWriter provides write access to items.
type ItemWriter interface {
	CreateItem(ctx context.Context, item model.Item) error
	UpdateItem(ctx context.Context, item model.Item) error
	UpdateItemStatus(ctx context.Context, id, newStatus string, feedback *model.Feedback) error
	ReorderItems(ctx context.Context, clientID string, ids []string) error
	DeleteItem(ctx context.Context, id string) error
}

// BriefClaimer provides atomic claim operations for the enrichment worker.
type BriefClaimer interface {
	ClaimNextBrief(ctx context.Context) (*model.Item, error)
	SetBrief(ctx context.Context, id, brief string) error
	MarkBriefFailed(ctx context.Context, id, reason string) error
	ResetStaleBriefs(ctx context.Context) (int64, error)
}

// FeedbackStore provides access to rejection feedback.
type FeedbackStore interface {
	ListFeedback(ctx context.Context, itemID string) ([]model.Feedback, error)
}

// Repository combines everything the API layer needs.
type Repository interface {
	ClientStore
	ItemReader
	ItemWriter
	FeedbackStore
}
