package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/slatehq/slate/internal/enrich"
	"github.com/slatehq/slate/internal/model"
)

// BriefStore provides atomic claim and brief update operations.
type BriefStore interface {
	ClaimNextBrief(ctx context.Context) (*model.Item, error)
	SetBrief(ctx context.Context, id, brief string) error
	MarkBriefFailed(ctx context.Context, id, reason string) error
}

// Worker polls for items with a pending brief and runs the extractor.
type Worker struct {
	store     BriefStore
	extractor enrich.Extractor
	interval  time.Duration
}

// New creates a new Worker.
func New(store BriefStore, extractor enrich.Extractor, interval time.Duration) *Worker {
	return &Worker{store: store, extractor: extractor, interval: interval}
}

// Start begins the polling loop. It blocks until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	slog.Info("brief worker started", "interval", w.interval.String())
	for {
		select {
		case <-ctx.Done():
			slog.Info("brief worker stopped")
			return
		default:
		}

		item, err := w.store.ClaimNextBrief(ctx)
		if err != nil {
			slog.Error("worker claim error", "error", err)
			w.sleep(ctx)
			continue
		}
		if item == nil {
			w.sleep(ctx)
			continue
		}

		slog.Info("fetching brief", "item_id", item.ID, "source_url", item.SourceURL)
		brief, err := w.extractor.Extract(ctx, item.SourceURL)
		if err != nil {
			slog.Error("brief extraction failed", "item_id", item.ID, "error", err)
			if sErr := w.store.MarkBriefFailed(ctx, item.ID, err.Error()); sErr != nil {
				slog.Error("failed to mark brief FAILED", "item_id", item.ID, "error", sErr)
			}
			continue
		}

		if err := w.store.SetBrief(ctx, item.ID, brief.Text()); err != nil {
			slog.Error("failed to store brief", "item_id", item.ID, "error", err)
		} else {
			slog.Info("brief ready", "item_id", item.ID)
		}
	}
}

func (w *Worker) sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(w.interval):
	}
}
