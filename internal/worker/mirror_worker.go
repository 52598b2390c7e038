// Package worker mirrors imported takings to an external spreadsheet.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"takings/internal/amqp"
	"takings/internal/core"
	"takings/internal/sheets"
)

// TakingsReader loads stored takings back by key.
type TakingsReader interface {
	GetTaking(ctx context.Context, storeName string, date core.Date) (core.Taking, error)
}

// Consumer delivers import events until ctx ends.
type Consumer interface {
	ConsumeTakingsImported(ctx context.Context, handler func(context.Context, *amqp.TakingsImportedMessage) error) error
}

// MirrorWorker appends newly imported takings to the mirror sheet.
type MirrorWorker struct {
	repo      TakingsReader
	sheets    sheets.TakingsWriter
	logger    *slog.Logger
	heartbeat time.Duration

	processed int64
}

func NewMirrorWorker(repo TakingsReader, sheets sheets.TakingsWriter, logger *slog.Logger, heartbeat time.Duration) *MirrorWorker {
	if logger == nil {
		logger = slog.Default()
	}
	if heartbeat <= 0 {
		heartbeat = time.Minute
	}
	return &MirrorWorker{
		repo:      repo,
		sheets:    sheets,
		logger:    logger,
		heartbeat: heartbeat,
	}
}

// HandleTakingsImported reads the announced takings from the database and
// appends them in one batch. Returning an error requeues the message.
func (w *MirrorWorker) HandleTakingsImported(ctx context.Context, msg *amqp.TakingsImportedMessage) error {
	w.logger.InfoContext(ctx, "Processing takings imported message",
		"upload_id", msg.UploadID,
		"store", msg.Store,
		"dates", len(msg.Dates))

	takings := make([]core.Taking, 0, len(msg.Dates))
	for _, ds := range msg.Dates {
		date, err := core.ParseDate(ds)
		if err != nil {
			// Unparseable dates will not parse on redelivery either.
			w.logger.WarnContext(ctx, "Skipping invalid date in message", "date", ds, "error", err)
			continue
		}
		t, err := w.repo.GetTaking(ctx, msg.Store, date)
		if errors.Is(err, core.ErrNotFound) {
			w.logger.WarnContext(ctx, "Announced taking not found", "store", msg.Store, "date", ds)
			continue
		}
		if err != nil {
			return fmt.Errorf("load taking %s %s: %w", msg.Store, ds, err)
		}
		takings = append(takings, t)
	}

	if len(takings) == 0 {
		return nil
	}
	if err := w.sheets.AppendTakings(ctx, takings); err != nil {
		return fmt.Errorf("mirror takings: %w", err)
	}
	atomic.AddInt64(&w.processed, 1)
	return nil
}

// Run consumes events and logs a heartbeat until ctx is cancelled or the
// consumer fails.
func (w *MirrorWorker) Run(ctx context.Context, consumer Consumer) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return consumer.ConsumeTakingsImported(ctx, w.HandleTakingsImported)
	})

	g.Go(func() error {
		ticker := time.NewTicker(w.heartbeat)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				w.logger.InfoContext(ctx, "Mirror worker alive", "messages_mirrored", w.Processed())
			}
		}
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Processed reports how many messages produced sheet rows.
func (w *MirrorWorker) Processed() int64 {
	return atomic.LoadInt64(&w.processed)
}
