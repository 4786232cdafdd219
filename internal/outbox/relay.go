package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"investorportal/internal/logger"
	"investorportal/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxErrorLen = 512

// DefaultMaxAttempts is how many failed publishes an event gets before the
// relay parks it.
const DefaultMaxAttempts = 10

// Publisher delivers events to the message bus. Publish must return only
// after the events are durably accepted.
type Publisher interface {
	Publish(ctx context.Context, events []models.OutboxEvent) error
}

// Relay moves unpublished outbox rows to a Publisher. Delivery is
// at-least-once: an event is marked published only after Publish succeeds,
// so a crash in between re-sends it on the next pass.
//
// An event that has failed maxAttempts times is parked: it stays unpublished
// but is no longer claimed, so later events flow again. Resetting its
// attempts column re-queues it.
type Relay struct {
	db          *gorm.DB
	publisher   Publisher
	batchSize   int
	interval    time.Duration
	maxAttempts int
	now         func() time.Time
}

// NewRelay creates a relay that claims up to batchSize events per pass and
// polls every interval.
func NewRelay(db *gorm.DB, publisher Publisher, batchSize int, interval time.Duration) *Relay {
	if batchSize <= 0 {
		batchSize = 100
	}
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Relay{
		db:          db,
		publisher:   publisher,
		batchSize:   batchSize,
		interval:    interval,
		maxAttempts: DefaultMaxAttempts,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithMaxAttempts sets the failure count after which an event is parked.
// Values below one keep the default.
func (r *Relay) WithMaxAttempts(n int) *Relay {
	if n > 0 {
		r.maxAttempts = n
	}
	return r
}

// RunOnce publishes the oldest pending events and returns how many were
// delivered. The pass stops at the first publish failure so that events of
// one position are not delivered out of order while the failing event is
// still being retried. Parked events are skipped.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	published := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Where("published_at IS NULL AND attempts < ?", r.maxAttempts).
			Order("created_at ASC, id ASC").
			Limit(r.batchSize)
		if tx.Dialector.Name() == "postgres" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		}

		var events []models.OutboxEvent
		if err := q.Find(&events).Error; err != nil {
			return fmt.Errorf("claim outbox events: %w", err)
		}

		for i := range events {
			evt := &events[i]
			if err := r.publisher.Publish(ctx, events[i:i+1]); err != nil {
				attempts := evt.Attempts + 1
				if attempts >= r.maxAttempts {
					logger.Get().Errorw("outbox event parked after repeated failures",
						"event_id", evt.ID,
						"event_type", evt.EventType,
						"aggregate_id", evt.AggregateID,
						"attempts", attempts,
						"error", err,
					)
				} else {
					logger.Get().Warnw("outbox publish failed",
						"event_id", evt.ID,
						"event_type", evt.EventType,
						"attempts", attempts,
						"error", err,
					)
				}
				return markFailed(tx, evt, err)
			}
			if err := tx.Model(&models.OutboxEvent{}).
				Where("id = ?", evt.ID).
				Update("published_at", r.now()).Error; err != nil {
				return fmt.Errorf("mark outbox event %s published: %w", evt.ID, err)
			}
			published++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return published, nil
}

// Run polls until ctx is cancelled. Pass errors are logged and retried on
// the next tick.
func (r *Relay) Run(ctx context.Context) error {
	log := logger.Named("outbox")
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		n, err := r.RunOnce(ctx)
		switch {
		case err != nil && ctx.Err() == nil:
			log.Errorw("outbox relay pass failed", "error", err)
		case n > 0:
			log.Infow("outbox events published", "count", n)
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func markFailed(tx *gorm.DB, evt *models.OutboxEvent, cause error) error {
	msg := cause.Error()
	if len(msg) > maxErrorLen {
		msg = msg[:maxErrorLen]
	}
	err := tx.Model(&models.OutboxEvent{}).
		Where("id = ?", evt.ID).
		Updates(map[string]any{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": msg,
		}).Error
	if err != nil {
		return fmt.Errorf("record outbox failure for %s: %w", evt.ID, err)
	}
	return nil
}
