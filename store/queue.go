package store

import (
	"context"
	"time"

	"github.com/apxfed/apx/internal/ferr"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// QueueEntry is an outgoing delivery queue row, per spec.md §6's
// "Outgoing queue entries: { id, sender_id, recipient_inbox,
// activity_json, attempt_count, next_attempt_at }".
type QueueEntry struct {
	ID             string `gorm:"primarykey;size:36"`
	SenderID       string `gorm:"size:512;not null;index"`
	RecipientInbox string `gorm:"size:512;not null"`
	ActivityJSON   []byte `gorm:"type:blob;not null"`
	AttemptCount   int
	NextAttemptAt  time.Time
	CreatedAt      time.Time
}

// DeliveryQueue is the gorm-backed outgoing delivery queue, generalizing
// davecheney-pub/workers/processor.go's process[T] batch-retry helper
// (FindInBatches over a scope of due rows, UpdateColumns on failure,
// Delete on success) from its status/toot-specific job tables to the
// generic activity-delivery row spec.md §6 names.
type DeliveryQueue struct {
	db *gorm.DB
}

// NewDeliveryQueue builds a DeliveryQueue over db.
func NewDeliveryQueue(db *gorm.DB) *DeliveryQueue {
	return &DeliveryQueue{db: db}
}

// Enqueue adds a new delivery attempt for senderID to recipientInbox,
// due immediately.
func (q *DeliveryQueue) Enqueue(ctx context.Context, senderID, recipientInbox string, activityJSON []byte) (string, error) {
	const op = "store.DeliveryQueue.Enqueue"

	entry := QueueEntry{
		ID:             uuid.NewString(),
		SenderID:       senderID,
		RecipientInbox: recipientInbox,
		ActivityJSON:   activityJSON,
		NextAttemptAt:  time.Now(),
		CreatedAt:      time.Now(),
	}
	if err := q.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return "", ferr.New(ferr.Storage, op, err)
	}
	return entry.ID, nil
}

// Due returns up to limit entries whose next_attempt_at has passed,
// oldest first — the batch a delivery worker pulls per wakeup.
func (q *DeliveryQueue) Due(ctx context.Context, limit int) ([]QueueEntry, error) {
	const op = "store.DeliveryQueue.Due"

	var entries []QueueEntry
	err := q.db.WithContext(ctx).
		Where("next_attempt_at <= ?", time.Now()).
		Order("next_attempt_at asc").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, ferr.New(ferr.Storage, op, err)
	}
	return entries, nil
}

// Reschedule bumps an entry's attempt_count and pushes next_attempt_at
// out by interval, for a transient failure the deliverer's backoff
// ladder is still retrying.
func (q *DeliveryQueue) Reschedule(ctx context.Context, id string, interval time.Duration) error {
	const op = "store.DeliveryQueue.Reschedule"

	err := q.db.WithContext(ctx).Model(&QueueEntry{}).Where("id = ?", id).Updates(map[string]any{
		"attempt_count":   gorm.Expr("attempt_count + 1"),
		"next_attempt_at": time.Now().Add(interval),
	}).Error
	if err != nil {
		return ferr.New(ferr.Storage, op, err)
	}
	return nil
}

// Complete removes an entry after a successful delivery or a
// permanently-failed one — there is nothing further to retry in
// either case.
func (q *DeliveryQueue) Complete(ctx context.Context, id string) error {
	const op = "store.DeliveryQueue.Complete"

	if err := q.db.WithContext(ctx).Delete(&QueueEntry{ID: id}).Error; err != nil {
		return ferr.New(ferr.Storage, op, err)
	}
	return nil
}
