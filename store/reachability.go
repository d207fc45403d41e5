package store

import (
	"context"
	"time"

	"github.com/apxfed/apx/deliverer"
	"github.com/apxfed/apx/internal/ferr"
	"gorm.io/gorm"
)

// ReachabilityRecord is the persisted per-origin delivery health
// tuple spec.md §3 names: last_attempt_at, last_success_at,
// consecutive_failures, plus the suppression window the backoff
// ladder (deliverer.SuppressionWindow) imposes after max-elapsed is
// reached.
type ReachabilityRecord struct {
	Origin              string `gorm:"primarykey;size:512"`
	LastAttemptAt       time.Time
	LastSuccessAt       time.Time
	ConsecutiveFailures int
	SuppressedUntil     *time.Time
}

// ReachabilityStore implements deliverer.Reachability over a gorm
// table, generalizing davecheney-pub/workers/processor.go's
// attempts/last_result columns (there mutated in place per delivery
// job row) into a dedicated per-origin health record shared across
// every delivery to that origin.
type ReachabilityStore struct {
	db *gorm.DB
}

// NewReachabilityStore builds a ReachabilityStore over db.
func NewReachabilityStore(db *gorm.DB) *ReachabilityStore {
	return &ReachabilityStore{db: db}
}

var _ deliverer.Reachability = (*ReachabilityStore)(nil)

// IsSuppressed reports whether origin is within its 24h post-unreachable
// suppression window.
func (s *ReachabilityStore) IsSuppressed(ctx context.Context, origin string) (bool, error) {
	const op = "store.ReachabilityStore.IsSuppressed"

	var rec ReachabilityRecord
	err := s.db.WithContext(ctx).Where("origin = ?", origin).First(&rec).Error
	if err == gorm.ErrRecordNotFound {
		return false, nil
	}
	if err != nil {
		return false, ferr.New(ferr.Storage, op, err)
	}
	if rec.SuppressedUntil == nil {
		return false, nil
	}
	return time.Now().Before(*rec.SuppressedUntil), nil
}

// MarkSuccess resets consecutive_failures and clears any suppression,
// per spec.md §3's lifecycle: "ReachabilityRecords are created on
// first failed delivery and reset on first success."
func (s *ReachabilityStore) MarkSuccess(ctx context.Context, origin string) error {
	const op = "store.ReachabilityStore.MarkSuccess"

	now := time.Now()
	rec := ReachabilityRecord{
		Origin:              origin,
		LastAttemptAt:       now,
		LastSuccessAt:       now,
		ConsecutiveFailures: 0,
		SuppressedUntil:     nil,
	}
	if err := s.db.WithContext(ctx).Save(&rec).Error; err != nil {
		return ferr.New(ferr.Storage, op, err)
	}
	return nil
}

// MarkFailure increments consecutive_failures and, when unreachable is
// true (the backoff ladder has exhausted its max-elapsed window),
// suppresses further deliveries to origin for deliverer.SuppressionWindow.
func (s *ReachabilityStore) MarkFailure(ctx context.Context, origin string, unreachable bool) error {
	const op = "store.ReachabilityStore.MarkFailure"

	var rec ReachabilityRecord
	err := s.db.WithContext(ctx).Where("origin = ?", origin).First(&rec).Error
	if err != nil && err != gorm.ErrRecordNotFound {
		return ferr.New(ferr.Storage, op, err)
	}

	rec.Origin = origin
	rec.LastAttemptAt = time.Now()
	rec.ConsecutiveFailures++
	if unreachable {
		until := time.Now().Add(deliverer.SuppressionWindow)
		rec.SuppressedUntil = &until
	}

	if err := s.db.WithContext(ctx).Save(&rec).Error; err != nil {
		return ferr.New(ferr.Storage, op, err)
	}
	return nil
}
