// Package store provides the gorm-backed collaborator persistence
// layer the federation core consumes through narrow interfaces: an
// actor cache with LRU eviction and TTL, a reachability store
// implementing deliverer.Reachability, and an outgoing delivery queue.
// It generalizes teacher's internal/models package — gorm.DB-backed
// tables addressed through small typed repositories
// (davecheney-pub/internal/models/actor.go's Actors.FindOrCreate
// pattern) — from Mastodon-account rows to the cache/reachability/
// queue shapes spec.md §6 and §9 name.
package store

import (
	"gorm.io/gorm"
)

// AutoMigrate creates or updates the tables this package owns. Callers
// wire their own *gorm.DB (sqlite for a single instance, mysql for a
// clustered one, per teacher's driver choices).
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&CachedActor{}, &ReachabilityRecord{}, &QueueEntry{})
}
