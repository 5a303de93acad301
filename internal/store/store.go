// Package store provides the usage-counter and history storage for the CCG
// server. Handlers and middleware depend on the Store interface so tests can
// swap implementations freely.
package store

import (
	"context"
	"errors"

	"github.com/amirhosseinyavari021/CCG-sub001/pkg/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("store: not found")

// Store is the persistence boundary of the server.
type Store interface {
	UsageStore
	HistoryStore

	// Ping checks that the store is usable.
	Ping(ctx context.Context) error

	// Close releases all resources held by the store.
	Close() error
}

// UsageStore keeps per-user per-day request counters. IncrementUsage is an
// optimistic upsert: it creates the day's record when missing and returns
// the post-increment count.
type UsageStore interface {
	IncrementUsage(ctx context.Context, userID, day string) (int, error)
	GetUsage(ctx context.Context, userID, day string) (*models.UsageRecord, error)
}

// HistoryStore keeps completed generations per user, newest first.
type HistoryStore interface {
	AddHistory(ctx context.Context, entry *models.HistoryEntry) error
	ListHistory(ctx context.Context, userID string, limit int) ([]models.HistoryEntry, error)
	ClearHistory(ctx context.Context, userID string) error
}
