package storage

import (
	"context"
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures the journal store. An empty Path disables storage.
type Config struct {
	Path        string
	BusyTimeout time.Duration // 0 means default
}

// ActivityEntry records one card lifecycle event.
// Keep it compact and schema-stable.
type ActivityEntry struct {
	At       time.Time
	Kind     string // shown | dismissed | action
	CardID   string
	Variant  string
	Title    string
	Reason   string // dismissed only
	ActionID string // action only
	DataJSON string // action payload, JSON-encoded, may be empty
}

// Store is the minimal persistence API used by the journal service.
type Store interface {
	AppendActivity(ctx context.Context, e ActivityEntry) error
	RecentActivity(ctx context.Context, limit int) ([]ActivityEntry, error)
	Prune(ctx context.Context, olderThan time.Time) (int64, error)
	Close() error
}
