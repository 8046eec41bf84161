package runlog

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when no run log exists for an ID.
	ErrNotFound = errors.New("run log not found")

	// ErrDuplicate is returned when saving a run ID that already exists.
	// Run logs are write-once.
	ErrDuplicate = errors.New("run log already exists")
)

// Store persists run logs keyed by run ID.
type Store interface {
	// Save writes a run log. Saving an existing run ID fails with
	// ErrDuplicate.
	Save(ctx context.Context, log *RunLog) error
	// Load returns the run log for id, or ErrNotFound.
	Load(ctx context.Context, id string) (*RunLog, error)
	// List returns all stored run IDs, newest first.
	List(ctx context.Context) ([]string, error)
	// Close releases store resources.
	Close() error
}
