// Package snapshotstore persists the last grade snapshot between check
// cycles. Every backend overwrites the previous snapshot atomically, a
// reader only ever sees the old or the new snapshot.
package snapshotstore

import (
	"context"
	"errors"
	"fmt"

	"gradewatch/internal/grades"
)

// Store loads and saves the baseline snapshot.
type Store interface {
	// Load returns found=false when no snapshot was ever saved. Unreadable
	// or corrupt data is a *StorageError, never "not found".
	Load(ctx context.Context) (snapshot grades.Snapshot, found bool, err error)
	// Save replaces the baseline with snapshot.
	Save(ctx context.Context, snapshot grades.Snapshot) error
}

// StorageError is returned by every Store for unreadable, unwritable or
// corrupt persisted state.
type StorageError struct {
	// Op is "load" or "save".
	Op string
	// Backend describes where the snapshot lives, ex. "file data/grades_history.json".
	Backend string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("snapshot store: %s %s: %s", e.Op, e.Backend, e.Err.Error())
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ErrCorrupt is wrapped by a StorageError when persisted data exists but
// cannot be turned back into a valid snapshot.
var ErrCorrupt = errors.New("persisted snapshot is corrupt")

// IsStorageError tells if err is or wraps a *StorageError.
func IsStorageError(err error) bool {
	var storageErr *StorageError
	return errors.As(err, &storageErr)
}
