package timeline

import (
	"fmt"
	"strings"
)

// ValidationError reports a field-level constraint violation. It is detected
// before any write is attempted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError reports that a referenced entity id does not exist.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// CollisionError reports a temporal overlap with enabled clips on a track.
// It carries the full set of colliding clips.
type CollisionError struct {
	TrackID string
	Clips   []*Clip
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("clip collides with %d clip(s) on track %s: %s",
		len(e.Clips), e.TrackID, strings.Join(e.ClipIDs(), ", "))
}

// ClipIDs returns the ids of the colliding clips.
func (e *CollisionError) ClipIDs() []string {
	ids := make([]string, len(e.Clips))
	for i, c := range e.Clips {
		ids[i] = c.ID
	}
	return ids
}

// ReferenceError reports that a referenced external entity (a media asset)
// does not exist.
type ReferenceError struct {
	Entity string
	ID     string
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("referenced %s %s does not exist", e.Entity, e.ID)
}

// TransactionError reports that the underlying store failed mid-transaction.
// Err is the primary cause; RollbackErr, if set, is the secondary failure of
// the rollback itself.
type TransactionError struct {
	Op          string
	Err         error
	RollbackErr error
}

func (e *TransactionError) Error() string {
	if e.RollbackErr != nil {
		return fmt.Sprintf("%s: %v (rollback also failed: %v)", e.Op, e.Err, e.RollbackErr)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransactionError) Unwrap() error {
	return e.Err
}
