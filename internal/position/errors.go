package position

import (
	"errors"
	"fmt"
)

var (
	ErrLockInconsistency = errors.New("lock inconsistency")
	ErrPositionExists    = errors.New("open position already exists")
	ErrPositionNotFound  = errors.New("open position not found")
)

// LockInconsistencyError reports a symbol whose lock disagrees with its open record.
// It is never repaired automatically.
type LockInconsistencyError struct {
	Symbol    string
	Locked    bool
	HasRecord bool
	// Owner is the recorded lock holder, when the guard tracks one.
	Owner string
}

func (e *LockInconsistencyError) Error() string {
	if e.Locked {
		if e.Owner != "" {
			return fmt.Sprintf("lock inconsistency for %s: lock held by %s but no open position record", e.Symbol, e.Owner)
		}
		return fmt.Sprintf("lock inconsistency for %s: lock held but no open position record", e.Symbol)
	}
	return fmt.Sprintf("lock inconsistency for %s: open position record without lock", e.Symbol)
}

func (e *LockInconsistencyError) Is(target error) bool {
	return target == ErrLockInconsistency
}
