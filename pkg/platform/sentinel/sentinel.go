package sentinel

import "errors"

// Sentinel errors for storage facts. Stores return these (optionally wrapped)
// so services can translate them into domain errors:
//   - ErrNotFound: row does not exist, or is soft-deleted where the store hides those
//   - ErrAlreadyUsed: a unique key (email, public ID, active registrant slot) is taken
//   - ErrConflict: optimistic or lock-based write lost against a concurrent writer
//   - ErrUnavailable: backing store unreachable or timed out
//
// Validation failures do not belong here; use pkg/domain-errors directly.
var (
	ErrNotFound    = errors.New("not found")
	ErrAlreadyUsed = errors.New("already used")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
)
