package coordinator

import "fmt"

// FailureKind classifies a refresh failure so the merge policy can
// decide between keeping the last-good snapshot and clearing it.
type FailureKind int

const (
	// FailureTransient covers transport-level errors (timeouts, HTTP
	// errors, connection resets). The previous snapshot stays valid.
	FailureTransient FailureKind = iota
	// FailureValidation covers semantically invalid payloads. The
	// previous snapshot is cleared rather than served stale.
	FailureValidation
)

// RefreshError is a classified failure of one refresh cycle.
type RefreshError struct {
	Kind FailureKind
	Err  error
}

func (e *RefreshError) Error() string {
	switch e.Kind {
	case FailureValidation:
		return fmt.Sprintf("refresh failed (validation): %v", e.Err)
	default:
		return fmt.Sprintf("refresh failed (transient): %v", e.Err)
	}
}

func (e *RefreshError) Unwrap() error { return e.Err }

// KeepLastGood is the merge policy: whether the cached snapshot should
// survive the given refresh failure.
func KeepLastGood(err *RefreshError) bool {
	return err.Kind != FailureValidation
}
