package domain

import (
	"errors"
	"fmt"
)

// Per-entity classification errors. Callers skip the offending entity and
// continue; these never abort a run.
var (
	// ErrNamingConvention marks a hierarchy node whose display name does not
	// follow the "<code> - <name>" convention. Such nodes belong to other
	// tooling and are excluded from sync.
	ErrNamingConvention = errors.New("display name does not follow naming convention")

	// ErrMissingIdentifier marks a catalog entry without an embedded "ID:"
	// marker, meaning it was booked by hand rather than synced from the
	// tracker.
	ErrMissingIdentifier = errors.New("description carries no ID marker")

	// ErrUnresolvedHierarchy marks a tracker entry whose project cannot be
	// mapped to a catalog project/breakdown pair.
	ErrUnresolvedHierarchy = errors.New("entry project not found in hierarchy snapshot")
)

// AuthError reports a failed login against one of the services. Fatal for
// the run.
type AuthError struct {
	Service string
	Reason  string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s authentication failed: %s", e.Service, e.Reason)
}

// SubmissionError reports a rejected batch submission. Fatal for the run;
// rerunning is safe because every operation is additive and existence-checked.
type SubmissionError struct {
	Service string
	Detail  string
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("%s rejected submission: %s", e.Service, e.Detail)
}
