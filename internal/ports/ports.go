package ports

import (
	"context"

	"toggl-timewax/internal/domain"
)

// CatalogGateway is the Timewax side: the authoritative project/breakdown
// hierarchy and the final ledger of bookings.
type CatalogGateway interface {
	// ListAccessibleHierarchy yields every (project, breakdown) pair visible
	// to the current user.
	ListAccessibleHierarchy(ctx context.Context) ([]domain.HierarchyPair, error)
	// CheckAuthorization reports whether the current user may book time on
	// the pair. A negative answer is a classification, not an error.
	CheckAuthorization(ctx context.Context, pair domain.HierarchyPair) (bool, error)
	// ListRecentEntries returns entries from the last sinceDays days.
	// Entries without a GUID marker are excluded; split records sharing a
	// GUID are returned as-is and merged by the reconciler.
	ListRecentEntries(ctx context.Context, sinceDays int) ([]domain.TimeEntry, error)
	// SubmitEntries uploads one batch of entries.
	SubmitEntries(ctx context.Context, entries []domain.TimeEntry) error
}

// TrackerGateway is the Toggl side: the service users record time in.
// Existence queries answer from an in-memory snapshot loaded once per run;
// creates keep the snapshot current.
type TrackerGateway interface {
	HasOwnerNode(name string) bool
	CreateOwnerNode(ctx context.Context, name string) (int64, error)
	OwnerNodeID(name string) (int64, bool)
	OwnerHasChildNode(ownerID int64, name string) bool
	CreateChildNode(ctx context.Context, ownerID int64, name string) error
	ListRecentEntries(ctx context.Context, sinceDays int) ([]domain.TimeEntry, error)
	// ResolveCodes maps a Toggl project id to its Timewax project and
	// breakdown codes via the snapshot.
	ResolveCodes(projectID int64) (project, breakdown string, ok bool)
}

// AuditSink records what a run changed. Implementations are optional; the
// use cases accept a nil sink.
type AuditSink interface {
	RecordNodeCreations(ctx context.Context, runID string, names []string) error
	RecordSubmissions(ctx context.Context, runID string, entries []domain.TimeEntry) error
	Close() error
}
