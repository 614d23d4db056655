package usecase

import (
	"context"
	"errors"
	"log/slog"

	"toggl-timewax/internal/domain"
	"toggl-timewax/internal/ports"
)

// DefaultToleranceSec is the duration drift, in seconds, below which a
// tracker entry is considered already booked. Durations are canonically
// seconds; the historical hours-based tolerance is not supported.
const DefaultToleranceSec int64 = 60

// ReconcileUseCase pushes Toggl time entries into Timewax. Entries already
// present are skipped; entries whose duration drifted get a compensating
// delta entry so both ledgers converge without rewriting history.
type ReconcileUseCase struct {
	Log          *slog.Logger
	Catalog      ports.CatalogGateway
	Tracker      ports.TrackerGateway
	Audit        ports.AuditSink // optional
	SinceDays    int
	ToleranceSec int64
}

func (uc *ReconcileUseCase) Run(ctx context.Context, runID string) error {
	if uc.Catalog == nil || uc.Tracker == nil {
		return errors.New("usecase not initialized: missing dependencies")
	}
	tolerance := uc.ToleranceSec
	if tolerance == 0 {
		tolerance = DefaultToleranceSec
	}

	catalog, err := uc.Catalog.ListRecentEntries(ctx, uc.SinceDays)
	if err != nil {
		return err
	}
	tracker, err := uc.Tracker.ListRecentEntries(ctx, uc.SinceDays)
	if err != nil {
		return err
	}
	uc.Log.Info("fetched entries",
		slog.Int("catalog", len(catalog)), slog.Int("tracker", len(tracker)))

	merged := MergeCatalogEntries(catalog)
	toSubmit := PlanSubmissions(merged, tracker, uc.Tracker.ResolveCodes, tolerance, uc.Log)
	if len(toSubmit) == 0 {
		uc.Log.Info("nothing to submit")
		return nil
	}

	if err := uc.Catalog.SubmitEntries(ctx, toSubmit); err != nil {
		return err
	}
	if uc.Audit != nil {
		if err := uc.Audit.RecordSubmissions(ctx, runID, toSubmit); err != nil {
			return err
		}
	}
	uc.Log.Info("reconciliation completed", slog.Int("submitted", len(toSubmit)))
	return nil
}

// MergeCatalogEntries collapses catalog records sharing a GUID into one
// logical entry by summing their durations. Timewax splits a single tracker
// entry into several records when a finished timer is edited after upload;
// comparison must see the combined total. Metadata of the first record wins.
func MergeCatalogEntries(entries []domain.TimeEntry) map[string]domain.TimeEntry {
	merged := make(map[string]domain.TimeEntry, len(entries))
	for _, e := range entries {
		if prev, ok := merged[e.GUID]; ok {
			prev.DurationSec += e.DurationSec
			merged[e.GUID] = prev
			continue
		}
		merged[e.GUID] = e
	}
	return merged
}

// PlanSubmissions decides which tracker entries must go to the catalog.
// Running timers are skipped silently; entries whose project cannot be
// resolved against the tracker hierarchy snapshot are skipped with a log
// line. New entries are submitted as-is; entries whose duration drifted by
// strictly more than toleranceSec get a compensating entry carrying the
// signed difference. Output preserves tracker input order.
func PlanSubmissions(
	catalog map[string]domain.TimeEntry,
	tracker []domain.TimeEntry,
	resolve func(projectID int64) (project, breakdown string, ok bool),
	toleranceSec int64,
	log *slog.Logger,
) []domain.TimeEntry {
	var out []domain.TimeEntry
	for _, entry := range tracker {
		if entry.Running() {
			log.Debug("skipping running timer", slog.String("guid", entry.GUID))
			continue
		}

		if entry.Project == "" || entry.Breakdown == "" {
			if entry.ProjectID == nil {
				log.Info("skipping entry without project",
					slog.String("guid", entry.GUID), slog.String("reason", domain.ErrUnresolvedHierarchy.Error()))
				continue
			}
			project, breakdown, ok := resolve(*entry.ProjectID)
			if !ok {
				log.Info("skipping entry with foreign project",
					slog.String("guid", entry.GUID),
					slog.Int64("project_id", *entry.ProjectID),
					slog.String("reason", domain.ErrUnresolvedHierarchy.Error()))
				continue
			}
			entry.Project = project
			entry.Breakdown = breakdown
		}

		booked, known := catalog[entry.GUID]
		if !known {
			out = append(out, entry)
			continue
		}

		delta := entry.DurationSec - booked.DurationSec
		if delta > toleranceSec || delta < -toleranceSec {
			log.Info("entry changed since upload, compensating",
				slog.String("guid", entry.GUID), slog.Int64("delta_sec", delta))
			entry.DurationSec = delta
			out = append(out, entry)
			continue
		}

		log.Debug("entry already booked",
			slog.String("guid", entry.GUID),
			slog.String("project", entry.Project),
			slog.String("breakdown", entry.Breakdown))
	}
	return out
}
