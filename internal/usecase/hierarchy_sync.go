package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"toggl-timewax/internal/ports"
)

// HierarchySyncUseCase mirrors the Timewax project/breakdown hierarchy into
// Toggl clients and projects. Strictly additive: nodes are created when
// missing, never renamed or deleted, so running it twice is a no-op.
type HierarchySyncUseCase struct {
	Log     *slog.Logger
	Catalog ports.CatalogGateway
	Tracker ports.TrackerGateway
	Audit   ports.AuditSink // optional
}

func (uc *HierarchySyncUseCase) Run(ctx context.Context, runID string) error {
	if uc.Catalog == nil || uc.Tracker == nil {
		return errors.New("usecase not initialized: missing dependencies")
	}

	pairs, err := uc.Catalog.ListAccessibleHierarchy(ctx)
	if err != nil {
		return err
	}
	uc.Log.Info("fetched catalog hierarchy", slog.Int("pairs", len(pairs)))

	var created []string
	for _, pair := range pairs {
		ok, err := uc.Catalog.CheckAuthorization(ctx, pair)
		if err != nil {
			return err
		}
		if !ok {
			uc.Log.Debug("not authorized for pair, skipping",
				slog.String("project", pair.Project.Code),
				slog.String("breakdown", pair.Breakdown.Code))
			continue
		}

		ownerName := pair.Project.DisplayName()
		if !uc.Tracker.HasOwnerNode(ownerName) {
			if _, err := uc.Tracker.CreateOwnerNode(ctx, ownerName); err != nil {
				return fmt.Errorf("creating client %q: %w", ownerName, err)
			}
			uc.Log.Info("created client", slog.String("name", ownerName))
			created = append(created, ownerName)
		}
		ownerID, ok := uc.Tracker.OwnerNodeID(ownerName)
		if !ok {
			// The create above registered the node; reaching here means the
			// tracker snapshot is inconsistent.
			return fmt.Errorf("client %q missing after create", ownerName)
		}

		childName := pair.Breakdown.DisplayName()
		if !uc.Tracker.OwnerHasChildNode(ownerID, childName) {
			if err := uc.Tracker.CreateChildNode(ctx, ownerID, childName); err != nil {
				return fmt.Errorf("creating project %q: %w", childName, err)
			}
			uc.Log.Info("created project",
				slog.String("name", childName), slog.String("client", ownerName))
			created = append(created, childName)
		}
	}

	if uc.Audit != nil && len(created) > 0 {
		if err := uc.Audit.RecordNodeCreations(ctx, runID, created); err != nil {
			return err
		}
	}
	uc.Log.Info("hierarchy sync completed", slog.Int("created", len(created)))
	return nil
}
