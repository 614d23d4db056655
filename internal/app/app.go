package app

import (
	"context"
	"log/slog"
	"time"

	msql "toggl-timewax/internal/adapter/mysql"
	tg "toggl-timewax/internal/adapter/toggl"
	tw "toggl-timewax/internal/adapter/timewax"
	"toggl-timewax/internal/config"
	"toggl-timewax/internal/migrate"
	"toggl-timewax/internal/ports"
	"toggl-timewax/internal/usecase"
)

// App wires adapters and use cases.
type App struct {
	log     *slog.Logger
	catalog ports.CatalogGateway
	tracker ports.TrackerGateway
	audit   ports.AuditSink
	cfg     config.Config
}

// New authenticates both gateways, loads the tracker snapshot, and, when a
// MySQL DSN is configured, migrates and opens the audit sink.
func New(ctx context.Context, log *slog.Logger, cfg config.Config) (*App, error) {
	catalog, err := tw.NewClient(ctx, cfg.Timewax.BaseURL,
		cfg.Timewax.Client, cfg.Timewax.Username, cfg.Timewax.Password, log)
	if err != nil {
		return nil, err
	}

	tracker := tg.NewClient(cfg.Toggl.BaseURL, cfg.Toggl.APIToken, log)
	if err := tracker.LoadSnapshot(ctx, cfg.Toggl.WorkspaceName); err != nil {
		return nil, err
	}

	var audit ports.AuditSink
	if cfg.MySQL.DSN != "" {
		if err := migrate.Run(ctx, cfg.MySQL.DSN, log); err != nil {
			return nil, err
		}
		sink, err := msql.NewClient(ctx, cfg.MySQL.DSN, log)
		if err != nil {
			return nil, err
		}
		audit = sink
	}

	return &App{log: log, catalog: catalog, tracker: tracker, audit: audit, cfg: cfg}, nil
}

// SyncHierarchy mirrors the catalog hierarchy into the tracker.
func (a *App) SyncHierarchy(ctx context.Context) error {
	uc := &usecase.HierarchySyncUseCase{
		Log:     a.log,
		Catalog: a.catalog,
		Tracker: a.tracker,
		Audit:   a.audit,
	}
	return uc.Run(ctx, newRunID())
}

// ReconcileEntries pushes new and changed tracker entries into the catalog.
func (a *App) ReconcileEntries(ctx context.Context) error {
	uc := &usecase.ReconcileUseCase{
		Log:          a.log,
		Catalog:      a.catalog,
		Tracker:      a.tracker,
		Audit:        a.audit,
		SinceDays:    a.cfg.Sync.NDays,
		ToleranceSec: a.cfg.Sync.ToleranceSeconds,
	}
	return uc.Run(ctx, newRunID())
}

// Close releases the audit sink, if any.
func (a *App) Close() error {
	if a.audit != nil {
		return a.audit.Close()
	}
	return nil
}

func newRunID() string {
	return time.Now().UTC().Format("20060102T150405.000000000Z")
}
