package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"toggl-timewax/internal/app"
	"toggl-timewax/internal/config"
)

var (
	flagConfigFile      string
	flagNoConfig        bool
	flagVerbose         bool
	flagTimewaxUsername string
	flagTimewaxPassword string
	flagTimewaxClient   string
	flagTogglKey        string
	flagWorkspaceName   string
	flagNDays           int
	flagServeAddr       string
)

func main() {
	root := &cobra.Command{
		Use:   "toggl-timewax",
		Short: "Synchronize projects and time entries between Timewax and Toggl",
		Long: `Timewax-to-Toggl synchronizer. Creates a client/project in Toggl for every
project/breakdown bookable in Timewax, and uploads Toggl time entries to
Timewax, submitting only entries that are new or whose duration changed.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flagConfigFile, "config", "", "Config file path (default: user config dir)")
	pf.BoolVar(&flagNoConfig, "no-config", false, "Do not read a config file, even if present")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "Enable verbose logging")
	pf.StringVarP(&flagTimewaxUsername, "timewax-username", "u", "", "Timewax username")
	pf.StringVarP(&flagTimewaxPassword, "timewax-password", "p", "", "Timewax password")
	pf.StringVarP(&flagTimewaxClient, "timewax-client", "c", "", "Timewax client (company) name")
	pf.StringVarP(&flagTogglKey, "toggl-key", "k", "", "Toggl api key")
	pf.StringVarP(&flagWorkspaceName, "workspace-name", "w", "",
		"Name to match Toggl workspaces against; first match wins. "+
			"Not needed with a single workspace")
	pf.IntVarP(&flagNDays, "n-days", "n", 0,
		"Days in the past to look for time entries (default 9)")

	root.AddCommand(newToTogglCmd(), newToTimewaxCmd(), newServeCmd(), newGenerateConfigCmd())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		newLogger().Error("command failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func newToTogglCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "to-toggl",
		Short: "Create Toggl clients/projects for every Timewax project/breakdown",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				return a.SyncHierarchy(ctx)
			})
		},
	}
}

func newToTimewaxCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "to-timewax",
		Short: "Upload new and changed Toggl time entries to Timewax",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				return a.ReconcileEntries(ctx)
			})
		},
	}
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run an HTTP server that triggers syncs on demand",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				srv := a.HTTPServer(flagServeAddr)
				errCh := make(chan error, 1)
				go func() { errCh <- srv.ListenAndServe() }()
				select {
				case err := <-errCh:
					if errors.Is(err, http.ErrServerClosed) {
						return nil
					}
					return err
				case <-ctx.Done():
					return srv.Shutdown(context.Background())
				}
			})
		},
	}
	cmd.Flags().StringVar(&flagServeAddr, "addr", ":8080", "Listen address")
	return cmd
}

func newGenerateConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate-config",
		Short: "Interactively write a config file for later runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger()
			cfg, path, err := loadConfig()
			if err != nil {
				return err
			}
			if err := config.PromptMissing(&cfg); err != nil {
				return err
			}
			if err := config.Save(cfg, path); err != nil {
				return err
			}
			log.Info("wrote config", slog.String("path", path))
			return nil
		},
	}
}

// withApp loads config, builds the application, and runs fn with a logger and
// connected gateways.
func withApp(ctx context.Context, fn func(context.Context, *app.App) error) error {
	log := newLogger()
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	if err := config.PromptMissing(&cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a, err := app.New(ctx, log, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

// loadConfig merges file, environment, and flag values, flags winning.
func loadConfig() (config.Config, string, error) {
	// A .env next to the binary is convenient in containers; absence is fine.
	_ = godotenv.Load()

	path := flagConfigFile
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			return config.Config{}, "", err
		}
	}
	cfg, err := config.Load(path, flagNoConfig)
	if err != nil {
		return config.Config{}, "", err
	}

	if flagTimewaxUsername != "" {
		cfg.Timewax.Username = flagTimewaxUsername
	}
	if flagTimewaxPassword != "" {
		cfg.Timewax.Password = flagTimewaxPassword
	}
	if flagTimewaxClient != "" {
		cfg.Timewax.Client = flagTimewaxClient
	}
	if flagTogglKey != "" {
		cfg.Toggl.APIToken = flagTogglKey
	}
	if flagWorkspaceName != "" {
		cfg.Toggl.WorkspaceName = flagWorkspaceName
	}
	if flagNDays > 0 {
		cfg.Sync.NDays = flagNDays
	}
	return cfg, path, nil
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if flagVerbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}
