package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"golang.org/x/term"
)

const (
	envPrefix = "TOGGL_TIMEWAX"
	appDir    = "toggl-timewax"

	defaultNDays        = 9
	defaultToleranceSec = 60
)

// Config holds everything the sync commands need. Values come from the
// config file, environment (TOGGL_TIMEWAX_*), and CLI flags, in increasing
// precedence.
type Config struct {
	Timewax struct {
		Username string
		Password string
		Client   string
		BaseURL  string
	}
	Toggl struct {
		APIToken      string
		WorkspaceName string
		BaseURL       string
	}
	Sync struct {
		NDays            int
		ToleranceSeconds int64
	}
	MySQL struct {
		DSN string // optional; enables the audit sink
	}
}

// DefaultPath returns the per-user config file location.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appDir, "config.yaml"), nil
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	v.SetDefault("sync.n_days", defaultNDays)
	v.SetDefault("sync.tolerance_seconds", defaultToleranceSec)
	v.SetDefault("timewax.base_url", "https://api.timewax.com")
	v.SetDefault("toggl.base_url", "https://api.track.toggl.com")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(path)
	}
	return v
}

// Load reads configuration from the file at path (skipped when noConfig is
// set or the file is absent) and the environment.
func Load(path string, noConfig bool) (Config, error) {
	var cfg Config
	if noConfig {
		path = ""
	}
	v := newViper(path)
	if path != "" {
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return cfg, fmt.Errorf("reading config %s: %w", path, err)
			}
		}
	}

	cfg.Timewax.Username = v.GetString("timewax.username")
	cfg.Timewax.Password = v.GetString("timewax.password")
	cfg.Timewax.Client = v.GetString("timewax.client")
	cfg.Timewax.BaseURL = v.GetString("timewax.base_url")
	cfg.Toggl.APIToken = v.GetString("toggl.api_token")
	cfg.Toggl.WorkspaceName = v.GetString("toggl.workspace_name")
	cfg.Toggl.BaseURL = v.GetString("toggl.base_url")
	cfg.Sync.NDays = v.GetInt("sync.n_days")
	cfg.Sync.ToleranceSeconds = v.GetInt64("sync.tolerance_seconds")
	cfg.MySQL.DSN = v.GetString("mysql.dsn")
	return cfg, nil
}

// Save writes cfg to a YAML config file at path, creating parent directories.
func Save(cfg Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	v := newViper("")
	v.Set("timewax.username", cfg.Timewax.Username)
	v.Set("timewax.client", cfg.Timewax.Client)
	if cfg.Timewax.Password != "" {
		v.Set("timewax.password", cfg.Timewax.Password)
	}
	if cfg.Toggl.APIToken != "" {
		v.Set("toggl.api_token", cfg.Toggl.APIToken)
	}
	if cfg.Toggl.WorkspaceName != "" {
		v.Set("toggl.workspace_name", cfg.Toggl.WorkspaceName)
	}
	v.Set("sync.n_days", cfg.Sync.NDays)
	v.Set("sync.tolerance_seconds", cfg.Sync.ToleranceSeconds)
	if cfg.MySQL.DSN != "" {
		v.Set("mysql.dsn", cfg.MySQL.DSN)
	}
	return v.WriteConfigAs(path)
}

// PromptMissing interactively asks for any credential still unset. Secrets
// are read without echo.
func PromptMissing(cfg *Config) error {
	var err error
	if cfg.Timewax.Username == "" {
		cfg.Timewax.Username, err = promptLine("Timewax username: ")
		if err != nil {
			return err
		}
	}
	if cfg.Timewax.Client == "" {
		cfg.Timewax.Client, err = promptLine("Timewax client: ")
		if err != nil {
			return err
		}
	}
	if cfg.Timewax.Password == "" {
		cfg.Timewax.Password, err = promptSecret("Timewax password: ")
		if err != nil {
			return err
		}
	}
	if cfg.Toggl.APIToken == "" {
		cfg.Toggl.APIToken, err = promptSecret("Toggl api key: ")
		if err != nil {
			return err
		}
	}
	return nil
}

// Validate checks that all required credentials are present.
func (c Config) Validate() error {
	switch {
	case c.Timewax.Username == "":
		return errors.New("timewax username is required")
	case c.Timewax.Password == "":
		return errors.New("timewax password is required")
	case c.Timewax.Client == "":
		return errors.New("timewax client is required")
	case c.Toggl.APIToken == "":
		return errors.New("toggl api token is required")
	}
	return nil
}

func promptLine(label string) (string, error) {
	fmt.Fprint(os.Stderr, label)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func promptSecret(label string) (string, error) {
	fmt.Fprint(os.Stderr, label)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}
