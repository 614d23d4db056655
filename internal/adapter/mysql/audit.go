package mysql

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"toggl-timewax/internal/domain"
)

// Client implements ports.AuditSink by appending to MySQL tables. The audit
// log is insert-only; reruns add new rows rather than rewriting old ones.
type Client struct {
	db  *sql.DB
	log *slog.Logger
}

// NewClient opens a MySQL connection using the provided DSN.
// Example DSN: user:pass@tcp(host:3306)/dbname?parseTime=true&multiStatements=true
func NewClient(ctx context.Context, dsn string, log *slog.Logger) (*Client, error) {
	if dsn == "" {
		return nil, errors.New("mysql: DSN is required")
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	c, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(c); err != nil {
		db.Close()
		return nil, err
	}
	return &Client{db: db, log: log}, nil
}

// RecordNodeCreations logs clients/projects created by a hierarchy sync run.
func (c *Client) RecordNodeCreations(ctx context.Context, runID string, names []string) error {
	if len(names) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	const q = `INSERT INTO node_creations (run_id, name, created_at) VALUES (?, ?, ?);`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, name := range names {
		if _, err := stmt.ExecContext(ctx, runID, name, now); err != nil {
			tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	c.log.Info("audit recorded node creations", slog.Int("count", len(names)))
	return nil
}

// RecordSubmissions logs entries submitted to the catalog by a reconcile run.
func (c *Client) RecordSubmissions(ctx context.Context, runID string, entries []domain.TimeEntry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	const q = `
INSERT INTO entry_submissions
  (run_id, guid, project, breakdown, duration_sec, start, stop, description, submitted_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?);
`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, e := range entries {
		var stop interface{}
		if e.Stop != nil {
			stop = e.Stop.UTC()
		} else {
			stop = nil
		}
		if _, err := stmt.ExecContext(
			ctx,
			runID,
			e.GUID,
			e.Project,
			e.Breakdown,
			e.DurationSec,
			e.Start.UTC(),
			stop,
			e.Description,
			now,
		); err != nil {
			tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	c.log.Info("audit recorded submissions", slog.Int("count", len(entries)))
	return nil
}

// Close closes the underlying DB.
func (c *Client) Close() error { return c.db.Close() }
