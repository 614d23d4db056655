package toggl

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"toggl-timewax/internal/domain"
)

// Client implements ports.TrackerGateway using the Toggl Track API v9.
// Hierarchy queries answer from an in-memory snapshot loaded once via
// LoadSnapshot; creates keep the snapshot current so a sync run never asks
// the API twice for the same existence check.
type Client struct {
	baseURL  string
	apiToken string
	http     *http.Client
	log      *slog.Logger
	now      func() time.Time

	workspace int64
	// Snapshot of clients and projects, keyed by Toggl ids.
	clients        map[int64]domain.ClientProject
	clientIDByName map[string]int64
	projects       map[int64]map[int64]domain.ProjectBreakdown
	clientByProj   map[int64]int64
}

func NewClient(baseURL, apiToken string, log *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = "https://api.track.toggl.com"
	}
	return &Client{
		baseURL:  baseURL,
		apiToken: apiToken,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		log:            log,
		now:            time.Now,
		clients:        make(map[int64]domain.ClientProject),
		clientIDByName: make(map[string]int64),
		projects:       make(map[int64]map[int64]domain.ProjectBreakdown),
		clientByProj:   make(map[int64]int64),
	}
}

// LoadSnapshot resolves the workspace and loads all clients and projects.
// Only one workspace is supported; workspaceName filters by substring and the
// first match wins, or the first workspace when empty. Clients and projects
// whose names do not follow the naming convention belong to other tooling
// and are left out of the snapshot.
func (c *Client) LoadSnapshot(ctx context.Context, workspaceName string) error {
	if c.apiToken == "" {
		return &domain.AuthError{Service: "toggl", Reason: "missing api token"}
	}

	var workspaces []rawWorkspace
	if err := c.get(ctx, "/api/v9/me/workspaces", nil, &workspaces); err != nil {
		return err
	}
	if len(workspaces) == 0 {
		return &domain.AuthError{Service: "toggl", Reason: "no workspaces accessible"}
	}
	picked := workspaces[0]
	if workspaceName != "" {
		found := false
		for _, w := range workspaces {
			if strings.Contains(w.Name, workspaceName) {
				picked, found = w, true
				break
			}
		}
		if !found {
			return fmt.Errorf("toggl: no workspace matching %q", workspaceName)
		}
	}
	c.workspace = picked.ID
	c.log.Info("using workspace", slog.String("name", picked.Name), slog.Int64("id", picked.ID))

	var clients []rawClient
	if err := c.get(ctx, fmt.Sprintf("/api/v9/workspaces/%d/clients", c.workspace), nil, &clients); err != nil {
		return err
	}
	for _, cl := range clients {
		code, name, err := domain.ParseDisplayName(cl.Name)
		if err != nil {
			c.log.Debug("skipping foreign client", slog.String("name", cl.Name))
			continue
		}
		c.clients[cl.ID] = domain.ClientProject{Name: name, Code: code, TogglID: cl.ID}
		c.clientIDByName[cl.Name] = cl.ID
	}

	var projects []rawProject
	q := url.Values{"per_page": {"1000"}, "active": {"both"}}
	if err := c.get(ctx, fmt.Sprintf("/api/v9/workspaces/%d/projects", c.workspace), q, &projects); err != nil {
		return err
	}
	for _, p := range projects {
		if p.ClientID == nil {
			continue
		}
		code, name, err := domain.ParseDisplayName(p.Name)
		if err != nil {
			c.log.Debug("skipping foreign project", slog.String("name", p.Name))
			continue
		}
		c.addProject(domain.ProjectBreakdown{
			Name:          name,
			Code:          code,
			TogglID:       p.ID,
			TogglClientID: *p.ClientID,
		})
	}
	c.log.Info("loaded tracker snapshot",
		slog.Int("clients", len(c.clients)), slog.Int("projects", len(c.clientByProj)))
	return nil
}

func (c *Client) addProject(b domain.ProjectBreakdown) {
	byID, ok := c.projects[b.TogglClientID]
	if !ok {
		byID = make(map[int64]domain.ProjectBreakdown)
		c.projects[b.TogglClientID] = byID
	}
	byID[b.TogglID] = b
	c.clientByProj[b.TogglID] = b.TogglClientID
}

// HasOwnerNode reports whether a client with the display name exists.
func (c *Client) HasOwnerNode(name string) bool {
	_, ok := c.clientIDByName[name]
	return ok
}

// OwnerNodeID returns the Toggl client id for a display name.
func (c *Client) OwnerNodeID(name string) (int64, bool) {
	id, ok := c.clientIDByName[name]
	return id, ok
}

// CreateOwnerNode creates a client and registers it in the snapshot.
func (c *Client) CreateOwnerNode(ctx context.Context, name string) (int64, error) {
	var created rawClient
	err := c.post(ctx, fmt.Sprintf("/api/v9/workspaces/%d/clients", c.workspace),
		map[string]any{"name": name, "wid": c.workspace}, &created)
	if err != nil {
		return 0, err
	}
	code, parsed, err := domain.ParseDisplayName(created.Name)
	if err != nil {
		return 0, fmt.Errorf("toggl: created client %q: %w", created.Name, err)
	}
	c.clients[created.ID] = domain.ClientProject{Name: parsed, Code: code, TogglID: created.ID}
	c.clientIDByName[created.Name] = created.ID
	return created.ID, nil
}

// OwnerHasChildNode reports whether the client already has a project with the
// display name.
func (c *Client) OwnerHasChildNode(ownerID int64, name string) bool {
	for _, p := range c.projects[ownerID] {
		if p.DisplayName() == name {
			return true
		}
	}
	return false
}

// CreateChildNode creates a private project under the client and registers it
// in the snapshot.
func (c *Client) CreateChildNode(ctx context.Context, ownerID int64, name string) error {
	var created rawProject
	err := c.post(ctx, fmt.Sprintf("/api/v9/workspaces/%d/projects", c.workspace),
		map[string]any{
			"name":       name,
			"client_id":  ownerID,
			"is_private": true,
			"active":     true,
		}, &created)
	if err != nil {
		return err
	}
	code, parsed, err := domain.ParseDisplayName(created.Name)
	if err != nil {
		return fmt.Errorf("toggl: created project %q: %w", created.Name, err)
	}
	c.addProject(domain.ProjectBreakdown{
		Name:          parsed,
		Code:          code,
		TogglID:       created.ID,
		TogglClientID: ownerID,
	})
	return nil
}

// ResolveCodes maps a Toggl project id to its Timewax project and breakdown
// codes using the snapshot.
func (c *Client) ResolveCodes(projectID int64) (project, breakdown string, ok bool) {
	clientID, ok := c.clientByProj[projectID]
	if !ok {
		return "", "", false
	}
	cl, okClient := c.clients[clientID]
	p, okProj := c.projects[clientID][projectID]
	if !okClient || !okProj {
		return "", "", false
	}
	return cl.Code, p.Code, true
}

// ListRecentEntries fetches entries started within the last sinceDays days.
// The numeric entry id in decimal serves as the GUID; a negative wire
// duration means the timer is still running.
func (c *Client) ListRecentEntries(ctx context.Context, sinceDays int) ([]domain.TimeEntry, error) {
	now := c.now()
	from := now.AddDate(0, 0, -sinceDays)
	c.log.Info("fetching toggl entries", slog.Time("since", from))

	q := url.Values{
		"start_date": {from.Format(time.RFC3339)},
		"end_date":   {now.Format(time.RFC3339)},
	}
	var raw []rawTimeEntry
	if err := c.get(ctx, "/api/v9/me/time_entries", q, &raw); err != nil {
		return nil, err
	}

	out := make([]domain.TimeEntry, 0, len(raw))
	for _, r := range raw {
		entry := domain.TimeEntry{
			GUID:        strconv.FormatInt(r.ID, 10),
			Description: r.Description,
			DurationSec: r.Duration,
			Start:       r.Start,
		}
		if r.Stop != nil {
			stop := *r.Stop
			entry.Stop = &stop
		} else {
			entry.DurationSec = 0
		}
		if r.ProjectID != nil {
			p := *r.ProjectID
			entry.ProjectID = &p
		}
		out = append(out, entry)
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, path, nil, payload, out)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte, out any) error {
	if c.apiToken == "" {
		return errors.New("missing api token")
	}
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return err
	}
	u.Path = path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return err
	}
	// Basic auth: token:api_token
	auth := base64.StdEncoding.EncodeToString([]byte(fmt.Sprintf("%s:%s", c.apiToken, "api_token")))
	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return &domain.AuthError{Service: "toggl", Reason: fmt.Sprintf("status %d", resp.StatusCode)}
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("toggl: unexpected status %d: %s", resp.StatusCode, string(b))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Raw wire shapes for Toggl v9.
type rawWorkspace struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type rawClient struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type rawProject struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	ClientID *int64 `json:"client_id"`
	Active   bool   `json:"active"`
	Private  bool   `json:"is_private"`
}

type rawTimeEntry struct {
	ID          int64      `json:"id"`
	Description string     `json:"description"`
	ProjectID   *int64     `json:"project_id"`
	Start       time.Time  `json:"start"`
	Stop        *time.Time `json:"stop"`
	Duration    int64      `json:"duration"`
}
