package timewax

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"toggl-timewax/internal/domain"
)

const (
	dateFormat = "20060102"
	timeFormat = "15:04"
)

// Client implements ports.CatalogGateway against the Timewax XML API.
type Client struct {
	baseURL  string
	client   string
	username string
	token    string
	http     *http.Client
	log      *slog.Logger
	now      func() time.Time
}

// NewClient authenticates against Timewax and returns a ready gateway.
// A failed login is fatal for the run.
func NewClient(ctx context.Context, baseURL, clientName, username, password string, log *slog.Logger) (*Client, error) {
	if baseURL == "" {
		baseURL = "https://api.timewax.com"
	}
	c := &Client{
		baseURL:  baseURL,
		client:   clientName,
		username: username,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
		now: time.Now,
	}
	if err := c.authenticate(ctx, password); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) authenticate(ctx context.Context, password string) error {
	var resp tokenResponse
	err := c.post(ctx, "/authentication/token/get/", tokenRequest{
		Client:   c.client,
		Username: c.username,
		Password: password,
	}, &resp)
	if err != nil {
		return &domain.AuthError{Service: "timewax", Reason: err.Error()}
	}
	if resp.Token == "" {
		return &domain.AuthError{Service: "timewax", Reason: "no token in response"}
	}
	c.token = resp.Token
	return nil
}

// ListAccessibleHierarchy lists active parent projects and their breakdowns.
// Projects with non-conforming codes and breakdowns without a name are
// foreign entities and are skipped.
func (c *Client) ListAccessibleHierarchy(ctx context.Context) ([]domain.HierarchyPair, error) {
	var projResp projectListResponse
	err := c.post(ctx, "/project/list/", projectListRequest{
		Token:    c.token,
		IsActive: "Yes",
	}, &projResp)
	if err != nil {
		return nil, err
	}

	var pairs []domain.HierarchyPair
	for _, p := range projResp.Projects {
		if !domain.ValidCode(p.Code) {
			c.log.Debug("skipping project with foreign code", slog.String("code", p.Code))
			continue
		}
		project := domain.ClientProject{Name: p.Name, Code: p.Code}

		var bdResp breakdownListResponse
		err := c.post(ctx, "/project/breakdown/list/", breakdownListRequest{
			Token:   c.token,
			Project: p.Code,
		}, &bdResp)
		if err != nil {
			return nil, err
		}
		for _, b := range bdResp.Breakdowns {
			if b.Name == "" {
				continue
			}
			pairs = append(pairs, domain.HierarchyPair{
				Project:   project,
				Breakdown: domain.ProjectBreakdown{Name: b.Name, Code: b.Code},
			})
		}
	}
	return pairs, nil
}

// CheckAuthorization probes whether the current user may book on the pair by
// submitting a zero-duration trial timeline. Timewax has no direct
// authorization query; a rejected probe means "not bookable", not an error.
func (c *Client) CheckAuthorization(ctx context.Context, pair domain.HierarchyPair) (bool, error) {
	probe := timeline{
		Resource:    c.username,
		Project:     pair.Project.Code,
		Breakdown:   pair.Breakdown.Code,
		Date:        c.now().Format(dateFormat),
		Hours:       0,
		Description: "booking probe",
	}
	var resp entriesAddResponse
	err := c.post(ctx, "/time/entries/add/", entriesAddRequest{
		Token:     c.token,
		Timelines: []timeline{probe},
	}, &resp)
	if err != nil {
		return false, err
	}
	return resp.Valid == "yes", nil
}

// ListRecentEntries fetches bookings from the last sinceDays days. The
// window is widened by one day because Timewax dates are day-granular.
// Entries without a GUID marker were booked by hand and are skipped. A
// tracker entry edited after upload appears as several records sharing one
// GUID; they are returned as-is and summed by the reconciler.
func (c *Client) ListRecentEntries(ctx context.Context, sinceDays int) ([]domain.TimeEntry, error) {
	now := c.now()
	from := now.AddDate(0, 0, -(sinceDays + 1))
	c.log.Info("fetching timewax entries", slog.String("since", from.Format(dateFormat)))

	var resp entriesListResponse
	err := c.post(ctx, "/time/entries/list/", entriesListRequest{
		Token:    c.token,
		DateFrom: from.Format(dateFormat),
		DateTo:   now.Format(dateFormat),
		Resource: c.username,
	}, &resp)
	if err != nil {
		return nil, err
	}

	entries := make([]domain.TimeEntry, 0, len(resp.Entries))
	for _, raw := range resp.Entries {
		guid, err := domain.ExtractGUID(raw.Description)
		if err != nil {
			c.log.Warn("entry has no GUID and does not originate from the tracker; "+
				"make sure not to book duplicates by hand",
				slog.String("project", raw.Project))
			continue
		}
		entries = append(entries, domain.TimeEntry{
			GUID:        guid,
			Description: raw.Description,
			DurationSec: domain.SecondsFromHours(raw.Hours),
			Project:     raw.Project,
			Breakdown:   raw.Breakdown,
		})
	}
	return entries, nil
}

// SubmitEntries uploads one batch of timelines. A non-valid response is a
// SubmissionError; rerunning later is safe.
func (c *Client) SubmitEntries(ctx context.Context, entries []domain.TimeEntry) error {
	if len(entries) == 0 {
		return nil
	}
	timelines := make([]timeline, 0, len(entries))
	for _, e := range entries {
		tl := timeline{
			Resource:    c.username,
			Project:     e.Project,
			Breakdown:   e.Breakdown,
			Date:        e.Start.Format(dateFormat),
			Hours:       e.Hours(),
			StartTime:   e.Start.Format(timeFormat),
			Description: e.MarkedDescription(),
		}
		if e.Stop != nil {
			tl.EndTime = e.Stop.Format(timeFormat)
		}
		timelines = append(timelines, tl)
	}

	var resp entriesAddResponse
	err := c.post(ctx, "/time/entries/add/", entriesAddRequest{
		Token:     c.token,
		Timelines: timelines,
	}, &resp)
	if err != nil {
		return err
	}
	if resp.Valid != "yes" {
		return &domain.SubmissionError{Service: "timewax", Detail: resp.Detail()}
	}
	c.log.Info("submitted entries", slog.Int("count", len(timelines)))
	return nil
}

// post marshals body as XML, POSTs it, and decodes the XML response into out.
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return err
	}
	u.Path = path

	payload, err := xml.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/xml")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("timewax: unexpected status %d: %s", resp.StatusCode, string(b))
	}
	return xml.NewDecoder(resp.Body).Decode(out)
}
