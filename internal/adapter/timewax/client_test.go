package timewax

import (
	"context"
	"encoding/xml"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toggl-timewax/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fixtureServer answers each Timewax endpoint with canned XML and records the
// raw request bodies by path.
func fixtureServer(t *testing.T, responses map[string]string) (*httptest.Server, map[string][]string) {
	t.Helper()
	captured := make(map[string][]string)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		captured[r.URL.Path] = append(captured[r.URL.Path], string(body))
		resp, ok := responses[r.URL.Path]
		if !ok {
			t.Errorf("unexpected request to %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(resp))
	}))
	t.Cleanup(srv.Close)
	return srv, captured
}

const tokenOK = `<response><token>tok-123</token></response>`

func newTestClient(t *testing.T, responses map[string]string) (*Client, map[string][]string) {
	t.Helper()
	responses["/authentication/token/get/"] = tokenOK
	srv, captured := fixtureServer(t, responses)
	c, err := NewClient(context.Background(), srv.URL, "acme", "JDOE", "hunter2", testLogger())
	require.NoError(t, err)
	c.now = func() time.Time { return time.Date(2025, 8, 14, 12, 0, 0, 0, time.UTC) }
	return c, captured
}

func TestNewClientAuthenticates(t *testing.T) {
	c, captured := newTestClient(t, map[string]string{})
	assert.Equal(t, "tok-123", c.token)

	var req tokenRequest
	require.NoError(t, xml.Unmarshal([]byte(captured["/authentication/token/get/"][0]), &req))
	assert.Equal(t, "acme", req.Client)
	assert.Equal(t, "JDOE", req.Username)
	assert.Equal(t, "hunter2", req.Password)
}

func TestNewClientAuthFailure(t *testing.T) {
	srv, _ := fixtureServer(t, map[string]string{
		"/authentication/token/get/": `<response><error>bad credentials</error></response>`,
	})
	_, err := NewClient(context.Background(), srv.URL, "acme", "JDOE", "wrong", testLogger())
	var authErr *domain.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "timewax", authErr.Service)
}

func TestListAccessibleHierarchySkipsForeignNodes(t *testing.T) {
	c, _ := newTestClient(t, map[string]string{
		"/project/list/": `<response><projects>
			<project><code>1234567</code><name>Acme</name></project>
			<project><code>INTERNAL</code><name>Foreign tooling</name></project>
		</projects></response>`,
		"/project/breakdown/list/": `<response><breakdowns>
			<breakdown><code>7000001</code><name>Development</name></breakdown>
			<breakdown><code>7000002</code><name></name></breakdown>
		</breakdowns></response>`,
	})

	pairs, err := c.ListAccessibleHierarchy(context.Background())
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, "1234567", pairs[0].Project.Code)
	assert.Equal(t, "Acme", pairs[0].Project.Name)
	assert.Equal(t, "7000001", pairs[0].Breakdown.Code)
}

func TestListRecentEntriesSkipsForeign(t *testing.T) {
	c, captured := newTestClient(t, map[string]string{
		"/time/entries/list/": `<response><entries>
			<entry><description>dev work ID:42</description><project>1234567</project><breakdown>7000001</breakdown><hours>0.5</hours></entry>
			<entry><description>dev work ID:42</description><project>1234567</project><breakdown>7000001</breakdown><hours>0.25</hours></entry>
			<entry><description>manual booking</description><project>1234567</project><breakdown>7000001</breakdown><hours>2</hours></entry>
		</entries></response>`,
	})

	entries, err := c.ListRecentEntries(context.Background(), 9)
	require.NoError(t, err)
	// Both split records for GUID 42 come back; the manual booking without a
	// marker does not.
	require.Len(t, entries, 2)
	assert.Equal(t, "42", entries[0].GUID)
	assert.Equal(t, int64(1800), entries[0].DurationSec)
	assert.Equal(t, "42", entries[1].GUID)
	assert.Equal(t, int64(900), entries[1].DurationSec)
	assert.Equal(t, "1234567", entries[0].Project)

	// Window widened by one day: 9 days requested, 10 on the wire.
	var req entriesListRequest
	require.NoError(t, xml.Unmarshal([]byte(captured["/time/entries/list/"][0]), &req))
	assert.Equal(t, "20250804", req.DateFrom)
	assert.Equal(t, "20250814", req.DateTo)
	assert.Equal(t, "JDOE", req.Resource)
}

func TestSubmitEntries(t *testing.T) {
	c, captured := newTestClient(t, map[string]string{
		"/time/entries/add/": `<response><valid>yes</valid></response>`,
	})

	start := time.Date(2025, 8, 14, 9, 0, 0, 0, time.UTC)
	stop := start.Add(30 * time.Minute)
	err := c.SubmitEntries(context.Background(), []domain.TimeEntry{{
		GUID:        "42",
		Description: "dev work",
		DurationSec: 1800,
		Start:       start,
		Stop:        &stop,
		Project:     "1234567",
		Breakdown:   "7000001",
	}})
	require.NoError(t, err)

	var req entriesAddRequest
	require.NoError(t, xml.Unmarshal([]byte(captured["/time/entries/add/"][0]), &req))
	require.Len(t, req.Timelines, 1)
	tl := req.Timelines[0]
	assert.Equal(t, "JDOE", tl.Resource)
	assert.Equal(t, "1234567", tl.Project)
	assert.Equal(t, "7000001", tl.Breakdown)
	assert.Equal(t, "20250814", tl.Date)
	assert.Equal(t, 0.5, tl.Hours)
	assert.Equal(t, "09:00", tl.StartTime)
	assert.Equal(t, "09:30", tl.EndTime)
	assert.True(t, strings.HasSuffix(tl.Description, "ID:42"))
}

func TestSubmitEntriesRejected(t *testing.T) {
	c, _ := newTestClient(t, map[string]string{
		"/time/entries/add/": `<response><valid>no</valid><messages>breakdown closed</messages></response>`,
	})
	err := c.SubmitEntries(context.Background(), []domain.TimeEntry{{
		GUID: "42", Project: "1234567", Breakdown: "7000001",
		Start: time.Date(2025, 8, 14, 9, 0, 0, 0, time.UTC),
	}})
	var subErr *domain.SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.Contains(t, subErr.Error(), "breakdown closed")
}

func TestCheckAuthorization(t *testing.T) {
	okPair := domain.HierarchyPair{
		Project:   domain.ClientProject{Code: "1234567", Name: "Acme"},
		Breakdown: domain.ProjectBreakdown{Code: "7000001", Name: "Development"},
	}

	c, captured := newTestClient(t, map[string]string{
		"/time/entries/add/": `<response><valid>yes</valid></response>`,
	})
	ok, err := c.CheckAuthorization(context.Background(), okPair)
	require.NoError(t, err)
	assert.True(t, ok)

	// The probe must be a zero-duration timeline for the pair.
	var req entriesAddRequest
	require.NoError(t, xml.Unmarshal([]byte(captured["/time/entries/add/"][0]), &req))
	require.Len(t, req.Timelines, 1)
	assert.Equal(t, float64(0), req.Timelines[0].Hours)
	assert.Equal(t, "1234567", req.Timelines[0].Project)

	denied, _ := newTestClient(t, map[string]string{
		"/time/entries/add/": `<response><valid>no</valid></response>`,
	})
	ok, err = denied.CheckAuthorization(context.Background(), okPair)
	require.NoError(t, err)
	assert.False(t, ok)
}
