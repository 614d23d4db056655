package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// TimeEntry represents a time booking in the domain. Durations are seconds
// everywhere; decimal hours exist only on the Timewax wire.
type TimeEntry struct {
	GUID        string
	Description string
	DurationSec int64
	Start       time.Time
	Stop        *time.Time // nil while the timer is running
	ProjectID   *int64     // Toggl project reference, nil for catalog-side entries
	Project     string     // Timewax project code
	Breakdown   string     // Timewax breakdown code
}

// Running reports whether the entry is an open timer. Running entries are
// never submitted.
func (e TimeEntry) Running() bool { return e.Stop == nil }

// Hours returns the duration as decimal hours for the Timewax wire format.
func (e TimeEntry) Hours() float64 { return float64(e.DurationSec) / 3600 }

// MarkedDescription returns the description as uploaded to Timewax, with the
// GUID marker appended so the entry can be matched on the way back.
func (e TimeEntry) MarkedDescription() string { return AppendGUID(e.Description, e.GUID) }

const guidMarker = "ID:"

// AppendGUID appends the " ID:<guid>" marker to a description.
func AppendGUID(description, guid string) string {
	return description + " " + guidMarker + guid
}

// ExtractGUID recovers the GUID from a marked description. The marker is the
// last "ID:" occurrence, so user text containing "ID:" does not confuse the
// match. Returns ErrMissingIdentifier when no marker is present; such entries
// were booked by hand and do not take part in reconciliation.
func ExtractGUID(description string) (string, error) {
	i := strings.LastIndex(description, guidMarker)
	if i < 0 {
		return "", fmt.Errorf("%q: %w", description, ErrMissingIdentifier)
	}
	guid := strings.TrimSpace(description[i+len(guidMarker):])
	if guid == "" {
		return "", fmt.Errorf("%q: %w", description, ErrMissingIdentifier)
	}
	return guid, nil
}

// SecondsFromHours converts Timewax decimal hours to seconds. Rounding keeps
// whole-minute durations exact across a round trip.
func SecondsFromHours(hours float64) int64 {
	return int64(math.Round(hours * 3600))
}
