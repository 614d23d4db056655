package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// Timewax project and breakdown codes are numeric, 7 to 10 digits. Anything
// else in a Toggl client or project name means the node was not created by
// this tool.
var codePattern = regexp.MustCompile(`^[0-9]{7,10}$`)

const displaySeparator = " - "

// DisplayName renders the cross-service join key for a code/name pair.
func DisplayName(code, name string) string {
	return code + displaySeparator + name
}

// ParseDisplayName splits a display name back into code and name. It splits
// on the first " - " occurrence so names containing the separator survive a
// round trip. Returns ErrNamingConvention when the separator is missing or
// the prefix is not a valid Timewax code.
func ParseDisplayName(display string) (code, name string, err error) {
	code, name, found := strings.Cut(display, displaySeparator)
	if !found {
		return "", "", fmt.Errorf("%q: %w", display, ErrNamingConvention)
	}
	if !codePattern.MatchString(code) {
		return "", "", fmt.Errorf("%q: %w", display, ErrNamingConvention)
	}
	return code, name, nil
}

// ValidCode reports whether code matches the Timewax code pattern.
func ValidCode(code string) bool {
	return codePattern.MatchString(code)
}
