package domain

// ClientProject is a Timewax project, mirrored as a client in Toggl.
type ClientProject struct {
	Name    string
	Code    string
	TogglID int64
}

// DisplayName returns the Toggl-side name for this node.
func (c ClientProject) DisplayName() string { return DisplayName(c.Code, c.Name) }

// ProjectBreakdown is a Timewax breakdown, mirrored as a project under a
// client in Toggl.
type ProjectBreakdown struct {
	Name          string
	Code          string
	TogglID       int64
	TogglClientID int64
}

// DisplayName returns the Toggl-side name for this node.
func (b ProjectBreakdown) DisplayName() string { return DisplayName(b.Code, b.Name) }

// HierarchyPair is one bookable (project, breakdown) combination exposed by
// the catalog.
type HierarchyPair struct {
	Project   ClientProject
	Breakdown ProjectBreakdown
}
