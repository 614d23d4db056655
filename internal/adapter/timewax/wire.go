package timewax

import "encoding/xml"

// Request and response shapes for the Timewax XML API. Response structs omit
// XMLName so any response root element is accepted.

type tokenRequest struct {
	XMLName  xml.Name `xml:"request"`
	Client   string   `xml:"client"`
	Username string   `xml:"username"`
	Password string   `xml:"password"`
}

type tokenResponse struct {
	Token string `xml:"token"`
}

type projectListRequest struct {
	XMLName   xml.Name `xml:"request"`
	Token     string   `xml:"token"`
	IsParent  string   `xml:"isParent"`
	IsActive  string   `xml:"isActive"`
	Portfolio string   `xml:"portfolio"`
}

type projectListResponse struct {
	Projects []rawNode `xml:"projects>project"`
}

type breakdownListRequest struct {
	XMLName xml.Name `xml:"request"`
	Token   string   `xml:"token"`
	Project string   `xml:"project"`
}

type breakdownListResponse struct {
	Breakdowns []rawNode `xml:"breakdowns>breakdown"`
}

type rawNode struct {
	Code string `xml:"code"`
	Name string `xml:"name"`
}

type entriesListRequest struct {
	XMLName  xml.Name `xml:"request"`
	Token    string   `xml:"token"`
	DateFrom string   `xml:"dateFrom"`
	DateTo   string   `xml:"dateTo"`
	Resource string   `xml:"resource"`
}

type entriesListResponse struct {
	Entries []rawEntry `xml:"entries>entry"`
}

type rawEntry struct {
	Description string  `xml:"description"`
	Project     string  `xml:"project"`
	Breakdown   string  `xml:"breakdown"`
	Hours       float64 `xml:"hours"`
}

type entriesAddRequest struct {
	XMLName   xml.Name   `xml:"request"`
	Token     string     `xml:"token"`
	Timelines []timeline `xml:"timelines>timeline"`
}

type timeline struct {
	Resource    string  `xml:"resource"`
	Project     string  `xml:"project"`
	Breakdown   string  `xml:"breakdown"`
	Date        string  `xml:"date"`
	Hours       float64 `xml:"hours"`
	StartTime   string  `xml:"startTime"`
	EndTime     string  `xml:"endTime"`
	Description string  `xml:"description"`
}

type entriesAddResponse struct {
	Valid    string `xml:"valid"`
	Messages string `xml:"messages"`
}

// Detail renders whatever diagnostic text the API returned.
func (r entriesAddResponse) Detail() string {
	if r.Messages != "" {
		return r.Messages
	}
	return "valid=" + r.Valid
}
