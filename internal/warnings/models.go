package warnings

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// RegionID identifies an administrative region (ORP code in the ČHMÚ feed).
// Codes are compared exactly; "210" never matches "2102".
type RegionID string

// NewRegionID normalizes a configured or decoded region code.
func NewRegionID(s string) RegionID {
	return RegionID(strings.TrimSpace(s))
}

func (r RegionID) String() string {
	return string(r)
}

// UnmarshalJSON accepts both numeric and string codes.
func (r *RegionID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return fmt.Errorf("region code is null")
	}

	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*r = NewRegionID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("invalid region code %s: %w", b, err)
	}
	*r = NewRegionID(n.String())
	return nil
}

// Severity is the feed's danger level (stupenNebezpeci). Higher is worse.
type Severity int

const (
	SeverityUnknown  Severity = 0
	SeverityMinor    Severity = 1
	SeverityModerate Severity = 2
	SeveritySevere   Severity = 3
	SeverityExtreme  Severity = 4
)

var severityNames = map[string]Severity{
	"minor":    SeverityMinor,
	"moderate": SeverityModerate,
	"severe":   SeveritySevere,
	"extreme":  SeverityExtreme,
}

func (s Severity) String() string {
	for name, v := range severityNames {
		if v == s {
			return name
		}
	}
	if s == SeverityUnknown {
		return "unknown"
	}
	return strconv.Itoa(int(s))
}

// MarshalText encodes the level by name, so JSON output reads "severe" rather than 3.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalJSON accepts integers, numeric strings and CAP severity names.
// Unrecognized names decode to SeverityUnknown.
func (s *Severity) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*s = SeverityUnknown
		return nil
	}

	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		str = strings.ToLower(strings.TrimSpace(str))
		if v, ok := severityNames[str]; ok {
			*s = v
			return nil
		}
		if n, err := strconv.Atoi(str); err == nil {
			*s = Severity(n)
			return nil
		}
		*s = SeverityUnknown
		return nil
	}

	var n int
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("invalid severity %s: %w", b, err)
	}
	*s = Severity(n)
	return nil
}

// Alert is one weather warning scoped to one or more regions. Immutable once parsed.
type Alert struct {
	RegionCodes []RegionID `json:"regionCodes"`
	Event       string     `json:"event"`
	Description string     `json:"description"`
	Severity    Severity   `json:"severity"`
	Start       time.Time  `json:"start"`
	End         *time.Time `json:"end,omitempty"` // nil when the warning has no expiry

	// SeverityLabel is stupenNebezpeci exactly as the feed sent it.
	SeverityLabel string `json:"severityLabel,omitempty"`
}

// Covers reports whether the alert applies to the region (exact membership).
func (a Alert) Covers(id RegionID) bool {
	return slices.Contains(a.RegionCodes, id)
}

// Snapshot is one complete fetch result. Snapshots are shared between observers
// and must be treated as read-only.
type Snapshot struct {
	// Seq increases by one with every published snapshot. Ordering uses Seq,
	// never FetchedAt, since the wall clock may step backwards.
	Seq       uint64    `json:"seq"`
	FetchedAt time.Time `json:"fetchedAt"` // always UTC
	Alerts    []Alert   `json:"alerts"`
}

// Event is the display form of an alert, as exposed in region state attributes.
type Event struct {
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	Severity      Severity   `json:"severity"`
	SeverityLabel string     `json:"severityLabel,omitempty"`
	Start         time.Time  `json:"start"`
	End           *time.Time `json:"end"`
}

// RegionAttributes carries the per-region event list.
type RegionAttributes struct {
	Events []Event `json:"events"`
}

// RegionState is what a region reports to its display surface.
// State is the number of active alerts for the region.
type RegionState struct {
	RegionID   RegionID         `json:"regionId"`
	Name       string           `json:"name"`
	State      int              `json:"state"`
	Attributes RegionAttributes `json:"attributes"`
	FetchedAt  time.Time        `json:"fetchedAt"`
}
