package warnings

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // Europe/Prague must resolve on hosts without a zoneinfo database
)

// feedDocument is the top level of the ČHMÚ ORP detail feed.
type feedDocument struct {
	Alerts *[]json.RawMessage `json:"vystrahy"`
}

type feedRecord struct {
	RegionCodes *[]RegionID     `json:"csuOrpKod"`
	Event       *string         `json:"event"`
	Description string          `json:"description"`
	Severity    json.RawMessage `json:"stupenNebezpeci"`
	Onset       *string         `json:"onset"`
	Expires     *string         `json:"expires"`
}

// feedLocation is the zone of timestamps that carry no offset. ČHMÚ publishes
// Czech local time.
var feedLocation = loadFeedLocation()

func loadFeedLocation() *time.Location {
	loc, err := time.LoadLocation("Europe/Prague")
	if err != nil {
		return time.UTC
	}
	return loc
}

// timestampLayouts are tried in order; layouts without a zone are read in feedLocation.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
}

// ParseFeed decodes a feed document. A malformed document fails as a whole
// (wrapping ErrParse); a malformed individual record is skipped and reported
// in skipped so the remaining alerts are still published. Timestamps without
// an offset are Europe/Prague local time.
func ParseFeed(data []byte) (alerts []Alert, skipped []error, err error) {
	var doc feedDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if doc.Alerts == nil {
		return nil, nil, fmt.Errorf("%w: missing %q", ErrParse, "vystrahy")
	}

	alerts = make([]Alert, 0, len(*doc.Alerts))
	for i, raw := range *doc.Alerts {
		alert, err := parseRecord(raw)
		if err != nil {
			skipped = append(skipped, fmt.Errorf("record %d: %w", i, err))
			continue
		}
		alerts = append(alerts, alert)
	}
	return alerts, skipped, nil
}

func parseRecord(raw json.RawMessage) (Alert, error) {
	var rec feedRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Alert{}, err
	}

	switch {
	case rec.RegionCodes == nil:
		return Alert{}, errors.New("missing csuOrpKod")
	case rec.Event == nil:
		return Alert{}, errors.New("missing event")
	case rec.Onset == nil:
		return Alert{}, errors.New("missing onset")
	}

	severity, label, err := parseSeverity(rec.Severity)
	if err != nil {
		return Alert{}, fmt.Errorf("stupenNebezpeci: %w", err)
	}

	start, err := parseTimestamp(*rec.Onset)
	if err != nil {
		return Alert{}, fmt.Errorf("onset: %w", err)
	}

	var end *time.Time
	if rec.Expires != nil && strings.TrimSpace(*rec.Expires) != "" {
		ts, err := parseTimestamp(*rec.Expires)
		if err != nil {
			return Alert{}, fmt.Errorf("expires: %w", err)
		}
		end = &ts
	}

	return Alert{
		RegionCodes: dedupe(*rec.RegionCodes),
		Event:       *rec.Event,
		Description: rec.Description,
		Severity:    severity,
		Start:       start,
		End:         end,

		SeverityLabel: label,
	}, nil
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if ts, err := time.ParseInLocation(layout, s, feedLocation); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// parseSeverity normalizes the level and keeps the feed's own text for display.
func parseSeverity(raw json.RawMessage) (Severity, string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return SeverityUnknown, "", nil
	}

	var sev Severity
	if err := json.Unmarshal(raw, &sev); err != nil {
		return SeverityUnknown, "", err
	}

	var label string
	if err := json.Unmarshal(raw, &label); err != nil {
		label = string(raw)
	}
	return sev, strings.TrimSpace(label), nil
}

func dedupe(ids []RegionID) []RegionID {
	seen := make(map[RegionID]struct{}, len(ids))
	out := make([]RegionID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
