package warnings

import (
	"sync"
	"time"
)

// Summary is the read-only projection of a region for display.
type Summary struct {
	Count  int     `json:"count"`
	Alerts []Alert `json:"alerts"`
}

// RegionView derives the alerts of one region from each published snapshot.
// It has no network or timer activity of its own.
type RegionView struct {
	id       RegionID
	name     string
	reporter Reporter

	mu        sync.RWMutex
	alerts    []Alert
	seq       uint64
	fetchedAt time.Time
	sub       *Subscription
}

// NewRegionView creates a view for id. name is used for display and defaults
// to the region code. reporter may be nil.
func NewRegionView(id RegionID, name string, reporter Reporter) *RegionView {
	if name == "" {
		name = string(id)
	}
	return &RegionView{
		id:       id,
		name:     name,
		reporter: reporter,
		alerts:   []Alert{},
	}
}

func (v *RegionView) ID() RegionID {
	return v.id
}

func (v *RegionView) Name() string {
	return v.name
}

// Attach subscribes the view to cache and immediately derives from the
// current snapshot, if there is one. Without a snapshot it reports an empty state.
func (v *RegionView) Attach(cache *Cache) {
	sub := cache.Subscribe(v.OnSnapshotPublished)

	v.mu.Lock()
	v.sub = sub
	v.mu.Unlock()

	if snap, ok := cache.Current(); ok {
		v.OnSnapshotPublished(snap)
		return
	}
	v.report()
}

// Detach stops receiving snapshots.
func (v *RegionView) Detach() {
	v.mu.Lock()
	sub := v.sub
	v.sub = nil
	v.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
}

// OnSnapshotPublished replaces the derived alerts with those of snap that
// cover this region. Snapshots with a lower Seq than the one already applied
// are ignored.
func (v *RegionView) OnSnapshotPublished(snap Snapshot) {
	derived := FilterRegion(snap.Alerts, v.id)

	v.mu.Lock()
	if snap.Seq < v.seq {
		v.mu.Unlock()
		return
	}
	v.alerts = derived
	v.seq = snap.Seq
	v.fetchedAt = snap.FetchedAt
	v.mu.Unlock()

	v.report()
}

// Summary returns the current count and alerts.
func (v *RegionView) Summary() Summary {
	v.mu.RLock()
	defer v.mu.RUnlock()

	alerts := make([]Alert, len(v.alerts))
	copy(alerts, v.alerts)
	return Summary{Count: len(alerts), Alerts: alerts}
}

// State returns the observer output for the display surface.
func (v *RegionView) State() RegionState {
	v.mu.RLock()
	defer v.mu.RUnlock()

	events := make([]Event, 0, len(v.alerts))
	for _, a := range v.alerts {
		events = append(events, Event{
			Name:          a.Event,
			Description:   a.Description,
			Severity:      a.Severity,
			SeverityLabel: a.SeverityLabel,
			Start:         a.Start,
			End:           a.End,
		})
	}

	return RegionState{
		RegionID:   v.id,
		Name:       v.name,
		State:      len(events),
		Attributes: RegionAttributes{Events: events},
		FetchedAt:  v.fetchedAt,
	}
}

func (v *RegionView) report() {
	if v.reporter == nil {
		return
	}
	v.reporter.Report(v.State())
}

// FilterRegion returns, in feed order, the alerts whose region codes contain id.
func FilterRegion(alerts []Alert, id RegionID) []Alert {
	out := make([]Alert, 0)
	for _, a := range alerts {
		if a.Covers(id) {
			out = append(out, a)
		}
	}
	return out
}
