package warnings_test

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-warnings/internal/warnings"
)

type recordingReporter struct {
	states []warnings.RegionState
}

func (r *recordingReporter) Report(state warnings.RegionState) {
	r.states = append(r.states, state)
}

func (r *recordingReporter) last() warnings.RegionState {
	return r.states[len(r.states)-1]
}

func snapshotOf(alerts ...warnings.Alert) warnings.Snapshot {
	return warnings.Snapshot{FetchedAt: time.Now().UTC(), Alerts: alerts}
}

func TestRegionView_ExactMembership(t *testing.T) {
	alert := warnings.Alert{
		RegionCodes: []warnings.RegionID{"2102", "2103"},
		Event:       "Storm",
		Start:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	snap := snapshotOf(alert)

	prefix := warnings.NewRegionView("210", "", nil)
	prefix.OnSnapshotPublished(snap)
	assert.Equal(t, 0, prefix.Summary().Count)

	suffix := warnings.NewRegionView("103", "", nil)
	suffix.OnSnapshotPublished(snap)
	assert.Equal(t, 0, suffix.Summary().Count)

	exact := warnings.NewRegionView("2102", "", nil)
	exact.OnSnapshotPublished(snap)
	summary := exact.Summary()
	assert.Equal(t, 1, summary.Count)
	assert.Equal(t, []warnings.Alert{alert}, summary.Alerts)
}

func TestRegionView_ReplacesWholesale(t *testing.T) {
	rep := &recordingReporter{}
	v := warnings.NewRegionView("1", "Home", rep)

	a := warnings.Alert{RegionCodes: []warnings.RegionID{"1"}, Event: "A"}
	b := warnings.Alert{RegionCodes: []warnings.RegionID{"1"}, Event: "B"}
	other := warnings.Alert{RegionCodes: []warnings.RegionID{"2"}, Event: "Other"}

	v.OnSnapshotPublished(snapshotOf(a, other, b))
	summary := v.Summary()
	assert.Equal(t, 2, summary.Count)
	assert.Equal(t, "A", summary.Alerts[0].Event)
	assert.Equal(t, "B", summary.Alerts[1].Event)

	v.OnSnapshotPublished(snapshotOf(b))
	summary = v.Summary()
	assert.Equal(t, 1, summary.Count)
	assert.Equal(t, "B", summary.Alerts[0].Event)

	v.OnSnapshotPublished(snapshotOf())
	assert.Equal(t, 0, v.Summary().Count)
	assert.NotNil(t, v.Summary().Alerts)

	require.Len(t, rep.states, 3)
	assert.Equal(t, "Home", rep.last().Name)
	assert.Equal(t, 0, rep.last().State)
}

func TestRegionView_IgnoresOlderSnapshot(t *testing.T) {
	v := warnings.NewRegionView("1", "", nil)
	now := time.Now().UTC()

	v.OnSnapshotPublished(warnings.Snapshot{Seq: 2, FetchedAt: now})
	v.OnSnapshotPublished(warnings.Snapshot{
		Seq:       1,
		FetchedAt: now.Add(time.Minute),
		Alerts:    []warnings.Alert{{RegionCodes: []warnings.RegionID{"1"}}},
	})
	assert.Equal(t, 0, v.Summary().Count)
}

func TestRegionView_FollowsCacheWhenClockStepsBack(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC))
	f := &fakeFetcher{}
	f.set(fogFeed, nil)
	c := newTestCache(t, f, warnings.WithClock(clock))

	v := warnings.NewRegionView("2102", "", nil)
	v.Attach(c)

	first, err := c.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, v.Summary().Count)

	clock.Advance(-5 * time.Minute)
	f.set(`{"vystrahy":[]}`, nil)
	second, err := c.Refresh(context.Background())
	require.NoError(t, err)

	assert.True(t, second.FetchedAt.Before(first.FetchedAt))
	assert.Greater(t, second.Seq, first.Seq)
	assert.Equal(t, 0, v.Summary().Count, "view must follow the latest snapshot")
	assert.Equal(t, second.FetchedAt, v.State().FetchedAt)
}

func TestRegionView_SummaryIsACopy(t *testing.T) {
	v := warnings.NewRegionView("1", "", nil)
	v.OnSnapshotPublished(snapshotOf(warnings.Alert{RegionCodes: []warnings.RegionID{"1"}, Event: "A"}))

	s := v.Summary()
	s.Alerts[0].Event = "mutated"
	assert.Equal(t, "A", v.Summary().Alerts[0].Event)
}

func TestRegionView_EndToEnd(t *testing.T) {
	f := &fakeFetcher{}
	f.set(fogFeed, nil)
	c := newTestCache(t, f)

	repFog := &recordingReporter{}
	fog := warnings.NewRegionView("2102", "", repFog)
	fog.Attach(c)
	quiet := warnings.NewRegionView("3000", "", nil)
	quiet.Attach(c)

	// Attached before any snapshot: an empty state is reported.
	require.Len(t, repFog.states, 1)
	assert.Equal(t, 0, repFog.last().State)

	_, err := c.Refresh(context.Background())
	require.NoError(t, err)

	summary := fog.Summary()
	require.Equal(t, 1, summary.Count)
	assert.Equal(t, "Fog", summary.Alerts[0].Event)
	assert.Nil(t, summary.Alerts[0].End)
	assert.Equal(t, 0, quiet.Summary().Count)

	state := repFog.last()
	assert.Equal(t, warnings.RegionID("2102"), state.RegionID)
	assert.Equal(t, "2102", state.Name)
	assert.Equal(t, 1, state.State)
	require.Len(t, state.Attributes.Events, 1)
	assert.Equal(t, "Fog", state.Attributes.Events[0].Name)
	assert.Equal(t, warnings.SeverityMinor, state.Attributes.Events[0].Severity)
	assert.Nil(t, state.Attributes.Events[0].End)

	// A failed refresh leaves the derived state untouched.
	f.set("", assert.AnError)
	_, err = c.Refresh(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, fog.Summary().Count)
	assert.Len(t, repFog.states, 2)

	// Detached views stop following the cache.
	fog.Detach()
	f.set(`{"vystrahy":[]}`, nil)
	_, err = c.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, fog.Summary().Count)
	assert.Equal(t, 0, quiet.Summary().Count)
}

func TestRegionView_AttachPullsCurrentSnapshot(t *testing.T) {
	f := &fakeFetcher{}
	f.set(fogFeed, nil)
	c := newTestCache(t, f)

	_, err := c.Refresh(context.Background())
	require.NoError(t, err)

	late := warnings.NewRegionView("2102", "", nil)
	late.Attach(c)
	assert.Equal(t, 1, late.Summary().Count)
}

func TestReporters_FanOut(t *testing.T) {
	a, b := &recordingReporter{}, &recordingReporter{}
	var fn int
	reps := warnings.Reporters{a, b, warnings.ReporterFunc(func(warnings.RegionState) { fn++ })}

	reps.Report(warnings.RegionState{RegionID: "1"})
	assert.Len(t, a.states, 1)
	assert.Len(t, b.states, 1)
	assert.Equal(t, 1, fn)
}
