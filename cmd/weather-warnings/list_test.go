package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-warnings/internal/warnings"
)

func TestRenderRegion_ActiveAlert(t *testing.T) {
	start := time.Date(2025, 1, 10, 6, 0, 0, 0, time.UTC)
	state := warnings.RegionState{
		RegionID: "2102",
		Name:     "Praha",
		State:    1,
		Attributes: warnings.RegionAttributes{Events: []warnings.Event{{
			Name:        "Fog",
			Description: "Dense fog\nvisibility below 100 m",
			Severity:    warnings.SeverityModerate,
			Start:       start,
		}}},
	}

	out := renderRegion(state)
	assert.Contains(t, out, "Praha")
	assert.Contains(t, out, "2102, 1 active")
	assert.Contains(t, out, "Fog")
	assert.Contains(t, out, "2025-01-10 06:00 UTC")
	assert.Contains(t, out, "until further notice")
	assert.Contains(t, out, "visibility below 100 m")
}

func TestRenderRegion_NoAlerts(t *testing.T) {
	out := renderRegion(warnings.RegionState{RegionID: "3000", Name: "3000"})
	assert.Contains(t, out, "0 active")
	assert.NotContains(t, out, "3000, ")
	assert.Contains(t, out, "no active warnings")
}

func TestFormatPeriod(t *testing.T) {
	start := time.Date(2025, 1, 10, 6, 0, 0, 0, time.UTC)
	end := start.Add(6 * time.Hour)
	assert.Equal(t, "2025-01-10 06:00 UTC to 2025-01-10 12:00 UTC", formatPeriod(start, &end))
}

func TestRenderStates(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderStates(&buf, []warnings.RegionState{
		{RegionID: "2102", Name: "Praha"},
		{RegionID: "3000", Name: "3000"},
	}))
	assert.Contains(t, buf.String(), "Praha")
	assert.Contains(t, buf.String(), "3000")
}

func TestRootCommand(t *testing.T) {
	root := newRootCmd()
	names := make([]string, 0)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"serve", "list"})
	assert.NotNil(t, root.RunE, "serve is the default action")
}
