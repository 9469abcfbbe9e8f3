package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-warnings/internal/store"
	"github.com/i474232898/weather-warnings/internal/warnings"
)

type fakeCache struct {
	snap       *warnings.Snapshot
	refreshErr error
	refreshes  int
}

func (f *fakeCache) Current() (warnings.Snapshot, bool) {
	if f.snap == nil {
		return warnings.Snapshot{}, false
	}
	return *f.snap, true
}

func (f *fakeCache) Status() warnings.Status {
	return warnings.Status{HasSnapshot: f.snap != nil}
}

func (f *fakeCache) CheckReadiness(context.Context) error {
	if f.snap == nil {
		return errors.New("no snapshot yet")
	}
	return nil
}

func (f *fakeCache) Refresh(context.Context) (warnings.Snapshot, error) {
	f.refreshes++
	if f.refreshErr != nil {
		return warnings.Snapshot{}, f.refreshErr
	}
	f.snap = &warnings.Snapshot{FetchedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	return *f.snap, nil
}

func newTestApp(cache Cache, states States) *fiber.App {
	app := NewApp("weather-warnings-test", false)
	RegisterRoutes(app, cache, states)
	return app
}

func do(t *testing.T, app *fiber.App, method, target string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(method, target, nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var body map[string]any
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &body))
	}
	return resp, body
}

func TestHealth(t *testing.T) {
	app := newTestApp(&fakeCache{}, store.NewStateStore())
	resp, body := do(t, app, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestReadyz(t *testing.T) {
	cache := &fakeCache{}
	app := newTestApp(cache, store.NewStateStore())

	resp, body := do(t, app, http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "not ready", body["status"])

	cache.snap = &warnings.Snapshot{}
	resp, body = do(t, app, http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ready", body["status"])
}

func TestSnapshot(t *testing.T) {
	cache := &fakeCache{}
	app := newTestApp(cache, store.NewStateStore())

	resp, body := do(t, app, http.MethodGet, "/api/v1/snapshot")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, true, body["error"])

	cache.snap = &warnings.Snapshot{Alerts: []warnings.Alert{{Event: "Fog"}}}
	resp, body = do(t, app, http.MethodGet, "/api/v1/snapshot")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["alerts"], 1)
}

func TestRegions(t *testing.T) {
	states := store.NewStateStore()
	states.Report(warnings.RegionState{
		RegionID:   "2102",
		State:      1,
		Attributes: warnings.RegionAttributes{Events: []warnings.Event{{Name: "Fog"}}},
	})
	states.Report(warnings.RegionState{RegionID: "3000"})
	app := newTestApp(&fakeCache{}, states)

	resp, body := do(t, app, http.MethodGet, "/api/v1/regions")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["regions"], 2)

	resp, body = do(t, app, http.MethodGet, "/api/v1/regions/2102")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "2102", body["regionId"])
	assert.EqualValues(t, 1, body["state"])
	attrs, ok := body["attributes"].(map[string]any)
	require.True(t, ok)
	assert.Len(t, attrs["events"], 1)

	resp, _ = do(t, app, http.MethodGet, "/api/v1/regions/210")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRegions_InvalidID(t *testing.T) {
	app := newTestApp(&fakeCache{}, store.NewStateStore())
	resp, _ := do(t, app, http.MethodGet, "/api/v1/regions/"+strings.Repeat("9", 40))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRefresh(t *testing.T) {
	cache := &fakeCache{}
	app := newTestApp(cache, store.NewStateStore())

	resp, body := do(t, app, http.MethodPost, "/api/v1/refresh")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 0, body["alerts"])
	assert.Equal(t, 1, cache.refreshes)

	cache.refreshErr = &warnings.FetchError{Kind: warnings.KindStatus, Err: errors.New("503")}
	resp, _ = do(t, app, http.MethodPost, "/api/v1/refresh")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	cache.refreshErr = &warnings.FetchError{Kind: warnings.KindTimeout, Err: context.DeadlineExceeded}
	resp, _ = do(t, app, http.MethodPost, "/api/v1/refresh")
	assert.Equal(t, http.StatusGatewayTimeout, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	app := newTestApp(&fakeCache{}, store.NewStateStore())
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "go_goroutines")
}
