package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/metar-service/internal/metrics"
	"github.com/i474232898/metar-service/internal/scheduler"
	"github.com/i474232898/metar-service/internal/store"
	"github.com/i474232898/metar-service/internal/weather"
	"github.com/i474232898/metar-service/internal/weather/providers"
)

type failingStore struct{}

func (failingStore) RecentSummaries(context.Context, string, int) ([]weather.HistoricalSummary, error) {
	return nil, &weather.StoreError{Op: weather.QuerySummaries, Err: errors.New("password authentication failed for user \"postgres\"")}
}

func (failingStore) RawReports(context.Context, string, weather.DateRange, int) ([]weather.RawHistoricalRecord, error) {
	return nil, errors.New("dial tcp 127.0.0.1:5432: connect: connection refused")
}

type staticStatus string

func (s staticStatus) StoreStatus() string { return string(s) }

type testEnv struct {
	app          *fiber.App
	recorder     *metrics.Recorder
	upstreamHits []string
}

func newTestEnv(t *testing.T, upstream http.HandlerFunc, st weather.Store) *testEnv {
	t.Helper()
	env := &testEnv{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env.upstreamHits = append(env.upstreamHits, r.URL.Query().Get("ids"))
		if upstream == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		upstream(w, r)
	}))
	t.Cleanup(srv.Close)

	loc, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	env.recorder = metrics.NewRecorder()
	provider := providers.NewAviationWeatherProvider(srv.URL, providers.DefaultHTTPClientConfig(time.Second))
	svc := weather.NewService(provider, st, loc, logger, env.recorder)

	env.app = NewApp(AppOptions{CORSAllowOrigins: "*"})
	RegisterOps(env.app, staticStatus(scheduler.StatusUp), env.recorder.Handler())
	RegisterRoutes(env.app, svc, logger)
	return env
}

func (e *testEnv) get(t *testing.T, target string) (int, []byte) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

func seededStore(t *testing.T) *store.MemoryStore {
	t.Helper()
	s := store.NewMemoryStore()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 24*5; i++ {
		ts := base.Add(time.Duration(i) * time.Hour)
		temp := float64(i % 30)
		s.Save(weather.Observation{
			Station:      "KSFO",
			Time:         ts,
			RawText:      "KSFO " + ts.Format("021504Z") + " 28010KT 10SM FEW200",
			TemperatureC: &temp,
		})
	}
	return s
}

func TestLiveStationEndToEnd(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"icaoId":"KSFO","obsTime":1700000000,"rawOb":"KSFO 142156Z 29012KT 10SM FEW008 16/11 A3003","temp":16}]`))
	}, store.NewMemoryStore())

	status, body := env.get(t, "/metar?station=ksfo")
	require.Equal(t, http.StatusOK, status, string(body))

	var reports []map[string]any
	require.NoError(t, json.Unmarshal(body, &reports))
	require.Len(t, reports, 1)
	assert.Equal(t, "KSFO", reports[0]["icaoId"])
	assert.Equal(t, float64(1700000000), reports[0]["obsTime"])
	assert.Equal(t, "KSFO 142156Z 29012KT 10SM FEW008 16/11 A3003", reports[0]["rawOb"])
	assert.Equal(t, float64(16), reports[0]["temp"])
	assert.Equal(t, "2023-11-14 02:13 PM PST", reports[0]["localObsTime"])

	assert.Equal(t, []string{"KSFO"}, env.upstreamHits)
}

func TestLiveStationMixedTimestamps(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"icaoId":"KSFO"},{"icaoId":"KSFO","obsTime":"1700000000"},{"icaoId":"KSFO","obsTime":1700000000}]`))
	}, store.NewMemoryStore())

	status, body := env.get(t, "/metar?station=KSFO")
	require.Equal(t, http.StatusOK, status)

	var reports []map[string]any
	require.NoError(t, json.Unmarshal(body, &reports))
	require.Len(t, reports, 3)
	assert.Equal(t, weather.LocalTimeNotProvided, reports[0]["localObsTime"])
	assert.Equal(t, weather.LocalTimeUnknown, reports[1]["localObsTime"])
	assert.Equal(t, "1700000000", reports[1]["obsTime"])
	assert.Equal(t, "2023-11-14 02:13 PM PST", reports[2]["localObsTime"])
}

func TestLiveStationMissingStation(t *testing.T) {
	env := newTestEnv(t, nil, store.NewMemoryStore())

	for _, target := range []string{"/metar", "/metar?station=", "/metar?station=%20%20"} {
		status, body := env.get(t, target)
		assert.Equal(t, http.StatusBadRequest, status, target)
		assert.JSONEq(t, `{"error":"Missing station code"}`, string(body), target)
	}
	assert.Empty(t, env.upstreamHits)
}

func TestLiveStationUpstreamFailure(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}, store.NewMemoryStore())

	status, body := env.get(t, "/metar?station=KSFO")
	assert.Equal(t, http.StatusInternalServerError, status)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.Contains(t, payload["error"], "502")
}

func TestLiveStationNullReportIsUpstreamFailure(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"icaoId":"KSFO","obsTime":1700000000},null]`))
	}, store.NewMemoryStore())

	status, body := env.get(t, "/metar?station=KSFO")
	assert.Equal(t, http.StatusInternalServerError, status)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.Contains(t, payload["error"], weather.ErrReportNotObject.Error())
}

func TestLiveStationNoContent(t *testing.T) {
	env := newTestEnv(t, nil, store.NewMemoryStore())

	status, body := env.get(t, "/metar?station=ZZZZ")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(body))
}

func TestHistoryAggregateMissingICAO(t *testing.T) {
	env := newTestEnv(t, nil, failingStore{})

	status, body := env.get(t, "/metar-history")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(body))
}

func TestHistoryAggregate(t *testing.T) {
	env := newTestEnv(t, nil, seededStore(t))

	status, body := env.get(t, "/metar-history?icao=ksfo")
	require.Equal(t, http.StatusOK, status)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal(body, &rows))
	require.Len(t, rows, weather.SummaryLimit)
	assert.Equal(t, "2024-01-05T23:00:00+00:00", rows[0]["observation_time"])
	assert.Contains(t, rows[0], "cloud_base")
	assert.Nil(t, rows[0]["cloud_base"])

	prev := ""
	for i, r := range rows {
		ts := r["observation_time"].(string)
		if i > 0 {
			assert.LessOrEqual(t, ts, prev, "row %d out of order", i)
		}
		prev = ts
	}
}

func TestHistoryAggregateStoreFailure(t *testing.T) {
	env := newTestEnv(t, nil, failingStore{})

	status, body := env.get(t, "/metar-history?icao=KSFO")
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.JSONEq(t, `[]`, string(body))
	assert.NotContains(t, string(body), "password")
}

func TestHistoryRawMissingICAO(t *testing.T) {
	env := newTestEnv(t, nil, seededStore(t))

	status, body := env.get(t, "/historic-rawMETAR?startDateInput=2024-01-01&endDateInput=2024-01-02")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.JSONEq(t, `{"error":"Missing ICAO code"}`, string(body))
}

func TestHistoryRawDateRange(t *testing.T) {
	env := newTestEnv(t, nil, seededStore(t))

	status, body := env.get(t, "/historic-rawMETAR?icao=KSFO&startDateInput=2024-01-02&endDateInput=2024-01-03")
	require.Equal(t, http.StatusOK, status)

	var rows []weather.RawHistoricalRecord
	require.NoError(t, json.Unmarshal(body, &rows))
	require.Len(t, rows, 48)
	for _, r := range rows {
		day := r.ObservationTime.UTC().Format(weather.DateLayout)
		assert.True(t, day >= "2024-01-02" && day <= "2024-01-03", "record on %s outside range", day)
		assert.True(t, strings.HasPrefix(r.RawText, "KSFO "))
	}
}

func TestHistoryRawCapped(t *testing.T) {
	env := newTestEnv(t, nil, seededStore(t))

	status, body := env.get(t, "/historic-rawMETAR?icao=KSFO&startDateInput=2024-01-01&endDateInput=2024-12-31")
	require.Equal(t, http.StatusOK, status)

	var rows []weather.RawHistoricalRecord
	require.NoError(t, json.Unmarshal(body, &rows))
	assert.Len(t, rows, weather.RawLimit)
}

func TestHistoryRawStoreFailure(t *testing.T) {
	env := newTestEnv(t, nil, failingStore{})

	status, body := env.get(t, "/historic-rawMETAR?icao=KSFO&startDateInput=2024-01-01&endDateInput=2024-01-02")
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.JSONEq(t, `[]`, string(body))
}

func TestCORSHeaders(t *testing.T) {
	env := newTestEnv(t, nil, store.NewMemoryStore())

	req := httptest.NewRequest(http.MethodGet, "/metar-history", nil)
	req.Header.Set("Origin", "https://example.com")
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestUnknownRouteUsesErrorShape(t *testing.T) {
	env := newTestEnv(t, nil, store.NewMemoryStore())

	status, body := env.get(t, "/nope")
	assert.Equal(t, http.StatusNotFound, status)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.NotEmpty(t, payload["error"])
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"icaoId":"KSFO","obsTime":true}]`))
	}, store.NewMemoryStore())

	status, body := env.get(t, "/health")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok","service":"metar-service","store":"up"}`, string(body))

	status, _ = env.get(t, "/metar?station=KSFO")
	require.Equal(t, http.StatusOK, status)

	status, body = env.get(t, "/metrics")
	require.Equal(t, http.StatusOK, status)
	text := string(body)
	assert.Contains(t, text, `metar_upstream_requests_total{outcome="ok",provider="aviationweather"} 1`)
	assert.Contains(t, text, "metar_obstime_normalization_failures_total 1")
}

func TestHealthDegradedWhenStoreDown(t *testing.T) {
	app := NewApp(AppOptions{})
	RegisterOps(app, staticStatus(scheduler.StatusDown), nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var payload map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, "degraded", payload["status"])
	assert.Equal(t, scheduler.StatusDown, payload["store"])
}
