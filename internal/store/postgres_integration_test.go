//go:build integration

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/i474232898/metar-service/internal/weather"
)

const insertObservationSQL = `
INSERT INTO metar_reports (station_id, observation_time, raw_text, temperature_c, wind_dir_degrees, cloud_cover)
VALUES ($1, $2, $3, $4, $5, $6)`

func startPostgres(t *testing.T) Config {
	t.Helper()
	ctx := context.Background()

	req := tc.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "postgres",
			"POSTGRES_PASSWORD": "postgres",
			"POSTGRES_DB":       "historic_METAR",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate postgres: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)
	portNum, err := strconv.Atoi(port.Port())
	require.NoError(t, err)

	return Config{
		Driver:       DriverPostgres,
		Host:         host,
		Port:         portNum,
		Name:         "historic_METAR",
		User:         "postgres",
		Password:     "postgres",
		SSLMode:      "disable",
		MaxOpenConns: 2,
		MaxIdleConns: 1,
	}
}

func seedObservations(t *testing.T, db *sql.DB, station string, from time.Time, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		ts := from.Add(time.Duration(i) * time.Hour)
		var temp any
		if i%2 == 0 {
			temp = float64(i)
		}
		_, err := db.Exec(insertObservationSQL, station, ts, fmt.Sprintf("%s %s AUTO", station, ts.Format("021504Z")), temp, 270, "FEW")
		require.NoError(t, err)
	}
}

func TestPostgresStoreIntegration(t *testing.T) {
	cfg := startPostgres(t)
	require.NoError(t, Migrate(cfg))
	// A second run is a no-op.
	require.NoError(t, Migrate(cfg))

	db, err := Open(cfg)
	require.NoError(t, err)
	defer db.Close()

	s := NewPostgresStore(db)
	ctx := context.Background()
	require.NoError(t, s.Ping(ctx))

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	seedObservations(t, db, "KSFO", base, 24*6)
	seedObservations(t, db, "KOAK", base, 5)

	t.Run("summaries are capped and newest first", func(t *testing.T) {
		rows, err := s.RecentSummaries(ctx, "KSFO", weather.SummaryLimit)
		require.NoError(t, err)
		require.Len(t, rows, weather.SummaryLimit)
		assert.True(t, rows[0].ObservationTime.Equal(base.Add(time.Duration(24*6-1)*time.Hour)))
		for i := 1; i < len(rows); i++ {
			assert.False(t, rows[i].ObservationTime.After(rows[i-1].ObservationTime.Time))
		}
	})

	t.Run("raw reports stay within the date range", func(t *testing.T) {
		rows, err := s.RawReports(ctx, "KSFO", weather.DateRange{Start: "2024-01-02", End: "2024-01-03"}, weather.RawLimit)
		require.NoError(t, err)
		require.Len(t, rows, 48)
		for _, r := range rows {
			day := r.ObservationTime.UTC().Format(weather.DateLayout)
			assert.GreaterOrEqual(t, day, "2024-01-02")
			assert.LessOrEqual(t, day, "2024-01-03")
		}
	})

	t.Run("raw reports are capped", func(t *testing.T) {
		rows, err := s.RawReports(ctx, "KSFO", weather.DateRange{Start: "2024-01-01", End: "2024-01-31"}, weather.RawLimit)
		require.NoError(t, err)
		assert.Len(t, rows, weather.RawLimit)
	})

	t.Run("missing bounds match nothing", func(t *testing.T) {
		rows, err := s.RawReports(ctx, "KSFO", weather.DateRange{}, weather.RawLimit)
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("invalid date is a store error", func(t *testing.T) {
		_, err := s.RawReports(ctx, "KSFO", weather.DateRange{Start: "not-a-date", End: "2024-01-03"}, weather.RawLimit)
		assert.Error(t, err)
		assert.Zero(t, db.Stats().InUse)
	})
}
