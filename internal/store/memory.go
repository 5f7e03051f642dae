package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/i474232898/metar-service/internal/weather"
)

// MemoryStore is a concurrency-safe in-memory implementation of weather.Store.
// It mirrors the bounded queries of PostgresStore and is used in dev mode and tests.
type MemoryStore struct {
	mu sync.RWMutex

	// key: station code, value: observations ordered newest first
	data map[string][]weather.Observation
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string][]weather.Observation),
	}
}

// Save inserts or replaces the observation keyed by station and instant.
func (s *MemoryStore) Save(obs weather.Observation) {
	obs.Time = obs.Time.UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.data[obs.Station]
	for i := range history {
		if history[i].Time.Equal(obs.Time) {
			history[i] = obs
			return
		}
	}

	history = append(history, obs)
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].Time.After(history[j].Time)
	})
	s.data[obs.Station] = history
}

// RecentSummaries returns up to limit summaries for station, newest first.
func (s *MemoryStore) RecentSummaries(ctx context.Context, station string, limit int) ([]weather.HistoricalSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []weather.HistoricalSummary{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.data[station]
	out := make([]weather.HistoricalSummary, 0, min(len(history), limit))
	for _, obs := range history {
		if len(out) >= limit {
			break
		}
		out = append(out, obs.Summary())
	}
	return out, nil
}

// RawReports returns up to limit raw records for station whose UTC calendar
// date lies within dates, newest first. An empty bound matches nothing.
func (s *MemoryStore) RawReports(ctx context.Context, station string, dates weather.DateRange, limit int) ([]weather.RawHistoricalRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if dates.Start == "" || dates.End == "" {
		return []weather.RawHistoricalRecord{}, nil
	}

	start, err := time.Parse(weather.DateLayout, dates.Start)
	if err != nil {
		return nil, fmt.Errorf("invalid start date %q: %w", dates.Start, err)
	}
	end, err := time.Parse(weather.DateLayout, dates.End)
	if err != nil {
		return nil, fmt.Errorf("invalid end date %q: %w", dates.End, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]weather.RawHistoricalRecord, 0)
	for _, obs := range s.data[station] {
		if len(out) >= limit {
			break
		}
		day := truncateToDate(obs.Time)
		if day.Before(start) || day.After(end) {
			continue
		}
		out = append(out, obs.Raw())
	}
	return out, nil
}

func truncateToDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Ping succeeds unless ctx is done.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}
