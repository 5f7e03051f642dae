package weather

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/i474232898/metar-service/internal/common"
)

const (
	// SummaryLimit caps HistoryAggregate results per station.
	SummaryLimit = 20
	// RawLimit caps HistoryRaw results per query.
	RawLimit = 100
)

// Query names reported to the Observer.
const (
	QuerySummaries = "recent_summaries"
	QueryRaw       = "raw_reports"
)

// Service answers live and historical METAR queries.
// It holds no per-request state and is safe for concurrent use.
type Service struct {
	provider Provider
	store    Store
	location *time.Location
	logger   *slog.Logger
	observer Observer
}

// NewService creates a new Service. A nil location defaults to UTC, a nil
// logger to slog.Default and a nil observer discards events.
func NewService(provider Provider, store Store, location *time.Location, logger *slog.Logger, observer Observer) *Service {
	if location == nil {
		location = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	if observer == nil {
		observer = noopObserver{}
	}
	return &Service{
		provider: provider,
		store:    store,
		location: location,
		logger:   logger,
		observer: observer,
	}
}

// Location returns the zone used for localObsTime.
func (s *Service) Location() *time.Location {
	return s.location
}

// LiveStation fetches the current reports for station and adds the local
// observation time to each of them.
func (s *Service) LiveStation(ctx context.Context, station string) ([]ObservationReport, error) {
	station = common.NormalizeStation(station)
	if station == "" {
		return nil, &ValidationError{Param: "station", Message: "Missing station code"}
	}

	reports, err := s.provider.FetchMETAR(ctx, station)
	if err != nil {
		s.observer.UpstreamRequest(s.provider.Name(), "error")
		var upErr *UpstreamError
		if !errors.As(err, &upErr) {
			err = &UpstreamError{Provider: s.provider.Name(), Station: station, Err: err}
		}
		return nil, err
	}
	s.observer.UpstreamRequest(s.provider.Name(), "ok")

	for i := range reports {
		local, err := FormatLocalObsTime(reports[i].ObsTime, s.location)
		if err != nil {
			s.observer.NormalizationFailure()
			s.logger.Warn("obsTime normalization failed",
				"station", station,
				"report", i,
				"error", err,
			)
		}
		reports[i].LocalObsTime = local
	}

	return common.EmptyIfNil(reports), nil
}

// HistoryAggregate returns the most recent stored summaries for station.
// A missing station yields an empty result without touching the store.
func (s *Service) HistoryAggregate(ctx context.Context, station string) ([]HistoricalSummary, error) {
	station = common.NormalizeStation(station)
	if station == "" {
		return []HistoricalSummary{}, nil
	}

	rows, err := s.store.RecentSummaries(ctx, station, SummaryLimit)
	if err != nil {
		s.observer.StoreQuery(QuerySummaries, "error")
		return nil, asStoreError(QuerySummaries, err)
	}
	s.observer.StoreQuery(QuerySummaries, "ok")

	if len(rows) > SummaryLimit {
		rows = rows[:SummaryLimit]
	}
	return common.EmptyIfNil(rows), nil
}

// HistoryRaw returns stored raw report text for station within dates.
func (s *Service) HistoryRaw(ctx context.Context, station string, dates DateRange) ([]RawHistoricalRecord, error) {
	station = common.NormalizeStation(station)
	if station == "" {
		return nil, &ValidationError{Param: "icao", Message: "Missing ICAO code"}
	}

	rows, err := s.store.RawReports(ctx, station, dates, RawLimit)
	if err != nil {
		s.observer.StoreQuery(QueryRaw, "error")
		return nil, asStoreError(QueryRaw, err)
	}
	s.observer.StoreQuery(QueryRaw, "ok")

	if len(rows) > RawLimit {
		rows = rows[:RawLimit]
	}
	return common.EmptyIfNil(rows), nil
}

func asStoreError(op string, err error) error {
	var storeErr *StoreError
	if errors.As(err, &storeErr) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}
