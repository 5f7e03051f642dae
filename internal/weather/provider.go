package weather

import (
	"context"
)

// Provider abstracts a live METAR source (e.g. aviationweather.gov).
type Provider interface {
	Name() string
	// FetchMETAR returns the provider's reports for station in provider order.
	// Failures are reported as *UpstreamError.
	FetchMETAR(ctx context.Context, station string) ([]ObservationReport, error)
}

// Store is the read contract of the persistent observation store.
// Results are ordered newest first and never exceed limit.
type Store interface {
	RecentSummaries(ctx context.Context, station string, limit int) ([]HistoricalSummary, error)
	RawReports(ctx context.Context, station string, dates DateRange, limit int) ([]RawHistoricalRecord, error)
}

// Observer receives outcome events for metrics.
type Observer interface {
	UpstreamRequest(provider, outcome string)
	StoreQuery(query, outcome string)
	NormalizationFailure()
}

type noopObserver struct{}

func (noopObserver) UpstreamRequest(string, string) {}
func (noopObserver) StoreQuery(string, string)      {}
func (noopObserver) NormalizationFailure()          {}
