package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/sony/gobreaker"

	"github.com/i474232898/metar-service/internal/weather"
)

// DefaultAviationWeatherURL is the public aviationweather.gov data API.
const DefaultAviationWeatherURL = "https://aviationweather.gov"

const metarPath = "/api/data/metar"

// AviationWeatherProvider implements weather.Provider for the aviationweather.gov METAR API.
type AviationWeatherProvider struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewAviationWeatherProvider(baseURL string, httpCfg HTTPClientConfig) *AviationWeatherProvider {
	if baseURL == "" {
		baseURL = DefaultAviationWeatherURL
	}
	name := "aviationweather"
	return &AviationWeatherProvider{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpCfg: httpCfg,
		circuit: newCircuitBreaker(name, httpCfg),
	}
}

func (p *AviationWeatherProvider) Name() string {
	return p.name
}

// FetchMETAR issues GET /api/data/metar?ids=<station>&format=json.
func (p *AviationWeatherProvider) FetchMETAR(ctx context.Context, station string) ([]weather.ObservationReport, error) {
	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("ids", station)
		values.Set("format", "json")

		u := fmt.Sprintf("%s%s?%s", p.baseURL, metarPath, values.Encode())
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	}

	resp, err := doRequest(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return nil, p.upstreamError(station, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return []weather.ObservationReport{}, nil
	}

	var reports []weather.ObservationReport
	if err := json.NewDecoder(resp.Body).Decode(&reports); err != nil {
		if errors.Is(err, io.EOF) {
			return []weather.ObservationReport{}, nil
		}
		return nil, p.upstreamError(station, fmt.Errorf("decode response: %w", err))
	}
	if reports == nil {
		reports = []weather.ObservationReport{}
	}
	return reports, nil
}

func (p *AviationWeatherProvider) upstreamError(station string, err error) *weather.UpstreamError {
	upErr := &weather.UpstreamError{
		Provider: p.name,
		Station:  station,
		Err:      err,
	}
	var se *statusError
	if errors.As(err, &se) {
		upErr.StatusCode = se.code
	}
	return upErr
}
