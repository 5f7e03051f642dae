package weather

import (
	"bytes"
	"encoding/json"
	"time"
)

const (
	// LocalTimeNotProvided is reported when a live report carries no observation instant.
	LocalTimeNotProvided = "Not provided"
	// LocalTimeUnknown is reported when the observation instant cannot be interpreted.
	LocalTimeUnknown = "Unknown"

	// LocalTimeLayout renders e.g. "2023-11-14 02:13 PM PST".
	LocalTimeLayout = "2006-01-02 03:04 PM MST"

	// TimestampLayout renders store instants with an explicit offset, e.g. "2023-11-14T22:13:20+00:00".
	TimestampLayout = "2006-01-02T15:04:05.999999-07:00"

	// DateLayout is the calendar-date format accepted for history ranges.
	DateLayout = "2006-01-02"
)

const (
	obsTimeField      = "obsTime"
	stationField      = "icaoId"
	localObsTimeField = "localObsTime"
)

// ObservationReport is one live METAR report as returned by the upstream provider.
// Only the observation instant is interpreted; every other field is kept verbatim.
type ObservationReport struct {
	Station      string
	ObsTime      json.RawMessage
	LocalObsTime string

	// Fields holds the complete upstream object, including obsTime.
	Fields map[string]json.RawMessage
}

func (r *ObservationReport) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return ErrReportNotObject
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	r.Fields = fields
	r.ObsTime = fields[obsTimeField]
	r.Station = ""
	if raw, ok := fields[stationField]; ok {
		// icaoId is informational; a non-string value is passed through untouched.
		_ = json.Unmarshal(raw, &r.Station)
	}
	return nil
}

func (r ObservationReport) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(r.Fields)+1)
	for k, v := range r.Fields {
		out[k] = v
	}
	local, err := json.Marshal(r.LocalObsTime)
	if err != nil {
		return nil, err
	}
	out[localObsTimeField] = local
	return json.Marshal(out)
}

// Timestamp is a store instant serialized with its UTC offset.
type Timestamp struct {
	time.Time
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time.Format(TimestampLayout))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := time.Parse(TimestampLayout, s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// HistoricalSummary is the numeric projection of a stored observation.
// All measurements are nullable in the store.
type HistoricalSummary struct {
	ObservationTime     Timestamp `json:"observation_time"`
	TemperatureC        *float64  `json:"temperature_c"`
	DewpointC           *float64  `json:"dewpoint_c"`
	WindDirDegrees      *int64    `json:"wind_dir_degrees"`
	WindSpeedKt         *int64    `json:"wind_speed_kt"`
	VisibilityStatuteMi *float64  `json:"visibility_statute_mi"`
	Elevation           *float64  `json:"elevation"`
	CloudCover          *string   `json:"cloud_cover"`
	CloudBase           *int64    `json:"cloud_base"`
}

// RawHistoricalRecord is the undecoded METAR text of a stored observation.
type RawHistoricalRecord struct {
	ObservationTime Timestamp `json:"observation_time"`
	RawText         string    `json:"raw_text"`
}

// Observation is a full row of the observation store.
type Observation struct {
	Station string
	Time    time.Time
	RawText string

	TemperatureC        *float64
	DewpointC           *float64
	WindDirDegrees      *int64
	WindSpeedKt         *int64
	VisibilityStatuteMi *float64
	Elevation           *float64
	CloudCover          *string
	CloudBase           *int64
}

// Summary projects the row onto its numeric fields.
func (o Observation) Summary() HistoricalSummary {
	return HistoricalSummary{
		ObservationTime:     Timestamp{o.Time.UTC()},
		TemperatureC:        o.TemperatureC,
		DewpointC:           o.DewpointC,
		WindDirDegrees:      o.WindDirDegrees,
		WindSpeedKt:         o.WindSpeedKt,
		VisibilityStatuteMi: o.VisibilityStatuteMi,
		Elevation:           o.Elevation,
		CloudCover:          o.CloudCover,
		CloudBase:           o.CloudBase,
	}
}

// Raw projects the row onto its report text.
func (o Observation) Raw() RawHistoricalRecord {
	return RawHistoricalRecord{
		ObservationTime: Timestamp{o.Time.UTC()},
		RawText:         o.RawText,
	}
}

// DateRange bounds a history query by calendar date, inclusive on both ends.
// Bounds are passed to the store as given; an empty bound matches nothing.
type DateRange struct {
	Start string
	End   string
}
