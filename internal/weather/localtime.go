package weather

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"time"
)

// Epoch-second bounds of years 0001 through 9999 in UTC.
const (
	minEpochSeconds = -62135596800
	maxEpochSeconds = 253402300799
)

var (
	errNotNumeric  = errors.New("not a numeric epoch value")
	errOutOfRange  = errors.New("epoch value out of range")
	errNotFiniteTS = errors.New("epoch value is not finite")
	errQuotedEpoch = errors.New("epoch value is a string, not a number")
)

// FormatLocalObsTime converts a raw obsTime value into the local display string.
// A missing, null or "" value yields LocalTimeNotProvided with a nil error.
// Any other non-number, quoted digits included, yields LocalTimeUnknown and a
// *TimestampError.
func FormatLocalObsTime(raw json.RawMessage, loc *time.Location) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return LocalTimeNotProvided, nil
	}
	if loc == nil {
		loc = time.UTC
	}

	if raw[0] == '"' {
		if bytes.Equal(raw, []byte(`""`)) {
			return LocalTimeNotProvided, nil
		}
		return LocalTimeUnknown, &TimestampError{Value: string(raw), Err: errQuotedEpoch}
	}

	ts, err := parseEpochSeconds(string(raw))
	if err != nil {
		return LocalTimeUnknown, &TimestampError{Value: string(raw), Err: err}
	}
	return ts.In(loc).Format(LocalTimeLayout), nil
}

func parseEpochSeconds(s string) (time.Time, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return time.Time{}, errNotNumeric
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return time.Time{}, errNotFiniteTS
	}
	if f < minEpochSeconds || f > maxEpochSeconds {
		return time.Time{}, errOutOfRange
	}

	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC(), nil
}
