package channel

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// The broadcast layer always writes canonical strings, but older snapshot
// producers delivered timestamps in three other shapes. All four normalize
// to one RFC3339Nano UTC string at this boundary; nothing past it sees the
// vendor forms again.

type secondsObject struct {
	Seconds     *int64 `json:"seconds"`
	Nanoseconds int64  `json:"nanoseconds"`
}

type underscoreSecondsObject struct {
	Seconds     *int64 `json:"_seconds"`
	Nanoseconds int64  `json:"_nanoseconds"`
}

// NormalizeTimestamp accepts an RFC3339 string, an epoch number
// (seconds or milliseconds), or a {seconds,nanoseconds} object in either
// spelling, and renders the canonical form.
func NormalizeTimestamp(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", fmt.Errorf("empty timestamp")
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return "", fmt.Errorf("timestamp string %q: %w", s, err)
		}
		return canonical(t), nil
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return canonical(epochToTime(n)), nil
	}

	var obj secondsObject
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Seconds != nil {
		return canonical(time.Unix(*obj.Seconds, obj.Nanoseconds)), nil
	}

	var uobj underscoreSecondsObject
	if err := json.Unmarshal(raw, &uobj); err == nil && uobj.Seconds != nil {
		return canonical(time.Unix(*uobj.Seconds, uobj.Nanoseconds)), nil
	}

	return "", fmt.Errorf("unrecognized timestamp shape %s", string(raw))
}

// epochToTime treats values past 1e12 as milliseconds, otherwise seconds.
func epochToTime(n float64) time.Time {
	if n > 1e12 {
		sec, frac := math.Modf(n / 1000)
		return time.Unix(int64(sec), int64(frac*1e9))
	}
	sec, frac := math.Modf(n)
	return time.Unix(int64(sec), int64(frac*1e9))
}

func canonical(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseCanonical reads back a canonical string; used for ordering.
func parseCanonical(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
