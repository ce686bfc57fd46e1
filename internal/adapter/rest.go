package adapter

import (
	"strconv"
	"time"
)

// FormatTimestamp converts an internal second-precision Unix timestamp
// into the wire representation an adapter's declared TimestampUnit
// expects. Adapters call this from RestParams instead of each
// reimplementing the seconds/milliseconds/ISO-8601 conversion.
func FormatTimestamp(unit TimestampUnit, seconds int64) string {
	switch unit {
	case UnitMilliseconds:
		return strconv.FormatInt(seconds*1000, 10)
	case UnitISO8601:
		return time.Unix(seconds, 0).UTC().Format(time.RFC3339)
	default:
		return strconv.FormatInt(seconds, 10)
	}
}
