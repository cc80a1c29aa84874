package booking

import (
	"fmt"
	"time"
)

// Interval is a half-open time range [Start, End) expressed in minutes
// since the Unix epoch.  Minute granularity matches how the store
// rents seats; sub-minute precision buys nothing and complicates the
// overlap math.
type Interval struct {
	Start int64 `json:"start_min"` // inclusive, minutes since epoch
	End   int64 `json:"end_min"`   // exclusive, minutes since epoch
}

// NewInterval builds an interval from two wall-clock instants,
// truncating both to the minute.
func NewInterval(start, end time.Time) Interval {
	return Interval{
		Start: start.UTC().Unix() / 60,
		End:   end.UTC().Unix() / 60,
	}
}

// StartTime returns the interval start as a wall-clock instant in UTC.
func (iv Interval) StartTime() time.Time { return time.Unix(iv.Start*60, 0).UTC() }

// EndTime returns the interval end as a wall-clock instant in UTC.
func (iv Interval) EndTime() time.Time { return time.Unix(iv.End*60, 0).UTC() }

// Duration returns the interval length.
func (iv Interval) Duration() time.Duration {
	return time.Duration(iv.End-iv.Start) * time.Minute
}

// Minutes returns the interval length in whole minutes.
func (iv Interval) Minutes() int64 { return iv.End - iv.Start }

// Overlaps reports whether two half-open intervals share any minute.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start < other.End && other.Start < iv.End
}

// Valid reports whether the interval is well formed (end after start).
func (iv Interval) Valid() bool { return iv.End > iv.Start }

func (iv Interval) String() string {
	return fmt.Sprintf("[%s, %s)", iv.StartTime().Format(time.RFC3339), iv.EndTime().Format(time.RFC3339))
}

// CheckBounds validates the interval against the configured duration
// limits.  It returns ErrInvalidInterval when the interval is
// malformed, shorter than min or longer than max.
func (iv Interval) CheckBounds(min, max time.Duration) error {
	if !iv.Valid() {
		return fmt.Errorf("%w: end must be after start", ErrInvalidInterval)
	}
	d := iv.Duration()
	if d < min {
		return fmt.Errorf("%w: duration %s below minimum %s", ErrInvalidInterval, d, min)
	}
	if d > max {
		return fmt.Errorf("%w: duration %s above maximum %s", ErrInvalidInterval, d, max)
	}
	return nil
}
