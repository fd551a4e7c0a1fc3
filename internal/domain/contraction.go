package domain

import (
	"fmt"
	"time"

	"gitee.com/flycash/labour-tracker/internal/errs"
)

// Duration is a validated closed interval [Start, End].
type Duration struct {
	Start time.Time
	End   time.Time
}

func NewDuration(start, end time.Time, policy LabourPolicy) (Duration, error) {
	if start.After(end) {
		return Duration{}, fmt.Errorf("%w: start=%s end=%s", errs.ErrContractionStartTimeAfterEndTime,
			start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	d := end.Sub(start)
	if d > policy.MaxContractionDuration {
		return Duration{}, fmt.Errorf("%w: %s > %s", errs.ErrContractionDurationExceedsMaxDuration, d, policy.MaxContractionDuration)
	}
	if d < policy.MinContractionDuration {
		return Duration{}, fmt.Errorf("%w: %s < %s", errs.ErrContractionDurationLessThanMinDuration, d, policy.MinContractionDuration)
	}
	return Duration{Start: start, End: end}, nil
}

func (d Duration) Length() time.Duration {
	return d.End.Sub(d.Start)
}

// Overlaps reports whether the two intervals share more than a boundary point.
func (d Duration) Overlaps(other Duration) bool {
	return d.Start.Before(other.End) && other.Start.Before(d.End)
}

type Contraction struct {
	ID        string
	LabourID  string
	StartTime time.Time
	// EndTime is nil while the contraction is still running.
	EndTime   *time.Time
	Intensity *int
	Notes     string
}

func (c Contraction) IsActive() bool {
	return c.EndTime == nil
}

// Duration returns the contraction interval. Only valid for ended contractions.
func (c Contraction) Duration() Duration {
	if c.EndTime == nil {
		return Duration{Start: c.StartTime, End: c.StartTime}
	}
	return Duration{Start: c.StartTime, End: *c.EndTime}
}

func (c Contraction) IntensityValue() int {
	if c.Intensity == nil {
		return 0
	}
	return *c.Intensity
}
