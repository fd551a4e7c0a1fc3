package domain

import (
	"testing"
	"time"

	"gitee.com/flycash/labour-tracker/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func endedContraction(start time.Duration, length time.Duration, intensity int) Contraction {
	end := t0.Add(start + length)
	return Contraction{
		ID:        newID(),
		StartTime: t0.Add(start),
		EndTime:   &end,
		Intensity: &intensity,
	}
}

func TestNewDuration(t *testing.T) {
	t.Parallel()
	policy := DefaultLabourPolicy()
	testCases := []struct {
		name    string
		length  time.Duration
		wantErr error
	}{
		{name: "negative", length: -time.Second, wantErr: errs.ErrContractionStartTimeAfterEndTime},
		{name: "below minimum", length: 500 * time.Millisecond, wantErr: errs.ErrContractionDurationLessThanMinDuration},
		{name: "minimum", length: time.Second},
		{name: "maximum", length: 20 * time.Minute},
		{name: "above maximum", length: 20*time.Minute + time.Second, wantErr: errs.ErrContractionDurationExceedsMaxDuration},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			d, err := NewDuration(t0, t0.Add(tc.length), policy)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.length, d.Length())
		})
	}
}

func TestDurationOverlaps(t *testing.T) {
	t.Parallel()
	a := Duration{Start: t0, End: t0.Add(time.Minute)}
	testCases := []struct {
		name string
		b    Duration
		want bool
	}{
		{name: "touching end", b: Duration{Start: t0.Add(time.Minute), End: t0.Add(2 * time.Minute)}},
		{name: "touching start", b: Duration{Start: t0.Add(-time.Minute), End: t0}},
		{name: "disjoint", b: Duration{Start: t0.Add(5 * time.Minute), End: t0.Add(6 * time.Minute)}},
		{name: "crossing end", b: Duration{Start: t0.Add(59 * time.Second), End: t0.Add(2 * time.Minute)}, want: true},
		{name: "contained", b: Duration{Start: t0.Add(10 * time.Second), End: t0.Add(20 * time.Second)}, want: true},
		{name: "identical", b: a, want: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, a.Overlaps(tc.b))
			assert.Equal(t, tc.want, tc.b.Overlaps(a))
		})
	}
}

func TestPatternOf(t *testing.T) {
	t.Parallel()
	policy := DefaultLabourPolicy()

	_, ok := PatternOf([]Contraction{
		endedContraction(0, time.Minute, 4),
		endedContraction(5*time.Minute, time.Minute, 4),
	}, LabourPhaseEarly, policy)
	assert.False(t, ok)

	contractions := []Contraction{
		// older contraction outside the window
		endedContraction(-30*time.Minute, 5*time.Minute, 10),
		endedContraction(11*time.Minute, 61*time.Second, 5),
		endedContraction(0, 60*time.Second, 3),
		endedContraction(5*time.Minute, 60*time.Second, 4),
		{ID: "running", StartTime: t0.Add(20 * time.Minute)},
	}
	pattern, ok := PatternOf(contractions, LabourPhaseEarly, policy)
	require.True(t, ok)
	assert.Equal(t, ContractionPattern{
		AverageDurationSeconds: 60.3,
		AverageIntensity:       4,
		AverageIntervalMinutes: 5.5,
		Phase:                  LabourPhaseEarly,
	}, pattern)
}

func TestEvaluatePhase(t *testing.T) {
	t.Parallel()
	policy := DefaultLabourPolicy()
	assert.Equal(t, LabourPhaseEarly, EvaluatePhase(nil, LabourPhaseEarly, policy))

	var contractions []Contraction
	for i := 0; i < 5; i++ {
		contractions = append(contractions, endedContraction(time.Duration(i)*5*time.Minute, 90*time.Second, 8))
	}
	assert.Equal(t, LabourPhaseTransition, EvaluatePhase(contractions, LabourPhaseEarly, policy))
	assert.Equal(t, LabourPhasePushing, EvaluatePhase(contractions, LabourPhasePushing, policy))
}

func TestLaterPhase(t *testing.T) {
	t.Parallel()
	assert.Equal(t, LabourPhaseActive, LaterPhase(LabourPhaseEarly, LabourPhaseActive))
	assert.Equal(t, LabourPhaseActive, LaterPhase(LabourPhaseActive, LabourPhaseEarly))
	assert.True(t, LabourPhasePlanned.Before(LabourPhaseComplete))
	assert.False(t, LabourPhaseTransition.Before(LabourPhaseTransition))
}
