package domain

import (
	"math"
	"sort"
	"time"
)

// ContractionPattern summarises the most recent contractions.
type ContractionPattern struct {
	AverageDurationSeconds float64     `json:"average_duration_seconds"`
	AverageIntensity       float64     `json:"average_intensity"`
	AverageIntervalMinutes float64     `json:"average_interval_minutes"`
	Phase                  LabourPhase `json:"phase"`
}

// EndedContractions returns the ended contractions ordered by start time.
func EndedContractions(contractions []Contraction) []Contraction {
	res := make([]Contraction, 0, len(contractions))
	for _, c := range contractions {
		if !c.IsActive() {
			res = append(res, c)
		}
	}
	sort.SliceStable(res, func(i, j int) bool {
		return res[i].StartTime.Before(res[j].StartTime)
	})
	return res
}

func lastN(contractions []Contraction, n int) []Contraction {
	if len(contractions) <= n {
		return contractions
	}
	return contractions[len(contractions)-n:]
}

// PatternOf returns false when fewer than policy.PatternWindow contractions have ended.
func PatternOf(contractions []Contraction, phase LabourPhase, policy LabourPolicy) (ContractionPattern, bool) {
	ended := EndedContractions(contractions)
	if len(ended) < policy.PatternWindow || policy.PatternWindow <= 0 {
		return ContractionPattern{}, false
	}
	recent := lastN(ended, policy.PatternWindow)

	var durations, intensities, intervals float64
	for i, c := range recent {
		durations += c.Duration().Length().Seconds()
		intensities += float64(c.IntensityValue())
		if i > 0 {
			intervals += c.StartTime.Sub(recent[i-1].StartTime).Minutes()
		}
	}
	n := float64(len(recent))
	pattern := ContractionPattern{
		AverageDurationSeconds: round1(durations / n),
		AverageIntensity:       round1(intensities / n),
		Phase:                  phase,
	}
	if len(recent) > 1 {
		pattern.AverageIntervalMinutes = round1(intervals / float64(len(recent)-1))
	}
	return pattern, true
}

// ShouldGoToHospital applies the hospital rule for first or subsequent labours.
// Gap is measured from the end of one contraction to the start of the next.
func ShouldGoToHospital(contractions []Contraction, firstLabour bool, policy LabourPolicy) bool {
	rule := policy.hospitalRule(firstLabour)
	ended := EndedContractions(contractions)
	if rule.RequiredContractions <= 0 || len(ended) < rule.RequiredContractions {
		return false
	}
	recent := lastN(ended, rule.RequiredContractions)
	for i, c := range recent {
		if c.Duration().Length() < rule.MinDuration {
			return false
		}
		if i > 0 && c.StartTime.Sub(*recent[i-1].EndTime) > rule.MaxGap {
			return false
		}
	}
	span := recent[len(recent)-1].EndTime.Sub(recent[0].StartTime)
	return span >= rule.MinSpan
}

// EvaluatePhase returns the phase implied by the most recent contractions,
// never earlier than current.
func EvaluatePhase(contractions []Contraction, current LabourPhase, policy LabourPolicy) LabourPhase {
	ended := EndedContractions(contractions)
	if len(ended) == 0 || policy.PhaseWindow <= 0 {
		return current
	}
	recent := lastN(ended, policy.PhaseWindow)
	var intensity float64
	var duration time.Duration
	for _, c := range recent {
		intensity += float64(c.IntensityValue())
		duration += c.Duration().Length()
	}
	meanIntensity := intensity / float64(len(recent))
	meanDuration := duration / time.Duration(len(recent))

	for _, rule := range policy.PhaseRules {
		if meanIntensity >= rule.MinIntensity && meanDuration >= rule.MinDuration {
			return LaterPhase(current, rule.Phase)
		}
	}
	return current
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
