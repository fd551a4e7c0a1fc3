package domain

import "time"

// HospitalRule is the "N-1-1" style rule: RequiredContractions most recent
// contractions, no gap longer than MaxGap, none shorter than MinDuration,
// together spanning at least MinSpan.
type HospitalRule struct {
	RequiredContractions int           `yaml:"requiredContractions"`
	MaxGap               time.Duration `yaml:"maxGap"`
	MinDuration          time.Duration `yaml:"minDuration"`
	MinSpan              time.Duration `yaml:"minSpan"`
}

// PhaseRule maps mean contraction intensity and duration to a phase.
type PhaseRule struct {
	Phase        LabourPhase   `yaml:"phase"`
	MinIntensity float64       `yaml:"minIntensity"`
	MinDuration  time.Duration `yaml:"minDuration"`
}

// LabourPolicy holds every threshold the labour aggregate depends on.
type LabourPolicy struct {
	MinContractionDuration time.Duration `yaml:"minContractionDuration"`
	MaxContractionDuration time.Duration `yaml:"maxContractionDuration"`
	MinIntensity           int           `yaml:"minIntensity"`
	MaxIntensity           int           `yaml:"maxIntensity"`
	AnnouncementCooldown   time.Duration `yaml:"announcementCooldown"`

	// PatternWindow is how many recent contractions feed ContractionPattern.
	PatternWindow int `yaml:"patternWindow"`
	// PhaseWindow is how many recent contractions feed phase evaluation.
	PhaseWindow int `yaml:"phaseWindow"`
	// PhaseRules are checked in order, the first match wins.
	PhaseRules []PhaseRule `yaml:"phaseRules"`

	FirstLabourHospitalRule      HospitalRule `yaml:"firstLabourHospitalRule"`
	SubsequentLabourHospitalRule HospitalRule `yaml:"subsequentLabourHospitalRule"`
}

func DefaultLabourPolicy() LabourPolicy {
	return LabourPolicy{
		MinContractionDuration: time.Second,
		MaxContractionDuration: 20 * time.Minute,
		MinIntensity:           1,
		MaxIntensity:           10,
		AnnouncementCooldown:   10 * time.Minute,
		PatternWindow:          3,
		PhaseWindow:            5,
		PhaseRules: []PhaseRule{
			{Phase: LabourPhaseTransition, MinIntensity: 8, MinDuration: 90 * time.Second},
			{Phase: LabourPhaseActive, MinIntensity: 6, MinDuration: time.Minute},
		},
		// 3-1-1
		FirstLabourHospitalRule: HospitalRule{
			RequiredContractions: 16,
			MaxGap:               3 * time.Minute,
			MinDuration:          time.Minute,
			MinSpan:              time.Hour,
		},
		// 5-1-1
		SubsequentLabourHospitalRule: HospitalRule{
			RequiredContractions: 11,
			MaxGap:               5 * time.Minute,
			MinDuration:          time.Minute,
			MinSpan:              time.Hour,
		},
	}
}

func (p LabourPolicy) hospitalRule(firstLabour bool) HospitalRule {
	if firstLabour {
		return p.FirstLabourHospitalRule
	}
	return p.SubsequentLabourHospitalRule
}

func (p LabourPolicy) validIntensity(intensity int) bool {
	return intensity >= p.MinIntensity && intensity <= p.MaxIntensity
}
