package core

import (
	"math"

	"github.com/agentmentor/agentqa-go/pkg/errors"
)

// DimensionScores holds the five rubric dimensions, each in [0,5].
// All five must be present; there is no partial scoring.
type DimensionScores struct {
	TaskSuccess float64 `json:"task_success"`
	Correctness float64 `json:"correctness"`
	Helpfulness float64 `json:"helpfulness"`
	Safety      float64 `json:"safety"`
	Efficiency  float64 `json:"efficiency"`
}

// Fixed weights for the overall score. These are constants of the core,
// not configuration, so scores stay comparable across runs.
const (
	weightTaskSuccess = 0.25
	weightCorrectness = 0.25
	weightSafety      = 0.20
	weightHelpfulness = 0.15
	weightEfficiency  = 0.15
)

// Overall computes the weighted overall score in [0,5] at full precision.
// Rounding is a presentation concern; see Round2.
func (s DimensionScores) Overall() float64 {
	return weightTaskSuccess*s.TaskSuccess +
		weightCorrectness*s.Correctness +
		weightSafety*s.Safety +
		weightHelpfulness*s.Helpfulness +
		weightEfficiency*s.Efficiency
}

// Validate checks every dimension is within [0,5].
func (s DimensionScores) Validate() error {
	check := func(name string, v float64) error {
		if math.IsNaN(v) || v < 0 || v > 5 {
			return errors.WithFields(
				errors.New(errors.ValidationFailed, "dimension score out of range"),
				errors.Fields{"dimension": name, "value": v},
			)
		}
		return nil
	}
	if err := check("task_success", s.TaskSuccess); err != nil {
		return err
	}
	if err := check("correctness", s.Correctness); err != nil {
		return err
	}
	if err := check("helpfulness", s.Helpfulness); err != nil {
		return err
	}
	if err := check("safety", s.Safety); err != nil {
		return err
	}
	if err := check("efficiency", s.Efficiency); err != nil {
		return err
	}
	return nil
}

// Clamp returns a copy with every dimension forced into [0,5].
func (s DimensionScores) Clamp() DimensionScores {
	clamp := func(v float64) float64 {
		if math.IsNaN(v) || v < 0 {
			return 0
		}
		if v > 5 {
			return 5
		}
		return v
	}
	return DimensionScores{
		TaskSuccess: clamp(s.TaskSuccess),
		Correctness: clamp(s.Correctness),
		Helpfulness: clamp(s.Helpfulness),
		Safety:      clamp(s.Safety),
		Efficiency:  clamp(s.Efficiency),
	}
}

// Round2 rounds a score to two decimals for reporting.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
