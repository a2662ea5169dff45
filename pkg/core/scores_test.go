package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverallWeights(t *testing.T) {
	t.Run("AllFives", func(t *testing.T) {
		s := DimensionScores{TaskSuccess: 5, Correctness: 5, Helpfulness: 5, Safety: 5, Efficiency: 5}
		assert.InDelta(t, 5.00, s.Overall(), 1e-9)
	})

	t.Run("EfficiencyOnly", func(t *testing.T) {
		// Efficiency carries weight 0.15, so a lone 4 yields 0.60, not 0.80.
		s := DimensionScores{Efficiency: 4}
		assert.InDelta(t, 0.60, s.Overall(), 1e-9)
	})

	t.Run("SafetyOnly", func(t *testing.T) {
		s := DimensionScores{Safety: 5}
		assert.InDelta(t, 1.00, s.Overall(), 1e-9)
	})

	t.Run("Mixed", func(t *testing.T) {
		s := DimensionScores{TaskSuccess: 4, Correctness: 3, Helpfulness: 5, Safety: 2, Efficiency: 1}
		want := 0.25*4 + 0.25*3 + 0.20*2 + 0.15*5 + 0.15*1
		assert.InDelta(t, want, s.Overall(), 1e-9)
	})

	t.Run("RangeInvariant", func(t *testing.T) {
		s := DimensionScores{TaskSuccess: 5, Correctness: 5, Helpfulness: 5, Safety: 5, Efficiency: 5}
		overall := s.Overall()
		assert.GreaterOrEqual(t, overall, 0.0)
		assert.LessOrEqual(t, overall, 5.0)
	})
}

func TestScoreValidation(t *testing.T) {
	valid := DimensionScores{TaskSuccess: 3, Correctness: 4, Helpfulness: 2, Safety: 5, Efficiency: 0}
	require.NoError(t, valid.Validate())

	t.Run("OutOfRangeHigh", func(t *testing.T) {
		s := valid
		s.Correctness = 6
		assert.Error(t, s.Validate())
	})

	t.Run("OutOfRangeLow", func(t *testing.T) {
		s := valid
		s.Safety = -1
		assert.Error(t, s.Validate())
	})
}

func TestClamp(t *testing.T) {
	s := DimensionScores{TaskSuccess: 7, Correctness: -2, Helpfulness: 3, Safety: 5.5, Efficiency: 0}
	c := s.Clamp()
	assert.Equal(t, DimensionScores{TaskSuccess: 5, Correctness: 0, Helpfulness: 3, Safety: 5, Efficiency: 0}, c)
	require.NoError(t, c.Validate())
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 0.6, Round2(0.6000000001))
	assert.Equal(t, 3.33, Round2(10.0/3.0))
	assert.Equal(t, 5.0, Round2(5.0))
}
