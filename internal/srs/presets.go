package srs

import (
	"fmt"

	"github.com/CI5co22/MindSprout/internal/domain"
)

// preset holds the strategy-specific scheduling parameters. The first
// passing interval is always one day; the differences between presets start
// at the second step.
type preset struct {
	// secondStep is the interval (days) granted on the second consecutive
	// pass.
	secondStep int
	// thirdStep, if non-zero, is a fixed interval for the third
	// consecutive pass before multiplicative growth begins.
	thirdStep int
	// growthCap, if non-zero, limits the multiplier applied to the
	// interval once fixed steps are exhausted.
	growthCap float64
	// easinessCap, if non-zero, is a ceiling applied to the ease factor
	// after the 1.3 floor.
	easinessCap float64
}

var (
	standardPreset = preset{
		secondStep: 4,
	}
	examPreset = preset{
		secondStep:  2,
		thirdStep:   4,
		growthCap:   1.6,
		easinessCap: 1.8,
	}
)

func presetFor(strategy domain.Strategy) (preset, error) {
	switch strategy {
	case domain.StrategyStandard, "":
		return standardPreset, nil
	case domain.StrategyExam:
		return examPreset, nil
	}
	return preset{}, fmt.Errorf("%w: %q", domain.ErrUnknownStrategy, string(strategy))
}
