package negotiation

import (
	"math"

	"github.com/Ramsey-B/thistle/pkg/models"
)

// Supervisor applies the termination heuristics that end unproductive negotiations
type Supervisor struct {
	config Config
}

func NewSupervisor(config Config) *Supervisor {
	return &Supervisor{config: config}
}

// Evaluate checks, in order, max rounds, price stagnation and price gap. The first match wins.
// prices are the proposed unit prices, oldest first; target may be nil.
func (s *Supervisor) Evaluate(roundCount int, prices []float64, target *float64) *models.ImpasseReason {
	if s.maxRoundsReached(roundCount) {
		return reason(models.ImpasseReasonMaxRounds)
	}
	if s.stagnated(prices) {
		return reason(models.ImpasseReasonPriceStagnation)
	}
	if s.gapTooWide(roundCount, prices, target) {
		return reason(models.ImpasseReasonPriceGap)
	}
	return nil
}

func (s *Supervisor) maxRoundsReached(roundCount int) bool {
	return s.config.MaxRounds > 0 && roundCount >= s.config.MaxRounds
}

func (s *Supervisor) stagnated(prices []float64) bool {
	window := s.config.StagnationWindow
	if window < 2 || len(prices) < window {
		return false
	}

	epsilon := prices[0] * s.config.StagnationEpsilonPct
	recent := prices[len(prices)-window:]
	for i := 1; i < len(recent); i++ {
		if math.Abs(recent[i]-recent[i-1]) >= epsilon {
			return false
		}
	}
	return true
}

func (s *Supervisor) gapTooWide(roundCount int, prices []float64, target *float64) bool {
	if target == nil || *target <= 0 || len(prices) == 0 || s.config.PriceGapPct <= 0 {
		return false
	}
	if roundCount < s.config.PriceGapMinRounds {
		return false
	}

	latest := prices[len(prices)-1]
	return math.Abs(latest-*target)/(*target) > s.config.PriceGapPct
}

func reason(r models.ImpasseReason) *models.ImpasseReason {
	return &r
}
