package negotiation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Ramsey-B/thistle/pkg/models"
)

func floatPtr(f float64) *float64 { return &f }

func TestSupervisor_Evaluate(t *testing.T) {
	supervisor := NewSupervisor(DefaultConfig())

	tests := []struct {
		name     string
		round    int
		prices   []float64
		target   *float64
		expected *models.ImpasseReason
	}{
		{name: "opening offer", round: 0, prices: []float64{30}, target: floatPtr(25)},
		{name: "healthy movement", round: 2, prices: []float64{30, 28, 26}, target: floatPtr(25)},
		{name: "max rounds", round: 8, prices: []float64{30, 28}, expected: reason(models.ImpasseReasonMaxRounds)},
		{name: "below max rounds", round: 7, prices: []float64{30, 28}},
		{name: "stagnation", round: 2, prices: []float64{30, 30.1, 30.2}, expected: reason(models.ImpasseReasonPriceStagnation)},
		{name: "stagnation needs a full window", round: 1, prices: []float64{30, 30}},
		{name: "one real step breaks stagnation", round: 3, prices: []float64{30, 30, 29, 29.1}},
		{name: "price gap", round: 1, prices: []float64{50, 45}, target: floatPtr(25), expected: reason(models.ImpasseReasonPriceGap)},
		{name: "price gap waits for a counter round", round: 0, prices: []float64{50}, target: floatPtr(25)},
		{name: "no target no gap", round: 3, prices: []float64{50, 45, 40}},
		{name: "max rounds wins over stagnation", round: 8, prices: []float64{30, 30, 30}, expected: reason(models.ImpasseReasonMaxRounds)},
		{name: "stagnation wins over gap", round: 2, prices: []float64{50, 50, 50}, target: floatPtr(25), expected: reason(models.ImpasseReasonPriceStagnation)},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := supervisor.Evaluate(test.round, test.prices, test.target)
			assert.Equal(t, test.expected, got)
		})
	}
}
