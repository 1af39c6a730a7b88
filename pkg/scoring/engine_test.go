package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	negerrors "github.com/Ramsey-B/thistle/pkg/errors"
	"github.com/Ramsey-B/thistle/pkg/models"
)

func completedNegotiation(supplierID int, price float64, leadTime int, terms string) models.Negotiation {
	return models.Negotiation{
		ID:         models.SupplierKey(supplierID),
		SupplierID: supplierID,
		Status:     models.NegotiationStatusCompleted,
		FinalOffer: &models.Offer{UnitPrice: price, LeadTimeDays: leadTime, PaymentTerms: terms},
	}
}

func TestCostScore(t *testing.T) {
	assert.Equal(t, 100.0, CostScore(20, 20, 30))
	assert.Equal(t, 50.0, CostScore(25, 20, 30))
	assert.Equal(t, 0.0, CostScore(30, 20, 30))
	assert.Equal(t, 100.0, CostScore(25, 25, 25), "identical prices all score 100")
}

func TestEngine_QualityScore(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	assert.Equal(t, 75.0, engine.QualityScore(1))
	assert.Equal(t, 50.0, engine.QualityScore(2))
	assert.Equal(t, 90.0, engine.QualityScore(3))
	assert.Equal(t, 25.0, engine.QualityScore(4))
	assert.Equal(t, 0.0, engine.QualityScore(9))

	config := DefaultConfig()
	config.QualityRatings = map[int]float64{1: 2.5, 2: 5.5}
	engine = NewEngine(config)
	assert.Equal(t, 0.0, engine.QualityScore(1))
	assert.Equal(t, 100.0, engine.QualityScore(2))
}

func TestEngine_LeadTimeScore(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	tests := []struct {
		days     int
		expected float64
	}{
		{days: 7, expected: 100},
		{days: 14, expected: 100},
		{days: 20, expected: 87},
		{days: 30, expected: 65},
		{days: 35, expected: 54},
		{days: 60, expected: 0},
		{days: 90, expected: 0},
	}

	for _, test := range tests {
		assert.Equal(t, test.expected, engine.LeadTimeScore(test.days), "days=%d", test.days)
	}
}

func TestEngine_PaymentTermsScore(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	tests := []struct {
		terms    string
		expected float64
	}{
		{terms: "33/33/33", expected: 100},
		{terms: "30/70", expected: 60},
		{terms: " 30 / 70 ", expected: 60},
		{terms: "100", expected: 0},
		{terms: "50/50", expected: 50},
		{terms: "20/80", expected: 80},
		{terms: "0/100", expected: 100},
		{terms: "net 30", expected: 50},
	}

	for _, test := range tests {
		assert.Equal(t, test.expected, engine.PaymentTermsScore(test.terms), "terms=%q", test.terms)
	}
}

func TestEngine_Evaluate_EndToEnd(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	priorities := models.DecisionPriorities{Quality: 25, Cost: 50, LeadTime: 15, PaymentTerms: 10}

	result, err := engine.Evaluate([]models.Negotiation{
		completedNegotiation(1, 25.0, 30, "30/70"),
		completedNegotiation(2, 22.0, 35, "30/70"),
		completedNegotiation(3, 28.0, 20, "30/70"),
	}, priorities)
	require.NoError(t, err)

	assert.Equal(t, 2, result.SelectedSupplierID)
	require.Len(t, result.Scores, 4)

	assert.Equal(t, models.ScoreBreakdown{QualityScore: 75, CostScore: 50, LeadTimeScore: 65, PaymentTermsScore: 60, TotalScore: 59.5}, result.Scores["supplier1"])
	assert.Equal(t, models.ScoreBreakdown{QualityScore: 50, CostScore: 100, LeadTimeScore: 54, PaymentTermsScore: 60, TotalScore: 76.6}, result.Scores["supplier2"])
	assert.Equal(t, models.ScoreBreakdown{QualityScore: 90, CostScore: 0, LeadTimeScore: 87, PaymentTermsScore: 60, TotalScore: 41.55}, result.Scores["supplier3"])
	assert.Equal(t, models.ScoreBreakdown{}, result.Scores["supplier4"])

	assert.Contains(t, result.Reasoning, "Selected supplier 2")
	assert.Contains(t, result.Reasoning, "76.60")
	assert.Contains(t, result.Reasoning, "22.00 per unit")
}

func TestEngine_Evaluate_OnlyCompletedCanWin(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	cheapButFailed := completedNegotiation(3, 10, 14, "33/33/33")
	cheapButFailed.Status = models.NegotiationStatusImpasse

	result, err := engine.Evaluate([]models.Negotiation{
		completedNegotiation(1, 30, 40, "100"),
		cheapButFailed,
		{SupplierID: 4, Status: models.NegotiationStatusActive},
	}, models.DecisionPriorities{Quality: 25, Cost: 25, LeadTime: 25, PaymentTerms: 25})
	require.NoError(t, err)

	assert.Equal(t, 1, result.SelectedSupplierID)
	assert.Equal(t, models.ScoreBreakdown{}, result.Scores["supplier3"])
	assert.Equal(t, models.ScoreBreakdown{}, result.Scores["supplier4"])
	assert.Equal(t, 100.0, result.Scores["supplier1"].CostScore, "a lone completed offer is the cheapest")
}

func TestEngine_Evaluate_TiesGoToFirstSupplier(t *testing.T) {
	config := DefaultConfig()
	config.QualityRatings = map[int]float64{1: 4, 2: 4, 3: 4, 4: 4}
	engine := NewEngine(config)

	result, err := engine.Evaluate([]models.Negotiation{
		completedNegotiation(4, 20, 30, "30/70"),
		completedNegotiation(2, 20, 30, "30/70"),
		completedNegotiation(3, 20, 30, "30/70"),
	}, models.DecisionPriorities{Quality: 40, Cost: 30, LeadTime: 20, PaymentTerms: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, result.SelectedSupplierID)
}

func TestEngine_Evaluate_NoCompleted(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	failed := completedNegotiation(1, 20, 30, "30/70")
	failed.Status = models.NegotiationStatusImpasse

	_, err := engine.Evaluate([]models.Negotiation{failed}, models.DecisionPriorities{Cost: 100})
	require.Error(t, err)
	assert.True(t, negerrors.IsPrecondition(err))

	_, err = engine.Evaluate(nil, models.DecisionPriorities{Cost: 100})
	assert.True(t, negerrors.IsPrecondition(err))
}
