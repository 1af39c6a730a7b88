// Package scoring normalizes each supplier's final offer against the buyer's priorities and picks a winner.
package scoring

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	negerrors "github.com/Ramsey-B/thistle/pkg/errors"
	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/offers"
)

// Result is the outcome of evaluating a sourcing request
type Result struct {
	SelectedSupplierID int
	Winner             models.Negotiation
	Scores             map[string]models.ScoreBreakdown
	Reasoning          string
}

type Engine struct {
	config Config
}

func NewEngine(config Config) *Engine {
	return &Engine{config: config}
}

// Evaluate scores every supplier slot in order 1 through 4. Only completed negotiations can win;
// ties go to the lower supplier id. Slots without a completed negotiation get an all-zero row.
func (e *Engine) Evaluate(negotiations []models.Negotiation, priorities models.DecisionPriorities) (*Result, error) {
	bySupplier := make(map[int]models.Negotiation, len(negotiations))
	minPrice, maxPrice := math.Inf(1), math.Inf(-1)
	for _, n := range negotiations {
		if _, dup := bySupplier[n.SupplierID]; dup {
			return nil, negerrors.Preconditionf("scoring.Engine.Evaluate", "more than one negotiation for supplier %d", n.SupplierID)
		}
		bySupplier[n.SupplierID] = n
		if completed(n) {
			minPrice = math.Min(minPrice, n.FinalOffer.UnitPrice)
			maxPrice = math.Max(maxPrice, n.FinalOffer.UnitPrice)
		}
	}

	result := &Result{Scores: make(map[string]models.ScoreBreakdown, models.MaxSupplierID)}
	best := math.Inf(-1)
	for supplierID := models.MinSupplierID; supplierID <= models.MaxSupplierID; supplierID++ {
		n, ok := bySupplier[supplierID]
		if !ok || !completed(n) {
			result.Scores[models.SupplierKey(supplierID)] = models.ScoreBreakdown{}
			continue
		}

		breakdown := e.score(supplierID, n.FinalOffer, minPrice, maxPrice, priorities)
		result.Scores[models.SupplierKey(supplierID)] = breakdown

		if breakdown.TotalScore > best {
			best = breakdown.TotalScore
			result.SelectedSupplierID = supplierID
			result.Winner = n
		}
	}

	if result.SelectedSupplierID == 0 {
		return nil, negerrors.Preconditionf("scoring.Engine.Evaluate", "no negotiation reached completed status")
	}

	result.Reasoning = e.reasoning(result, priorities)
	return result, nil
}

func completed(n models.Negotiation) bool {
	return n.Status == models.NegotiationStatusCompleted && n.FinalOffer != nil
}

func (e *Engine) score(supplierID int, offer *models.Offer, minPrice, maxPrice float64, p models.DecisionPriorities) models.ScoreBreakdown {
	b := models.ScoreBreakdown{
		QualityScore:      e.QualityScore(supplierID),
		CostScore:         CostScore(offer.UnitPrice, minPrice, maxPrice),
		LeadTimeScore:     e.LeadTimeScore(offer.LeadTimeDays),
		PaymentTermsScore: e.PaymentTermsScore(offer.PaymentTerms),
	}

	total := decimal.NewFromFloat(b.QualityScore).Mul(decimal.NewFromFloat(p.Quality)).
		Add(decimal.NewFromFloat(b.CostScore).Mul(decimal.NewFromFloat(p.Cost))).
		Add(decimal.NewFromFloat(b.LeadTimeScore).Mul(decimal.NewFromFloat(p.LeadTime))).
		Add(decimal.NewFromFloat(b.PaymentTermsScore).Mul(decimal.NewFromFloat(p.PaymentTerms))).
		Div(decimal.NewFromInt(100))
	b.TotalScore = total.Round(2).InexactFloat64()
	return b
}

// QualityScore interpolates the supplier's fixed rating between the worst and best benchmarks.
func (e *Engine) QualityScore(supplierID int) float64 {
	rating, ok := e.config.QualityRatings[supplierID]
	if !ok {
		return 0
	}
	return interpolate(rating, e.config.QualityWorst, e.config.QualityBest)
}

// CostScore places price between the cheapest (100) and most expensive (0) completed offers.
// When every completed offer has the same price all of them score 100.
func CostScore(price, minPrice, maxPrice float64) float64 {
	if maxPrice <= minPrice {
		return 100
	}
	return clamp(math.Round((maxPrice - price) / (maxPrice - minPrice) * 100))
}

// LeadTimeScore is inverted: fewer days score higher.
func (e *Engine) LeadTimeScore(days int) float64 {
	return interpolate(float64(days), e.config.LeadTimeWorstDays, e.config.LeadTimeBestDays)
}

// PaymentTermsScore looks up known terms, then scores 100 minus the upfront percentage.
func (e *Engine) PaymentTermsScore(terms string) float64 {
	normalized := strings.ReplaceAll(strings.TrimSpace(terms), " ", "")
	if score, ok := e.config.PaymentTermScores[normalized]; ok {
		return score
	}
	if upfront, ok := offers.UpfrontPercentage(normalized); ok {
		return clamp(math.Round(100 - upfront))
	}
	return e.config.UnparseableTermsScore
}

// interpolate maps value from [zero, hundred] onto [0, 100]. zero may be above hundred for inverted scales.
func interpolate(value, zero, hundred float64) float64 {
	if zero == hundred {
		if value >= hundred {
			return 100
		}
		return 0
	}
	return clamp(math.Round((value - zero) / (hundred - zero) * 100))
}

func clamp(score float64) float64 {
	return math.Max(0, math.Min(100, score))
}

func (e *Engine) reasoning(r *Result, p models.DecisionPriorities) string {
	offer := r.Winner.FinalOffer
	s := r.Scores[models.SupplierKey(r.SelectedSupplierID)]
	return fmt.Sprintf(
		"Selected supplier %d with a total score of %.2f. Weights: quality %g, cost %g, lead time %g, payment terms %g. "+
			"Winning offer: %.2f per unit, %d-day lead time, payment terms %s. "+
			"Scores: quality %.0f, cost %.0f, lead time %.0f, payment terms %.0f.",
		r.SelectedSupplierID, s.TotalScore,
		p.Quality, p.Cost, p.LeadTime, p.PaymentTerms,
		offer.UnitPrice, offer.LeadTimeDays, offer.PaymentTerms,
		s.QualityScore, s.CostScore, s.LeadTimeScore, s.PaymentTermsScore,
	)
}
