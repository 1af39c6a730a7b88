package models

import (
	"fmt"
	"time"
)

// ScoreBreakdown holds one supplier's per-criterion scores (0-100) and the weighted total
type ScoreBreakdown struct {
	QualityScore      float64 `json:"quality_score"`
	CostScore         float64 `json:"cost_score"`
	LeadTimeScore     float64 `json:"lead_time_score"`
	PaymentTermsScore float64 `json:"payment_terms_score"`
	TotalScore        float64 `json:"total_score"`
}

// Decision selects the winning supplier for a sourcing request. At most one exists per quote.
type Decision struct {
	ID                 string                    `json:"id" db:"id"`
	QuoteID            string                    `json:"quote_id" db:"quote_id"`
	SelectedSupplierID int                       `json:"selected_supplier_id" db:"selected_supplier_id"`
	Reasoning          string                    `json:"reasoning" db:"reasoning"`
	EvaluationScores   map[string]ScoreBreakdown `json:"evaluation_scores" db:"-"`
	CreatedAt          time.Time                 `json:"created_at" db:"created_at"`
}

// SupplierKey is the evaluation map key for a supplier slot, e.g. "supplier2".
func SupplierKey(supplierID int) string {
	return fmt.Sprintf("supplier%d", supplierID)
}
