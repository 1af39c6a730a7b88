package decision

import (
	"time"

	"github.com/Ramsey-B/thistle/pkg/database"
	"github.com/Ramsey-B/thistle/pkg/models"
)

const decisionsTable = "decisions"

// Row is the decisions row
type Row struct {
	ID                 string                                           `db:"id"`
	QuoteID            string                                           `db:"quote_id"`
	SelectedSupplierID int                                              `db:"selected_supplier_id"`
	Reasoning          string                                           `db:"reasoning"`
	EvaluationScores   database.JSONB[map[string]models.ScoreBreakdown] `db:"evaluation_scores"`
	CreatedAt          time.Time                                        `db:"created_at"`
}

var rowStruct = database.NewStruct(new(Row))

func FromDecision(d *models.Decision) *Row {
	return &Row{
		ID:                 d.ID,
		QuoteID:            d.QuoteID,
		SelectedSupplierID: d.SelectedSupplierID,
		Reasoning:          d.Reasoning,
		EvaluationScores:   database.NewJSONB(d.EvaluationScores),
		CreatedAt:          d.CreatedAt,
	}
}

func ToDecision(row *Row) *models.Decision {
	return &models.Decision{
		ID:                 row.ID,
		QuoteID:            row.QuoteID,
		SelectedSupplierID: row.SelectedSupplierID,
		Reasoning:          row.Reasoning,
		EvaluationScores:   row.EvaluationScores.Data,
		CreatedAt:          row.CreatedAt,
	}
}
