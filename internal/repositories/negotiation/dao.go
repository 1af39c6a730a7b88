package negotiation

import (
	"database/sql"
	"time"

	"github.com/Ramsey-B/thistle/pkg/database"
	"github.com/Ramsey-B/thistle/pkg/models"
)

const negotiationsTable = "negotiations"

// Row is the negotiations row
type Row struct {
	ID            string                        `db:"id"`
	QuoteID       string                        `db:"quote_id"`
	SupplierID    int                           `db:"supplier_id"`
	Status        string                        `db:"status"`
	RoundCount    int                           `db:"round_count"`
	FinalOffer    database.JSONB[*models.Offer] `db:"final_offer"`
	ImpasseReason sql.NullString                `db:"impasse_reason"`
	CreatedAt     time.Time                     `db:"created_at"`
	UpdatedAt     time.Time                     `db:"updated_at"`
	CompletedAt   sql.NullTime                  `db:"completed_at"`
}

var rowStruct = database.NewStruct(new(Row))

func FromNegotiation(n *models.Negotiation) *Row {
	row := &Row{
		ID:         n.ID,
		QuoteID:    n.QuoteID,
		SupplierID: n.SupplierID,
		Status:     string(n.Status),
		RoundCount: n.RoundCount,
		FinalOffer: database.NewJSONB(n.FinalOffer),
		CreatedAt:  n.CreatedAt,
		UpdatedAt:  n.UpdatedAt,
	}
	if n.ImpasseReason != nil {
		row.ImpasseReason = sql.NullString{String: string(*n.ImpasseReason), Valid: true}
	}
	if n.CompletedAt != nil {
		row.CompletedAt = sql.NullTime{Time: *n.CompletedAt, Valid: true}
	}
	return row
}

func ToNegotiation(row *Row) *models.Negotiation {
	n := &models.Negotiation{
		ID:         row.ID,
		QuoteID:    row.QuoteID,
		SupplierID: row.SupplierID,
		Status:     models.NegotiationStatus(row.Status),
		RoundCount: row.RoundCount,
		FinalOffer: row.FinalOffer.Data,
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}
	if row.ImpasseReason.Valid {
		reason := models.ImpasseReason(row.ImpasseReason.String)
		n.ImpasseReason = &reason
	}
	if row.CompletedAt.Valid {
		completedAt := row.CompletedAt.Time
		n.CompletedAt = &completedAt
	}
	return n
}

func ToNegotiations(rows []Row) []models.Negotiation {
	out := make([]models.Negotiation, len(rows))
	for i := range rows {
		out[i] = *ToNegotiation(&rows[i])
	}
	return out
}
