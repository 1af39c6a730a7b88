package sourcingrequest

import (
	"database/sql"

	"github.com/Ramsey-B/thistle/pkg/database"
	"github.com/Ramsey-B/thistle/pkg/models"
)

const sourcingRequestsTable = "sourcing_requests"

// Row is the sourcing_requests row
type Row struct {
	ID                 string                                    `db:"id"`
	Title              string                                    `db:"title"`
	Status             string                                    `db:"status"`
	DecisionPriorities database.JSONB[models.DecisionPriorities] `db:"decision_priorities"`
	TargetUnitPrice    sql.NullFloat64                           `db:"target_unit_price"`
	SupplierIDs        database.JSONB[[]int]                     `db:"supplier_ids"`
	CreatedAt          sql.NullTime                              `db:"created_at"`
	UpdatedAt          sql.NullTime                              `db:"updated_at"`
	CompletedAt        sql.NullTime                              `db:"completed_at"`
}

var rowStruct = database.NewStruct(new(Row))

func FromSourcingRequest(r *models.SourcingRequest) *Row {
	row := &Row{
		ID:                 r.ID,
		Title:              r.Title,
		Status:             string(r.Status),
		DecisionPriorities: database.NewJSONB(r.DecisionPriorities),
		SupplierIDs:        database.NewJSONB(r.SupplierIDs),
		CreatedAt:          sql.NullTime{Time: r.CreatedAt, Valid: !r.CreatedAt.IsZero()},
		UpdatedAt:          sql.NullTime{Time: r.UpdatedAt, Valid: !r.UpdatedAt.IsZero()},
	}
	if r.TargetUnitPrice != nil {
		row.TargetUnitPrice = sql.NullFloat64{Float64: *r.TargetUnitPrice, Valid: true}
	}
	if r.CompletedAt != nil {
		row.CompletedAt = sql.NullTime{Time: *r.CompletedAt, Valid: true}
	}
	return row
}

func ToSourcingRequest(row *Row) *models.SourcingRequest {
	r := &models.SourcingRequest{
		ID:                 row.ID,
		Title:              row.Title,
		Status:             models.SourcingRequestStatus(row.Status),
		DecisionPriorities: row.DecisionPriorities.Data,
		SupplierIDs:        row.SupplierIDs.Data,
		CreatedAt:          row.CreatedAt.Time,
		UpdatedAt:          row.UpdatedAt.Time,
	}
	if row.TargetUnitPrice.Valid {
		price := row.TargetUnitPrice.Float64
		r.TargetUnitPrice = &price
	}
	if row.CompletedAt.Valid {
		completedAt := row.CompletedAt.Time
		r.CompletedAt = &completedAt
	}
	return r
}
