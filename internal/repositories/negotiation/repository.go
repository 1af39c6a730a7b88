package negotiation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/thistle/pkg/database"
	negerrors "github.com/Ramsey-B/thistle/pkg/errors"
	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/tracing"
)

// StatusUpdate is a compare-and-set write: it applies only while the row is active at FromRound.
type StatusUpdate struct {
	Status        models.NegotiationStatus
	RoundCount    int
	FromRound     int
	FinalOffer    *models.Offer
	ImpasseReason *models.ImpasseReason
	CompletedAt   *time.Time
	UpdatedAt     time.Time
}

type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) Create(ctx context.Context, n *models.Negotiation) error {
	ctx, span := tracing.StartSpan(ctx, "negotiation.Repository.Create")
	defer span.End()

	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	if n.UpdatedAt.IsZero() {
		n.UpdatedAt = n.CreatedAt
	}

	query, args := rowStruct.InsertInto(negotiationsTable, FromNegotiation(n)).Build()

	if _, err := r.db.Executor(ctx).ExecContext(ctx, query, args...); err != nil {
		if database.IsUniqueViolation(err) {
			return negerrors.Conflictf("negotiation.Repository.Create", "negotiation for quote %s and supplier %d already exists", n.QuoteID, n.SupplierID)
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"negotiation_id": n.ID,
			"quote_id":       n.QuoteID,
			"supplier_id":    n.SupplierID,
		}).Error("Failed to create negotiation")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create negotiation")
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*models.Negotiation, error) {
	ctx, span := tracing.StartSpan(ctx, "negotiation.Repository.GetByID")
	defer span.End()

	return r.get(ctx, id, false)
}

// GetForUpdate reads the row and locks it until the transaction in ctx ends.
func (r *Repository) GetForUpdate(ctx context.Context, id string) (*models.Negotiation, error) {
	ctx, span := tracing.StartSpan(ctx, "negotiation.Repository.GetForUpdate")
	defer span.End()

	return r.get(ctx, id, database.InTx(ctx))
}

func (r *Repository) get(ctx context.Context, id string, forUpdate bool) (*models.Negotiation, error) {
	sb := rowStruct.SelectFrom(negotiationsTable)
	sb.Where(sb.Equal("id", id))
	if forUpdate {
		sb.ForUpdate()
	}
	query, args := sb.Build()

	var row Row
	if err := r.db.Executor(ctx).GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("negotiation %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).WithField("negotiation_id", id).Error("Failed to get negotiation")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get negotiation")
	}
	return ToNegotiation(&row), nil
}

// ListByQuote returns the quote's negotiations ordered by supplier id.
func (r *Repository) ListByQuote(ctx context.Context, quoteID string) ([]models.Negotiation, error) {
	ctx, span := tracing.StartSpan(ctx, "negotiation.Repository.ListByQuote")
	defer span.End()

	sb := rowStruct.SelectFrom(negotiationsTable)
	sb.Where(sb.Equal("quote_id", quoteID))
	sb.OrderBy("supplier_id").Asc()
	query, args := sb.Build()

	var rows []Row
	if err := r.db.Executor(ctx).SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("quote_id", quoteID).Error("Failed to list negotiations")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list negotiations")
	}
	return ToNegotiations(rows), nil
}

// UpdateStatus applies update if the negotiation is still active at update.FromRound.
// A lost race or a terminal row is a conflict and nothing is written.
func (r *Repository) UpdateStatus(ctx context.Context, id string, update StatusUpdate) error {
	ctx, span := tracing.StartSpan(ctx, "negotiation.Repository.UpdateStatus")
	defer span.End()

	ub := database.NewUpdateBuilder()
	assignments := []string{
		ub.Assign("status", string(update.Status)),
		ub.Assign("round_count", update.RoundCount),
		ub.Assign("updated_at", update.UpdatedAt),
	}
	if update.Status.IsTerminal() {
		completedAt := update.UpdatedAt
		if update.CompletedAt != nil {
			completedAt = *update.CompletedAt
		}
		var reason sql.NullString
		if update.ImpasseReason != nil {
			reason = sql.NullString{String: string(*update.ImpasseReason), Valid: true}
		}
		assignments = append(assignments,
			ub.Assign("final_offer", database.NewJSONB(update.FinalOffer)),
			ub.Assign("impasse_reason", reason),
			ub.Assign("completed_at", completedAt),
		)
	}
	ub.Update(negotiationsTable).Set(assignments...).Where(
		ub.Equal("id", id),
		ub.Equal("status", string(models.NegotiationStatusActive)),
		ub.Equal("round_count", update.FromRound),
	)
	query, args := ub.Build()

	result, err := r.db.Executor(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("negotiation_id", id).Error("Failed to update negotiation status")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update negotiation status")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update negotiation status")
	}
	if affected == 0 {
		return negerrors.Conflictf("negotiation.Repository.UpdateStatus", "negotiation %s is no longer active at round %d", id, update.FromRound)
	}
	return nil
}
