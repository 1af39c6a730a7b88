package sourcingrequest

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

func (r *Repository) Create(ctx context.Context, request *models.SourcingRequest) error {
	ctx, span := tracing.StartSpan(ctx, "sourcingrequest.Repository.Create")
	defer span.End()

	now := time.Now().UTC()
	if request.CreatedAt.IsZero() {
		request.CreatedAt = now
	}
	if request.UpdatedAt.IsZero() {
		request.UpdatedAt = request.CreatedAt
	}
	if request.Status == "" {
		request.Status = models.SourcingRequestStatusNegotiating
	}

	query, args := rowStruct.InsertInto(sourcingRequestsTable, FromSourcingRequest(request)).Build()

	if _, err := r.db.Executor(ctx).ExecContext(ctx, query, args...); err != nil {
		if database.IsUniqueViolation(err) {
			return negerrors.Conflictf("sourcingrequest.Repository.Create", "sourcing request %s already exists", request.ID)
		}
		r.logger.WithContext(ctx).WithError(err).WithField("quote_id", request.ID).Error("Failed to create sourcing request")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to create sourcing request")
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*models.SourcingRequest, error) {
	ctx, span := tracing.StartSpan(ctx, "sourcingrequest.Repository.GetByID")
	defer span.End()

	sb := rowStruct.SelectFrom(sourcingRequestsTable)
	sb.Where(sb.Equal("id", id))
	query, args := sb.Build()

	var row Row
	if err := r.db.Executor(ctx).GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("sourcing request %s not found", id))
		}
		r.logger.WithContext(ctx).WithError(err).WithField("quote_id", id).Error("Failed to get sourcing request")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get sourcing request")
	}
	return ToSourcingRequest(&row), nil
}

// MarkCompleted moves a negotiating request to completed. It is a no-op for a completed one.
func (r *Repository) MarkCompleted(ctx context.Context, id string, completedAt time.Time) error {
	ctx, span := tracing.StartSpan(ctx, "sourcingrequest.Repository.MarkCompleted")
	defer span.End()

	ub := database.NewUpdateBuilder()
	ub.Update(sourcingRequestsTable).
		Set(
			ub.Assign("status", string(models.SourcingRequestStatusCompleted)),
			ub.Assign("completed_at", completedAt),
			ub.Assign("updated_at", completedAt),
		).
		Where(
			ub.Equal("id", id),
			ub.Equal("status", string(models.SourcingRequestStatusNegotiating)),
		)
	query, args := ub.Build()

	if _, err := r.db.Executor(ctx).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("quote_id", id).Error("Failed to complete sourcing request")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to complete sourcing request")
	}
	return nil
}
