package decision

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

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

// Create inserts the decision unless one exists for the quote, in which case it returns a
// conflict and the stored decision is left as is.
func (r *Repository) Create(ctx context.Context, d *models.Decision) (*models.Decision, error) {
	ctx, span := tracing.StartSpan(ctx, "decision.Repository.Create")
	defer span.End()

	created := *d
	if created.ID == "" {
		created.ID = uuid.New().String()
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now().UTC()
	}

	ib := rowStruct.InsertInto(decisionsTable, FromDecision(&created))
	database.OnConflictDoNothing(ib, "quote_id")
	ib.Returning("id")
	query, args := ib.Build()

	var id string
	if err := r.db.Executor(ctx).QueryRowxContext(ctx, query, args...).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, negerrors.Conflictf("decision.Repository.Create", "decision for quote %s already exists", d.QuoteID)
		}
		r.logger.WithContext(ctx).WithError(err).WithField("quote_id", d.QuoteID).Error("Failed to create decision")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create decision")
	}
	return &created, nil
}

func (r *Repository) GetByQuoteID(ctx context.Context, quoteID string) (*models.Decision, error) {
	ctx, span := tracing.StartSpan(ctx, "decision.Repository.GetByQuoteID")
	defer span.End()

	sb := rowStruct.SelectFrom(decisionsTable)
	sb.Where(sb.Equal("quote_id", quoteID))
	query, args := sb.Build()

	var row Row
	if err := r.db.Executor(ctx).GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("decision for quote %s not found", quoteID))
		}
		r.logger.WithContext(ctx).WithError(err).WithField("quote_id", quoteID).Error("Failed to get decision")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get decision")
	}
	return ToDecision(&row), nil
}
