package message

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/thistle/pkg/database"
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

// Create appends a message. The id and timestamp are filled in when empty.
func (r *Repository) Create(ctx context.Context, msg *models.Message) (*models.Message, error) {
	ctx, span := tracing.StartSpan(ctx, "message.Repository.Create")
	defer span.End()

	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	query, args := rowStruct.InsertInto(messagesTable, FromMessage(msg)).Build()

	if _, err := r.db.Executor(ctx).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"negotiation_id": msg.NegotiationID,
			"sender":         msg.Sender,
		}).Error("Failed to create message")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create message")
	}
	return msg, nil
}

// ListByNegotiation returns the transcript in timestamp order.
func (r *Repository) ListByNegotiation(ctx context.Context, negotiationID string) ([]models.Message, error) {
	ctx, span := tracing.StartSpan(ctx, "message.Repository.ListByNegotiation")
	defer span.End()

	sb := rowStruct.SelectFrom(messagesTable)
	sb.Where(sb.Equal("negotiation_id", negotiationID))
	sb.OrderBy("sent_at", "id").Asc()

	return r.list(ctx, sb.Build)
}

// ListBySenderSince returns the sender's messages strictly after since.
func (r *Repository) ListBySenderSince(ctx context.Context, negotiationID string, sender models.Sender, since time.Time) ([]models.Message, error) {
	ctx, span := tracing.StartSpan(ctx, "message.Repository.ListBySenderSince")
	defer span.End()

	sb := rowStruct.SelectFrom(messagesTable)
	sb.Where(
		sb.Equal("negotiation_id", negotiationID),
		sb.Equal("sender", string(sender)),
		sb.GreaterThan("sent_at", since),
	)
	sb.OrderBy("sent_at", "id").Asc()

	return r.list(ctx, sb.Build)
}

// CountToolCalls returns how many tool calls the negotiation's transcript records.
func (r *Repository) CountToolCalls(ctx context.Context, negotiationID string) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "message.Repository.CountToolCalls")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select("COALESCE(SUM(jsonb_array_length(metadata->'tool_calls')), 0)")
	sb.From(messagesTable)
	sb.Where(sb.Equal("negotiation_id", negotiationID))
	query, args := sb.Build()

	var count int
	if err := r.db.Executor(ctx).GetContext(ctx, &count, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("negotiation_id", negotiationID).Error("Failed to count tool calls")
		return 0, httperror.NewHTTPError(http.StatusInternalServerError, "failed to count tool calls")
	}
	return count, nil
}

func (r *Repository) list(ctx context.Context, build func() (string, []any)) ([]models.Message, error) {
	query, args := build()

	var rows []Row
	if err := r.db.Executor(ctx).SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list messages")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list messages")
	}
	return ToMessages(rows), nil
}
