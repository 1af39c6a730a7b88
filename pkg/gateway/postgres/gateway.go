// Package postgres implements the persistence gateway on the Postgres repositories.
package postgres

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"

	decisionrepo "github.com/Ramsey-B/thistle/internal/repositories/decision"
	messagerepo "github.com/Ramsey-B/thistle/internal/repositories/message"
	negotiationrepo "github.com/Ramsey-B/thistle/internal/repositories/negotiation"
	"github.com/Ramsey-B/thistle/internal/repositories/sourcingrequest"
	"github.com/Ramsey-B/thistle/pkg/database"
	"github.com/Ramsey-B/thistle/pkg/decision"
	negerrors "github.com/Ramsey-B/thistle/pkg/errors"
	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/negotiation"
	"github.com/Ramsey-B/thistle/pkg/sourcing"
	"github.com/Ramsey-B/thistle/pkg/tracing"
)

var (
	_ negotiation.Gateway        = (*Gateway)(nil)
	_ negotiation.TurnTransactor = (*Gateway)(nil)
	_ negotiation.Reader         = (*Gateway)(nil)
	_ decision.Store             = (*Gateway)(nil)
	_ sourcing.Store             = (*Gateway)(nil)
)

// OfferPublisher relays offer summaries to observers
type OfferPublisher interface {
	EmitOfferReceived(ctx context.Context, negotiationID string, offer negotiation.OfferReceived) error
}

type Gateway struct {
	db           database.DB
	requests     *sourcingrequest.Repository
	negotiations *negotiationrepo.Repository
	messages     *messagerepo.Repository
	decisions    *decisionrepo.Repository
	publisher    OfferPublisher
	logger       ectologger.Logger
	now          func() time.Time
}

type Option func(*Gateway)

func WithOfferPublisher(publisher OfferPublisher) Option {
	return func(g *Gateway) { g.publisher = publisher }
}

func NewGateway(db database.DB, logger ectologger.Logger, opts ...Option) *Gateway {
	g := &Gateway{
		db:           db,
		requests:     sourcingrequest.NewRepository(db, logger),
		negotiations: negotiationrepo.NewRepository(db, logger),
		messages:     messagerepo.NewRepository(db, logger),
		decisions:    decisionrepo.NewRepository(db, logger),
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// WithinTurn runs the writes of one turn in a single transaction.
func (g *Gateway) WithinTurn(ctx context.Context, fn func(ctx context.Context) error) error {
	return g.db.WithinTx(ctx, fn)
}

// OnMessage appends to the transcript. The negotiation row is locked for the rest of the turn, so
// the tool-call count checked here cannot move before commit.
func (g *Gateway) OnMessage(ctx context.Context, negotiationID string, msg negotiation.MessageInput) (*models.Message, error) {
	ctx, span := tracing.StartSpan(ctx, "postgres.Gateway.OnMessage")
	defer span.End()

	n, err := g.negotiations.GetForUpdate(ctx, negotiationID)
	if err != nil {
		return nil, err
	}
	if n.IsTerminal() {
		return nil, negerrors.Conflictf("postgres.Gateway.OnMessage", "negotiation %s is %s", negotiationID, n.Status)
	}
	if msg.RecordsToolCall() {
		stored, err := g.messages.CountToolCalls(ctx, negotiationID)
		if err != nil {
			return nil, err
		}
		if stored != msg.PriorToolCalls {
			return nil, negerrors.Conflictf("postgres.Gateway.OnMessage", "negotiation %s has %d tool calls, writer saw %d", negotiationID, stored, msg.PriorToolCalls)
		}
	}

	return g.messages.Create(ctx, &models.Message{
		NegotiationID: negotiationID,
		Sender:        msg.Sender,
		Content:       msg.Content,
		Timestamp:     msg.Timestamp,
		Metadata:      msg.Metadata,
	})
}

func (g *Gateway) OnStatusChange(ctx context.Context, negotiationID string, change negotiation.StatusChange) error {
	ctx, span := tracing.StartSpan(ctx, "postgres.Gateway.OnStatusChange")
	defer span.End()

	return g.negotiations.UpdateStatus(ctx, negotiationID, negotiationrepo.StatusUpdate{
		Status:        change.Status,
		RoundCount:    change.RoundCount,
		FromRound:     change.FromRound,
		FinalOffer:    change.FinalOffer,
		ImpasseReason: change.ImpasseReason,
		CompletedAt:   change.CompletedAt,
		UpdatedAt:     g.now(),
	})
}

// OnOfferReceived publishes the summary when a publisher is configured.
func (g *Gateway) OnOfferReceived(ctx context.Context, negotiationID string, offer negotiation.OfferReceived) error {
	if g.publisher == nil {
		return nil
	}
	return g.publisher.EmitOfferReceived(ctx, negotiationID, offer)
}

func (g *Gateway) GetUserInterventions(ctx context.Context, negotiationID string, since time.Time) ([]models.Message, error) {
	ctx, span := tracing.StartSpan(ctx, "postgres.Gateway.GetUserInterventions")
	defer span.End()

	return g.messages.ListBySenderSince(ctx, negotiationID, models.SenderUser, since)
}

func (g *Gateway) GetNegotiation(ctx context.Context, id string) (*models.Negotiation, error) {
	return g.negotiations.GetByID(ctx, id)
}

func (g *Gateway) ListNegotiations(ctx context.Context, quoteID string) ([]models.Negotiation, error) {
	return g.negotiations.ListByQuote(ctx, quoteID)
}

func (g *Gateway) ListMessages(ctx context.Context, negotiationID string) ([]models.Message, error) {
	return g.messages.ListByNegotiation(ctx, negotiationID)
}

func (g *Gateway) GetSourcingRequest(ctx context.Context, quoteID string) (*models.SourcingRequest, error) {
	return g.requests.GetByID(ctx, quoteID)
}

// CreateSourcingRequest writes the request and its negotiations in one transaction.
func (g *Gateway) CreateSourcingRequest(ctx context.Context, request *models.SourcingRequest, negotiations []*models.Negotiation) error {
	ctx, span := tracing.StartSpan(ctx, "postgres.Gateway.CreateSourcingRequest")
	defer span.End()

	return g.db.WithinTx(ctx, func(ctx context.Context) error {
		if err := g.requests.Create(ctx, request); err != nil {
			return err
		}
		for _, n := range negotiations {
			if err := g.negotiations.Create(ctx, n); err != nil {
				return err
			}
		}
		return nil
	})
}

// CreateDecision stores the decision and completes the sourcing request together.
func (g *Gateway) CreateDecision(ctx context.Context, decision *models.Decision) (*models.Decision, error) {
	ctx, span := tracing.StartSpan(ctx, "postgres.Gateway.CreateDecision")
	defer span.End()

	var created *models.Decision
	err := g.db.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		created, err = g.decisions.Create(ctx, decision)
		if err != nil {
			return err
		}
		return g.requests.MarkCompleted(ctx, created.QuoteID, created.CreatedAt)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (g *Gateway) GetDecision(ctx context.Context, quoteID string) (*models.Decision, error) {
	return g.decisions.GetByQuoteID(ctx, quoteID)
}
