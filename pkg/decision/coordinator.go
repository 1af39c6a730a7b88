// Package decision runs the scoring engine once per sourcing request and records the Decision.
package decision

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"

	negerrors "github.com/Ramsey-B/thistle/pkg/errors"
	"github.com/Ramsey-B/thistle/pkg/metrics"
	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/scoring"
	"github.com/Ramsey-B/thistle/pkg/tracing"
)

// Store reads scoring inputs and writes the decision. CreateDecision must fail with a
// conflict when a decision already exists for the quote.
type Store interface {
	GetSourcingRequest(ctx context.Context, quoteID string) (*models.SourcingRequest, error)
	ListNegotiations(ctx context.Context, quoteID string) ([]models.Negotiation, error)
	CreateDecision(ctx context.Context, decision *models.Decision) (*models.Decision, error)
	GetDecision(ctx context.Context, quoteID string) (*models.Decision, error)
}

// Publisher is notified after a decision is stored
type Publisher interface {
	EmitDecisionCreated(ctx context.Context, decision *models.Decision) error
}

type Coordinator struct {
	store     Store
	engine    *scoring.Engine
	publisher Publisher
	logger    ectologger.Logger
	now       func() time.Time
}

type Option func(*Coordinator)

func WithPublisher(publisher Publisher) Option {
	return func(c *Coordinator) { c.publisher = publisher }
}

func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

func NewCoordinator(store Store, engine *scoring.Engine, logger ectologger.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:  store,
		engine: engine,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Decide scores every negotiation of the quote and stores the single Decision.
// All negotiations must be terminal. A decision that already exists is a conflict.
func (c *Coordinator) Decide(ctx context.Context, quoteID string) (*models.Decision, error) {
	ctx, span := tracing.StartSpan(ctx, "decision.Coordinator.Decide")
	defer span.End()

	log := c.logger.WithContext(ctx).WithField("quote_id", quoteID)

	request, err := c.store.GetSourcingRequest(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	negotiations, err := c.store.ListNegotiations(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	for _, n := range negotiations {
		if !n.IsTerminal() {
			return nil, negerrors.Preconditionf("decision.Coordinator.Decide", "negotiation %s for supplier %d is still %s", n.ID, n.SupplierID, n.Status)
		}
	}

	result, err := c.engine.Evaluate(negotiations, request.DecisionPriorities)
	if err != nil {
		tracing.RecordError(span, err)
		metrics.DecisionsTotal.WithLabelValues("no_winner").Inc()
		log.WithError(err).Warn("Unable to select a supplier")
		return nil, err
	}

	created, err := c.store.CreateDecision(ctx, &models.Decision{
		QuoteID:            quoteID,
		SelectedSupplierID: result.SelectedSupplierID,
		Reasoning:          result.Reasoning,
		EvaluationScores:   result.Scores,
		CreatedAt:          c.now(),
	})
	if err != nil {
		tracing.RecordError(span, err)
		if negerrors.IsConflict(err) {
			metrics.DecisionsTotal.WithLabelValues("conflict").Inc()
			return nil, err
		}
		metrics.DecisionsTotal.WithLabelValues("error").Inc()
		log.WithError(err).Error("Failed to store decision")
		return nil, negerrors.Dependency("decision.Coordinator.Decide", err, "failed to store decision")
	}

	metrics.DecisionsTotal.WithLabelValues("created").Inc()
	metrics.WinningScore.Observe(result.Scores[models.SupplierKey(result.SelectedSupplierID)].TotalScore)
	log.WithFields(map[string]any{
		"decision_id":          created.ID,
		"selected_supplier_id": created.SelectedSupplierID,
	}).Info("Decision created")

	if c.publisher != nil {
		if err := c.publisher.EmitDecisionCreated(ctx, created); err != nil {
			log.WithError(err).Warn("Failed to publish decision")
		}
	}

	return created, nil
}

// OnTerminal is a negotiation terminal hook. Once every negotiation of the quote is terminal
// it runs Decide; a trigger that loses the race to another process stands down quietly.
func (c *Coordinator) OnTerminal(ctx context.Context, n models.Negotiation) {
	ctx, span := tracing.StartSpan(ctx, "decision.Coordinator.OnTerminal")
	defer span.End()

	log := c.logger.WithContext(ctx).WithFields(map[string]any{
		"quote_id":       n.QuoteID,
		"negotiation_id": n.ID,
	})

	negotiations, err := c.store.ListNegotiations(ctx, n.QuoteID)
	if err != nil {
		log.WithError(err).Warn("Failed to list negotiations for decision trigger")
		return
	}
	for _, other := range negotiations {
		if !other.IsTerminal() {
			log.WithField("pending_negotiation_id", other.ID).Debug("Waiting on remaining negotiations")
			return
		}
	}

	if _, err := c.Decide(ctx, n.QuoteID); err != nil {
		switch {
		case negerrors.IsConflict(err):
			log.Debug("Decision already recorded")
		case negerrors.IsPrecondition(err):
			log.WithError(err).Info("Sourcing request ended without a decision")
		default:
			log.WithError(err).Error("Automatic decision failed")
		}
	}
}
