// Package events publishes negotiation lifecycle events
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/thistle/pkg/kafka"
	"github.com/Ramsey-B/thistle/pkg/metrics"
	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/negotiation"
	"github.com/Ramsey-B/thistle/pkg/tracing"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

type EventType string

const (
	EventTypeOfferReceived   EventType = "offer.received"
	EventTypeStatusChanged   EventType = "negotiation.status_changed"
	EventTypeDecisionCreated EventType = "decision.created"
)

// Publisher writes an event envelope to the transport
type Publisher interface {
	Publish(ctx context.Context, event *kafka.Event) error
}

// StatusChangedData is the payload of negotiation.status_changed
type StatusChangedData struct {
	SupplierID    int                      `json:"supplier_id"`
	Status        models.NegotiationStatus `json:"status"`
	RoundCount    int                      `json:"round_count"`
	ImpasseReason *models.ImpasseReason    `json:"impasse_reason,omitempty"`
	FinalOffer    *models.Offer            `json:"final_offer,omitempty"`
	CompletedAt   *time.Time               `json:"completed_at,omitempty"`
}

// DecisionCreatedData is the payload of decision.created
type DecisionCreatedData struct {
	DecisionID         string                           `json:"decision_id"`
	SelectedSupplierID int                              `json:"selected_supplier_id"`
	EvaluationScores   map[string]models.ScoreBreakdown `json:"evaluation_scores"`
}

type Emitter struct {
	publisher Publisher
	logger    ectologger.Logger
}

func NewEmitter(publisher Publisher, logger ectologger.Logger) *Emitter {
	return &Emitter{
		publisher: publisher,
		logger:    logger,
	}
}

// EmitOfferReceived emits the summary of a proposed or countered offer
func (e *Emitter) EmitOfferReceived(ctx context.Context, negotiationID string, offer negotiation.OfferReceived) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitOfferReceived")
	defer span.End()

	return e.emit(ctx, EventTypeOfferReceived, &kafka.Event{
		Key:           negotiationID,
		NegotiationID: negotiationID,
	}, offer)
}

// EmitStatusChanged emits a negotiation's terminal transition
func (e *Emitter) EmitStatusChanged(ctx context.Context, n models.Negotiation) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitStatusChanged")
	defer span.End()

	return e.emit(ctx, EventTypeStatusChanged, &kafka.Event{
		Key:           n.ID,
		QuoteID:       n.QuoteID,
		NegotiationID: n.ID,
	}, StatusChangedData{
		SupplierID:    n.SupplierID,
		Status:        n.Status,
		RoundCount:    n.RoundCount,
		ImpasseReason: n.ImpasseReason,
		FinalOffer:    n.FinalOffer,
		CompletedAt:   n.CompletedAt,
	})
}

func (e *Emitter) EmitDecisionCreated(ctx context.Context, decision *models.Decision) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitDecisionCreated")
	defer span.End()

	return e.emit(ctx, EventTypeDecisionCreated, &kafka.Event{
		Key:     decision.QuoteID,
		QuoteID: decision.QuoteID,
	}, DecisionCreatedData{
		DecisionID:         decision.ID,
		SelectedSupplierID: decision.SelectedSupplierID,
		EvaluationScores:   decision.EvaluationScores,
	})
}

// TerminalHook publishes status changes from the negotiator. Publish failures are logged only.
func (e *Emitter) TerminalHook() negotiation.TerminalHook {
	return func(ctx context.Context, n models.Negotiation) {
		if err := e.EmitStatusChanged(ctx, n); err != nil {
			e.logger.WithContext(ctx).WithError(err).WithField("negotiation_id", n.ID).Warn("Failed to publish status change")
		}
	}
}

func (e *Emitter) emit(ctx context.Context, eventType EventType, event *kafka.Event, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	event.EventType = string(eventType)
	event.SchemaVersion = SchemaVersion
	event.Data = payload

	if err := e.publisher.Publish(ctx, event); err != nil {
		metrics.EventsPublishedTotal.WithLabelValues(string(eventType), "error").Inc()
		e.logger.WithContext(ctx).WithError(err).Errorf("Failed to emit %s event", eventType)
		return err
	}
	metrics.EventsPublishedTotal.WithLabelValues(string(eventType), "success").Inc()
	return nil
}
