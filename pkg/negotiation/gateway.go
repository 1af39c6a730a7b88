package negotiation

import (
	"context"
	"time"

	"github.com/Ramsey-B/thistle/pkg/models"
)

// MessageInput is a transcript entry to append.
// PriorToolCalls is the number of tool calls the writer had seen. When the entry records a
// tool call, the store appends it only if its transcript still holds that many and otherwise
// reports a conflict.
type MessageInput struct {
	Sender         models.Sender
	Content        string
	Timestamp      time.Time
	Metadata       *models.MessageMetadata
	PriorToolCalls int
}

// RecordsToolCall reports whether the entry carries a tool call.
func (m MessageInput) RecordsToolCall() bool {
	return m.Metadata != nil && len(m.Metadata.ToolCalls) > 0
}

// StatusChange carries a round increment or terminal transition.
// FromRound is the round the writer observed; the store applies the change only if the
// negotiation is still active at that round and otherwise reports a conflict.
type StatusChange struct {
	Status        models.NegotiationStatus
	RoundCount    int
	FromRound     int
	FinalOffer    *models.Offer
	ImpasseReason *models.ImpasseReason
	CompletedAt   *time.Time
}

// OfferReceived summarizes a proposed or countered offer for observers
type OfferReceived struct {
	SupplierID   int     `json:"supplier_id"`
	OfferID      string  `json:"offer_id"`
	AvgPrice     float64 `json:"avg_price"`
	LeadTime     int     `json:"lead_time"`
	PaymentTerms string  `json:"payment_terms"`
}

// Gateway is the persistence callback contract.
// OnMessage and OnStatusChange must succeed for a turn to be applied. OnOfferReceived and
// GetUserInterventions are best-effort.
type Gateway interface {
	OnMessage(ctx context.Context, negotiationID string, msg MessageInput) (*models.Message, error)
	OnStatusChange(ctx context.Context, negotiationID string, change StatusChange) error
	OnOfferReceived(ctx context.Context, negotiationID string, offer OfferReceived) error
	GetUserInterventions(ctx context.Context, negotiationID string, since time.Time) ([]models.Message, error)
}

// TurnTransactor is implemented by gateways that can apply the writes of one turn atomically.
type TurnTransactor interface {
	WithinTurn(ctx context.Context, fn func(ctx context.Context) error) error
}

// Reader loads what is needed to resume a negotiation
type Reader interface {
	GetNegotiation(ctx context.Context, id string) (*models.Negotiation, error)
	ListMessages(ctx context.Context, negotiationID string) ([]models.Message, error)
	GetSourcingRequest(ctx context.Context, quoteID string) (*models.SourcingRequest, error)
}

// TurnLocker serializes turns for one negotiation across processes.
type TurnLocker interface {
	Lock(ctx context.Context, negotiationID string) (unlock func(context.Context), err error)
}
