package models

import "time"

// NegotiationStatus is the lifecycle state of a negotiation
type NegotiationStatus string

const (
	NegotiationStatusActive    NegotiationStatus = "active"
	NegotiationStatusCompleted NegotiationStatus = "completed"
	NegotiationStatusImpasse   NegotiationStatus = "impasse"
)

// IsTerminal reports whether the status is absorbing.
func (s NegotiationStatus) IsTerminal() bool {
	return s == NegotiationStatusCompleted || s == NegotiationStatusImpasse
}

// ImpasseReason records why a negotiation ended without agreement
type ImpasseReason string

const (
	ImpasseReasonAgentRejected   ImpasseReason = "agent_rejected"
	ImpasseReasonMaxRounds       ImpasseReason = "max_rounds"
	ImpasseReasonPriceStagnation ImpasseReason = "price_stagnation"
	ImpasseReasonPriceGap        ImpasseReason = "price_gap"
)

// Supplier slots are fixed for a sourcing request.
const (
	MinSupplierID = 1
	MaxSupplierID = 4
)

// Negotiation is the exchange between the buyer and one supplier for one sourcing request
type Negotiation struct {
	ID            string            `json:"id" db:"id"`
	QuoteID       string            `json:"quote_id" db:"quote_id"`
	SupplierID    int               `json:"supplier_id" db:"supplier_id"`
	Status        NegotiationStatus `json:"status" db:"status"`
	RoundCount    int               `json:"round_count" db:"round_count"`
	FinalOffer    *Offer            `json:"final_offer,omitempty" db:"-"`
	ImpasseReason *ImpasseReason    `json:"impasse_reason,omitempty" db:"impasse_reason"`
	CreatedAt     time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at" db:"updated_at"`
	CompletedAt   *time.Time        `json:"completed_at,omitempty" db:"completed_at"`
}

// IsTerminal reports whether the negotiation accepts no further mutations.
func (n *Negotiation) IsTerminal() bool {
	return n.Status.IsTerminal()
}
