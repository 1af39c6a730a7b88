// Package toolcalls interprets the structured function calls an agent emits during a negotiation.
// It is pure: it returns what should happen and never persists anything.
package toolcalls

import (
	"encoding/json"

	"github.com/Ramsey-B/thistle/pkg/models"
)

// Tool names the agent-facing function
type Tool string

const (
	ToolProposeOffer        Tool = "propose-offer"
	ToolCounterOffer        Tool = "counter-offer"
	ToolAcceptOffer         Tool = "accept-offer"
	ToolRejectOffer         Tool = "reject-offer"
	ToolSuggestSubstitution Tool = "suggest-substitution"
)

// Call is a single tool invocation with raw JSON arguments
type Call struct {
	Tool Tool            `json:"tool"`
	Args json.RawMessage `json:"args"`
}

// ProposeArgs are the propose-offer arguments; valid only as the first tool call
type ProposeArgs struct {
	SupplierID int           `json:"supplierId" validate:"gte=1,lte=4"`
	Offer      *models.Offer `json:"offer" validate:"required"`
	Message    string        `json:"message" validate:"required"`
}

// CounterArgs are the counter-offer arguments
type CounterArgs struct {
	PreviousOfferID    string        `json:"previousOfferId" validate:"required"`
	CounterOffer       *models.Offer `json:"counterOffer" validate:"required"`
	ChangesExplanation string        `json:"changesExplanation" validate:"required"`
	Message            string        `json:"message" validate:"required"`
}

// AcceptArgs are the accept-offer arguments
type AcceptArgs struct {
	OfferID             string        `json:"offerId" validate:"required"`
	AcceptedTerms       *models.Offer `json:"acceptedTerms" validate:"required"`
	ConfirmationMessage string        `json:"confirmationMessage" validate:"required"`
}

// RejectArgs are the reject-offer arguments. IsNegotiationEnded decides between impasse and another round
type RejectArgs struct {
	OfferID            string `json:"offerId" validate:"required"`
	Reason             string `json:"reason" validate:"required"`
	IsNegotiationEnded *bool  `json:"isNegotiationEnded" validate:"required"`
	Message            string `json:"message" validate:"required"`
	RejectionCategory  string `json:"rejectionCategory,omitempty"`
}

// SubstitutionArgs are the suggest-substitution arguments
type SubstitutionArgs struct {
	OriginalProductID     string   `json:"originalProductId" validate:"required"`
	SubstituteProductID   string   `json:"substituteProductId" validate:"required"`
	SubstituteProductName string   `json:"substituteProductName"`
	Reason                string   `json:"reason" validate:"required"`
	UnitPrice             *float64 `json:"unitPrice,omitempty" validate:"omitempty,gt=0"`
	Message               string   `json:"message" validate:"required"`
}

// ProposeResult is returned to the agent for propose-offer
type ProposeResult struct {
	OfferID string        `json:"offerId"`
	Offer   *models.Offer `json:"offer"`
	Message string        `json:"message"`
}

// CounterResult is returned to the agent for counter-offer
type CounterResult struct {
	OfferID            string        `json:"offerId"`
	PreviousOfferID    string        `json:"previousOfferId"`
	CounterOffer       *models.Offer `json:"counterOffer"`
	ChangesExplanation string        `json:"changesExplanation"`
	Message            string        `json:"message"`
}

// Status values reported in accept and reject results
const (
	ResultStatusAccepted = "accepted"
	ResultStatusRejected = "rejected"
	ResultStatusImpasse  = "impasse"
)

// AcceptResult is returned to the agent for accept-offer
type AcceptResult struct {
	Status        string        `json:"status"`
	OfferID       string        `json:"offerId"`
	AcceptedTerms *models.Offer `json:"acceptedTerms"`
	Message       string        `json:"message"`
}

// RejectResult is returned to the agent for reject-offer
type RejectResult struct {
	Status            string `json:"status"`
	OfferID           string `json:"offerId"`
	Reason            string `json:"reason"`
	Message           string `json:"message"`
	RejectionCategory string `json:"rejectionCategory,omitempty"`
}

// SubstitutionResult is returned to the agent for suggest-substitution
type SubstitutionResult struct {
	OriginalProductID     string   `json:"originalProductId"`
	SubstituteProductID   string   `json:"substituteProductId"`
	SubstituteProductName string   `json:"substituteProductName,omitempty"`
	Reason                string   `json:"reason"`
	UnitPrice             *float64 `json:"unitPrice,omitempty"`
	Message               string   `json:"message"`
}

// Effect is the state transition implied by an interpreted call
type Effect string

const (
	EffectPropose      Effect = "propose"
	EffectCounter      Effect = "counter"
	EffectAccept       Effect = "accept"
	EffectSoftReject   Effect = "soft_reject"
	EffectHardReject   Effect = "hard_reject"
	EffectSubstitution Effect = "substitution"
)

// Terminal reports whether the effect ends the negotiation.
func (e Effect) Terminal() bool {
	return e == EffectAccept || e == EffectHardReject
}

// AdvancesRound reports whether the effect closes a counter round.
func (e Effect) AdvancesRound() bool {
	return e == EffectCounter || e == EffectSoftReject
}

// Outcome is everything the state machine needs to apply one call
type Outcome struct {
	Tool   Tool
	Effect Effect
	// OfferID is the issued id for propose/counter and the referenced id for accept/reject.
	OfferID         string
	PreviousOfferID string
	// Offer holds the proposed, countered or accepted terms.
	Offer   *models.Offer
	Message string
	Reason  string
	Result  any
	Record  Record
}
