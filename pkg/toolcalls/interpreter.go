package toolcalls

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	negerrors "github.com/Ramsey-B/thistle/pkg/errors"
	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/offers"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Ledger is the read-only view of a negotiation the interpreter validates against
type Ledger interface {
	SupplierID() int
	// HasToolCalls reports whether any tool call has been applied yet.
	HasToolCalls() bool
	// LookupOffer returns terms issued earlier in this negotiation by propose or counter.
	LookupOffer(offerID string) (*models.Offer, bool)
}

type Interpreter struct {
	ids IDGenerator
}

func NewInterpreter(ids IDGenerator) *Interpreter {
	if ids == nil {
		ids = NewULIDGenerator()
	}
	return &Interpreter{ids: ids}
}

// Interpret decodes and dispatches a raw call.
func (i *Interpreter) Interpret(ledger Ledger, call Call) (*Outcome, error) {
	switch call.Tool {
	case ToolProposeOffer:
		args, err := DecodeArguments[ProposeArgs](call)
		if err != nil {
			return nil, err
		}
		return i.Propose(ledger, args)
	case ToolCounterOffer:
		args, err := DecodeArguments[CounterArgs](call)
		if err != nil {
			return nil, err
		}
		return i.CounterOffer(ledger, args)
	case ToolAcceptOffer:
		args, err := DecodeArguments[AcceptArgs](call)
		if err != nil {
			return nil, err
		}
		return i.AcceptOffer(ledger, args)
	case ToolRejectOffer:
		args, err := DecodeArguments[RejectArgs](call)
		if err != nil {
			return nil, err
		}
		return i.RejectOffer(ledger, args)
	case ToolSuggestSubstitution:
		args, err := DecodeArguments[SubstitutionArgs](call)
		if err != nil {
			return nil, err
		}
		return i.SuggestSubstitution(ledger, args)
	default:
		return nil, negerrors.Validationf("toolcalls.Interpret", "unknown tool %q", call.Tool)
	}
}

// DecodeArguments unmarshals and validates the arguments of a call.
func DecodeArguments[T any](call Call) (T, error) {
	var args T
	if len(call.Args) == 0 {
		return args, negerrors.Validationf("toolcalls.DecodeArguments", "%s: arguments are required", call.Tool)
	}
	if err := json.Unmarshal(call.Args, &args); err != nil {
		return args, negerrors.Validationf("toolcalls.DecodeArguments", "%s: malformed arguments: %v", call.Tool, err)
	}
	if err := checkArgs(call.Tool, args); err != nil {
		return args, err
	}
	return args, nil
}

func (i *Interpreter) Propose(ledger Ledger, args ProposeArgs) (*Outcome, error) {
	if err := checkArgs(ToolProposeOffer, args); err != nil {
		return nil, err
	}
	if ledger.HasToolCalls() {
		return nil, negerrors.Validationf("toolcalls.Propose", "propose-offer is only valid as the first tool call")
	}
	if args.SupplierID != ledger.SupplierID() {
		return nil, negerrors.Validationf("toolcalls.Propose", "supplierId %d does not match negotiation supplier %d", args.SupplierID, ledger.SupplierID())
	}

	offer, err := offers.Validate(args.Offer)
	if err != nil {
		return nil, err
	}

	result := ProposeResult{
		OfferID: i.ids.NewOfferID(args.SupplierID),
		Offer:   offer,
		Message: args.Message,
	}
	return outcome(ToolProposeOffer, EffectPropose, result.OfferID, "", offer, args.Message, "", args, result)
}

func (i *Interpreter) CounterOffer(ledger Ledger, args CounterArgs) (*Outcome, error) {
	if err := checkArgs(ToolCounterOffer, args); err != nil {
		return nil, err
	}
	if _, ok := ledger.LookupOffer(args.PreviousOfferID); !ok {
		return nil, negerrors.Validationf("toolcalls.CounterOffer", "unknown previousOfferId %q", args.PreviousOfferID)
	}

	offer, err := offers.Validate(args.CounterOffer)
	if err != nil {
		return nil, err
	}

	result := CounterResult{
		OfferID:            i.ids.NewOfferID(ledger.SupplierID()),
		PreviousOfferID:    args.PreviousOfferID,
		CounterOffer:       offer,
		ChangesExplanation: args.ChangesExplanation,
		Message:            args.Message,
	}
	return outcome(ToolCounterOffer, EffectCounter, result.OfferID, args.PreviousOfferID, offer, args.Message, args.ChangesExplanation, args, result)
}

func (i *Interpreter) AcceptOffer(ledger Ledger, args AcceptArgs) (*Outcome, error) {
	if err := checkArgs(ToolAcceptOffer, args); err != nil {
		return nil, err
	}
	referenced, ok := ledger.LookupOffer(args.OfferID)
	if !ok {
		return nil, negerrors.Validationf("toolcalls.AcceptOffer", "unknown offerId %q", args.OfferID)
	}

	terms, err := offers.Validate(args.AcceptedTerms)
	if err != nil {
		return nil, err
	}
	// line items the supplier attached to the referenced offer carry into the agreement
	if len(terms.Products) == 0 && referenced != nil && len(referenced.Products) > 0 {
		terms.Products = referenced.Clone().Products
	}

	result := AcceptResult{
		Status:        ResultStatusAccepted,
		OfferID:       args.OfferID,
		AcceptedTerms: terms,
		Message:       args.ConfirmationMessage,
	}
	return outcome(ToolAcceptOffer, EffectAccept, args.OfferID, "", terms, args.ConfirmationMessage, "", args, result)
}

func (i *Interpreter) RejectOffer(ledger Ledger, args RejectArgs) (*Outcome, error) {
	if err := checkArgs(ToolRejectOffer, args); err != nil {
		return nil, err
	}
	if _, ok := ledger.LookupOffer(args.OfferID); !ok {
		return nil, negerrors.Validationf("toolcalls.RejectOffer", "unknown offerId %q", args.OfferID)
	}

	effect, status := EffectSoftReject, ResultStatusRejected
	if *args.IsNegotiationEnded {
		effect, status = EffectHardReject, ResultStatusImpasse
	}

	result := RejectResult{
		Status:            status,
		OfferID:           args.OfferID,
		Reason:            args.Reason,
		Message:           args.Message,
		RejectionCategory: args.RejectionCategory,
	}
	return outcome(ToolRejectOffer, effect, args.OfferID, "", nil, args.Message, args.Reason, args, result)
}

// SuggestSubstitution is informational: it proposes an alternative product without changing terms.
func (i *Interpreter) SuggestSubstitution(ledger Ledger, args SubstitutionArgs) (*Outcome, error) {
	if err := checkArgs(ToolSuggestSubstitution, args); err != nil {
		return nil, err
	}
	if args.OriginalProductID == args.SubstituteProductID {
		return nil, negerrors.Validationf("toolcalls.SuggestSubstitution", "substitute must differ from original product %q", args.OriginalProductID)
	}

	result := SubstitutionResult{
		OriginalProductID:     args.OriginalProductID,
		SubstituteProductID:   args.SubstituteProductID,
		SubstituteProductName: args.SubstituteProductName,
		Reason:                args.Reason,
		UnitPrice:             args.UnitPrice,
		Message:               args.Message,
	}
	return outcome(ToolSuggestSubstitution, EffectSubstitution, "", "", nil, args.Message, args.Reason, args, result)
}

func outcome(tool Tool, effect Effect, offerID, previousOfferID string, offer *models.Offer, message, reason string, args any, result any) (*Outcome, error) {
	record, err := newRecord(tool, effect, offerID, previousOfferID, args, result)
	if err != nil {
		return nil, negerrors.Validationf("toolcalls.outcome", "%s: unencodable result: %v", tool, err)
	}
	return &Outcome{
		Tool:            tool,
		Effect:          effect,
		OfferID:         offerID,
		PreviousOfferID: previousOfferID,
		Offer:           offer,
		Message:         message,
		Reason:          reason,
		Result:          result,
		Record:          record,
	}, nil
}

func checkArgs(tool Tool, args any) error {
	err := validate.Struct(args)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return negerrors.Validationf("toolcalls.checkArgs", "%s: %v", tool, err)
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
	}
	return negerrors.Validationf("toolcalls.checkArgs", "%s: invalid arguments: %s", tool, strings.Join(fields, ", "))
}
