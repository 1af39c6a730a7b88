package toolcalls

import (
	"encoding/json"
	"fmt"

	"github.com/Ramsey-B/thistle/pkg/models"
)

// Record is the persisted form of an interpreted call, stored in a message's metadata.
// Replaying the records of a transcript recovers the issued offers and price history.
type Record struct {
	Tool            Tool            `json:"tool"`
	Effect          Effect          `json:"effect"`
	OfferID         string          `json:"offerId,omitempty"`
	PreviousOfferID string          `json:"previousOfferId,omitempty"`
	Args            json.RawMessage `json:"args,omitempty"`
	Result          json.RawMessage `json:"result,omitempty"`
}

func (r Record) Encode() (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func DecodeRecord(s string) (Record, error) {
	var r Record
	if err := json.Unmarshal([]byte(s), &r); err != nil {
		return r, fmt.Errorf("invalid tool call record: %w", err)
	}
	return r, nil
}

// Offer returns the terms carried by the record's result, if any.
func (r Record) Offer() (*models.Offer, error) {
	switch r.Tool {
	case ToolProposeOffer:
		var res ProposeResult
		if err := json.Unmarshal(r.Result, &res); err != nil {
			return nil, err
		}
		return res.Offer, nil
	case ToolCounterOffer:
		var res CounterResult
		if err := json.Unmarshal(r.Result, &res); err != nil {
			return nil, err
		}
		return res.CounterOffer, nil
	case ToolAcceptOffer:
		var res AcceptResult
		if err := json.Unmarshal(r.Result, &res); err != nil {
			return nil, err
		}
		return res.AcceptedTerms, nil
	}
	return nil, nil
}

func newRecord(tool Tool, effect Effect, offerID, previousOfferID string, args any, result any) (Record, error) {
	rawArgs, err := json.Marshal(args)
	if err != nil {
		return Record{}, err
	}
	rawResult, err := json.Marshal(result)
	if err != nil {
		return Record{}, err
	}
	return Record{
		Tool:            tool,
		Effect:          effect,
		OfferID:         offerID,
		PreviousOfferID: previousOfferID,
		Args:            rawArgs,
		Result:          rawResult,
	}, nil
}
