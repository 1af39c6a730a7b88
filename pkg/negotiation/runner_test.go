package negotiation_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	negerrors "github.com/Ramsey-B/thistle/pkg/errors"
	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/negotiation"
	"github.com/Ramsey-B/thistle/pkg/toolcalls"
)

// scriptedAgent plays a fixed list of turns, resolving offer ids from the transcript.
type scriptedAgent struct {
	t      *testing.T
	turns  []func(input negotiation.AgentInput, lastOffer string) negotiation.Turn
	inputs []negotiation.AgentInput
}

func (a *scriptedAgent) NextTurn(ctx context.Context, input negotiation.AgentInput) (negotiation.Turn, error) {
	a.inputs = append(a.inputs, input)
	if len(a.turns) == 0 {
		return negotiation.Turn{}, errors.New("script exhausted")
	}
	next := a.turns[0]
	a.turns = a.turns[1:]
	return next(input, lastOfferID(a.t, input.Transcript)), nil
}

func lastOfferID(t *testing.T, transcript []models.Message) string {
	id := ""
	for _, msg := range transcript {
		if msg.Metadata == nil {
			continue
		}
		for _, encoded := range msg.Metadata.ToolCalls {
			record, err := toolcalls.DecodeRecord(encoded)
			require.NoError(t, err)
			if record.Effect == toolcalls.EffectPropose || record.Effect == toolcalls.EffectCounter {
				id = record.OfferID
			}
		}
	}
	return id
}

func TestRunner_RunsToAgreement(t *testing.T) {
	f := newFixture(t, negotiation.DefaultConfig(), nil)
	agent := &scriptedAgent{t: t}
	agent.turns = []func(negotiation.AgentInput, string) negotiation.Turn{
		func(_ negotiation.AgentInput, _ string) negotiation.Turn {
			return negotiation.Turn{Sender: models.SenderSupplier, ToolCall: call(t, toolcalls.ToolProposeOffer, toolcalls.ProposeArgs{SupplierID: 1, Offer: terms(30), Message: "30 per unit"})}
		},
		func(_ negotiation.AgentInput, last string) negotiation.Turn {
			return negotiation.Turn{Sender: models.SenderBrand, Content: "Thanks, let me check."}
		},
		func(_ negotiation.AgentInput, last string) negotiation.Turn {
			return negotiation.Turn{Sender: models.SenderBrand, ToolCall: call(t, toolcalls.ToolCounterOffer, toolcalls.CounterArgs{PreviousOfferID: last, CounterOffer: terms(26), ChangesExplanation: "volume", Message: "26?"})}
		},
		func(_ negotiation.AgentInput, last string) negotiation.Turn {
			return negotiation.Turn{Sender: models.SenderSupplier, ToolCall: call(t, toolcalls.ToolAcceptOffer, toolcalls.AcceptArgs{OfferID: last, AcceptedTerms: terms(26), ConfirmationMessage: "agreed"})}
		},
	}

	runner := negotiation.NewRunner(f.negotiator, negotiation.DefaultConfig(), getTestLogger())
	result, err := runner.Run(context.Background(), f.session, agent)
	require.NoError(t, err)
	assert.Equal(t, models.NegotiationStatusCompleted, result.Status)
	assert.Equal(t, 1, result.RoundCount)
	assert.Equal(t, 26.0, result.FinalOffer.UnitPrice)
	assert.Len(t, agent.inputs, 4)
}

func TestRunner_RepromptsOnInvalidTurn(t *testing.T) {
	f := newFixture(t, negotiation.DefaultConfig(), nil)
	agent := &scriptedAgent{t: t}
	agent.turns = []func(negotiation.AgentInput, string) negotiation.Turn{
		func(_ negotiation.AgentInput, _ string) negotiation.Turn {
			return negotiation.Turn{ToolCall: call(t, toolcalls.ToolProposeOffer, toolcalls.ProposeArgs{SupplierID: 1, Offer: terms(-5), Message: "oops"})}
		},
		func(input negotiation.AgentInput, _ string) negotiation.Turn {
			assert.True(t, negerrors.IsValidation(input.LastError))
			ended := true
			return negotiation.Turn{ToolCall: call(t, toolcalls.ToolRejectOffer, toolcalls.RejectArgs{OfferID: "missing", Reason: "x", IsNegotiationEnded: &ended, Message: "x"})}
		},
		func(_ negotiation.AgentInput, _ string) negotiation.Turn {
			return negotiation.Turn{ToolCall: call(t, toolcalls.ToolProposeOffer, toolcalls.ProposeArgs{SupplierID: 1, Offer: terms(5), Message: "fixed"})}
		},
	}

	config := negotiation.DefaultConfig()
	config.MaxInvalidTurns = 1
	runner := negotiation.NewRunner(f.negotiator, config, getTestLogger())
	_, err := runner.Run(context.Background(), f.session, agent)
	require.Error(t, err)
	assert.True(t, negerrors.IsValidation(err), "the second consecutive invalid turn halts the run")
	assert.Len(t, agent.inputs, 2)
}

func TestRunner_TurnLimit(t *testing.T) {
	f := newFixture(t, negotiation.DefaultConfig(), nil)
	agent := negotiation.AgentFunc(func(ctx context.Context, input negotiation.AgentInput) (negotiation.Turn, error) {
		return negotiation.Turn{Sender: models.SenderBrand, Content: "thinking"}, nil
	})

	config := negotiation.DefaultConfig()
	config.MaxTurns = 3
	runner := negotiation.NewRunner(f.negotiator, config, getTestLogger())
	result, err := runner.Run(context.Background(), f.session, agent)
	assert.ErrorIs(t, err, negotiation.ErrTurnLimitReached)
	assert.Equal(t, models.NegotiationStatusActive, result.Status)
	assert.Equal(t, 3, f.messageCount(t))
}

func TestRunner_SurfacesInterventions(t *testing.T) {
	f := newFixture(t, negotiation.DefaultConfig(), nil)
	f.propose(t, 30)
	_, err := f.negotiator.Apply(context.Background(), f.session, negotiation.Turn{Sender: models.SenderUser, Content: "ask for faster delivery"})
	require.NoError(t, err)

	var seen []models.Message
	agent := negotiation.AgentFunc(func(ctx context.Context, input negotiation.AgentInput) (negotiation.Turn, error) {
		seen = input.Interventions
		ended := true
		return negotiation.Turn{ToolCall: call(t, toolcalls.ToolRejectOffer, toolcalls.RejectArgs{OfferID: lastOfferID(t, input.Transcript), Reason: "done", IsNegotiationEnded: &ended, Message: "done"})}, nil
	})

	runner := negotiation.NewRunner(f.negotiator, negotiation.DefaultConfig(), getTestLogger())
	result, err := runner.Run(context.Background(), f.session, agent)
	require.NoError(t, err)
	assert.Equal(t, models.NegotiationStatusImpasse, result.Status)
	require.Len(t, seen, 1)
	assert.Equal(t, "ask for faster delivery", seen[0].Content)
}
