package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/thistle/internal/repositories/repotest"
	negerrors "github.com/Ramsey-B/thistle/pkg/errors"
	"github.com/Ramsey-B/thistle/pkg/gateway/postgres"
	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/negotiation"
)

func seed(t *testing.T, gateway *postgres.Gateway) (*models.SourcingRequest, []*models.Negotiation) {
	t.Helper()
	target := 20.0
	request := &models.SourcingRequest{
		ID:                 uuid.New().String(),
		Title:              "integration",
		Status:             models.SourcingRequestStatusNegotiating,
		DecisionPriorities: models.DecisionPriorities{Quality: 25, Cost: 50, LeadTime: 15, PaymentTerms: 10},
		TargetUnitPrice:    &target,
		SupplierIDs:        []int{1, 2},
	}
	negotiations := []*models.Negotiation{
		{ID: uuid.New().String(), QuoteID: request.ID, SupplierID: 1, Status: models.NegotiationStatusActive},
		{ID: uuid.New().String(), QuoteID: request.ID, SupplierID: 2, Status: models.NegotiationStatusActive},
	}
	require.NoError(t, gateway.CreateSourcingRequest(context.Background(), request, negotiations))
	return request, negotiations
}

func TestGateway_SourcingRequestRoundTrip(t *testing.T) {
	db := repotest.GetTestDB(t)
	gateway := postgres.NewGateway(db, repotest.GetTestLogger())
	ctx := context.Background()

	request, negotiations := seed(t, gateway)

	stored, err := gateway.GetSourcingRequest(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, request.DecisionPriorities, stored.DecisionPriorities)
	assert.Equal(t, []int{1, 2}, stored.SupplierIDs)
	require.NotNil(t, stored.TargetUnitPrice)
	assert.Equal(t, 20.0, *stored.TargetUnitPrice)

	listed, err := gateway.ListNegotiations(ctx, request.ID)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, negotiations[0].ID, listed[0].ID)
	assert.Nil(t, listed[0].FinalOffer)

	err = gateway.CreateSourcingRequest(ctx, request, nil)
	assert.True(t, negerrors.IsConflict(err))
}

func TestGateway_TurnWrites(t *testing.T) {
	db := repotest.GetTestDB(t)
	gateway := postgres.NewGateway(db, repotest.GetTestLogger())
	ctx := context.Background()
	_, negotiations := seed(t, gateway)
	id := negotiations[0].ID

	err := gateway.WithinTurn(ctx, func(ctx context.Context) error {
		if _, err := gateway.OnMessage(ctx, id, negotiation.MessageInput{Sender: models.SenderSupplier, Content: "opening"}); err != nil {
			return err
		}
		return gateway.OnStatusChange(ctx, id, negotiation.StatusChange{Status: models.NegotiationStatusActive, RoundCount: 1, FromRound: 0})
	})
	require.NoError(t, err)

	// stale writer
	err = gateway.OnStatusChange(ctx, id, negotiation.StatusChange{Status: models.NegotiationStatusActive, RoundCount: 1, FromRound: 0})
	assert.True(t, negerrors.IsConflict(err))

	// a failing turn leaves no message behind
	boom := errors.New("boom")
	err = gateway.WithinTurn(ctx, func(ctx context.Context) error {
		if _, err := gateway.OnMessage(ctx, id, negotiation.MessageInput{Sender: models.SenderBrand, Content: "orphan"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	msgs, err := gateway.ListMessages(ctx, id)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "opening", msgs[0].Content)

	completedAt := time.Now().UTC().Truncate(time.Millisecond)
	offer := &models.Offer{UnitPrice: 21, LeadTimeDays: 30, PaymentTerms: "30/70"}
	require.NoError(t, gateway.OnStatusChange(ctx, id, negotiation.StatusChange{
		Status:      models.NegotiationStatusCompleted,
		RoundCount:  1,
		FromRound:   1,
		FinalOffer:  offer,
		CompletedAt: &completedAt,
	}))

	n, err := gateway.GetNegotiation(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.NegotiationStatusCompleted, n.Status)
	assert.Equal(t, offer.UnitPrice, n.FinalOffer.UnitPrice)
	require.NotNil(t, n.CompletedAt)

	_, err = gateway.OnMessage(ctx, id, negotiation.MessageInput{Sender: models.SenderBrand, Content: "late"})
	assert.True(t, negerrors.IsConflict(err))
}

func TestGateway_ToolCallCountGuardsMessages(t *testing.T) {
	db := repotest.GetTestDB(t)
	gateway := postgres.NewGateway(db, repotest.GetTestLogger())
	ctx := context.Background()
	_, negotiations := seed(t, gateway)
	id := negotiations[0].ID

	withCall := func(prior int) negotiation.MessageInput {
		return negotiation.MessageInput{
			Sender:         models.SenderSupplier,
			Content:        "opening",
			Metadata:       &models.MessageMetadata{ToolCalls: []string{`{"tool":"propose-offer"}`}},
			PriorToolCalls: prior,
		}
	}

	_, err := gateway.OnMessage(ctx, id, withCall(0))
	require.NoError(t, err)

	// a writer that had not seen the first call
	_, err = gateway.OnMessage(ctx, id, withCall(0))
	assert.True(t, negerrors.IsConflict(err))

	_, err = gateway.OnMessage(ctx, id, negotiation.MessageInput{Sender: models.SenderUser, Content: "note"})
	require.NoError(t, err)

	_, err = gateway.OnMessage(ctx, id, withCall(1))
	require.NoError(t, err)

	msgs, err := gateway.ListMessages(ctx, id)
	require.NoError(t, err)
	assert.Len(t, msgs, 3)
}

func TestGateway_UserInterventions(t *testing.T) {
	db := repotest.GetTestDB(t)
	gateway := postgres.NewGateway(db, repotest.GetTestLogger())
	ctx := context.Background()
	_, negotiations := seed(t, gateway)
	id := negotiations[1].ID

	base := time.Now().UTC().Truncate(time.Millisecond)
	for i, sender := range []models.Sender{models.SenderUser, models.SenderBrand, models.SenderUser} {
		_, err := gateway.OnMessage(ctx, id, negotiation.MessageInput{Sender: sender, Content: string(sender), Timestamp: base.Add(time.Duration(i) * time.Second)})
		require.NoError(t, err)
	}

	msgs, err := gateway.GetUserInterventions(ctx, id, base)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, models.SenderUser, msgs[0].Sender)
}

func TestGateway_DecisionUniqueness(t *testing.T) {
	db := repotest.GetTestDB(t)
	gateway := postgres.NewGateway(db, repotest.GetTestLogger())
	ctx := context.Background()
	request, _ := seed(t, gateway)

	first, err := gateway.CreateDecision(ctx, &models.Decision{
		QuoteID:            request.ID,
		SelectedSupplierID: 2,
		Reasoning:          "first",
		EvaluationScores:   map[string]models.ScoreBreakdown{"supplier2": {TotalScore: 76.6}},
	})
	require.NoError(t, err)

	_, err = gateway.CreateDecision(ctx, &models.Decision{QuoteID: request.ID, SelectedSupplierID: 1, Reasoning: "second"})
	require.Error(t, err)
	assert.True(t, negerrors.IsConflict(err))

	stored, err := gateway.GetDecision(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, stored.ID)
	assert.Equal(t, "first", stored.Reasoning)
	assert.Equal(t, 76.6, stored.EvaluationScores["supplier2"].TotalScore)

	completed, err := gateway.GetSourcingRequest(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SourcingRequestStatusCompleted, completed.Status)
}
