package decision_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Ramsey-B/thistle/pkg/decision"
	negerrors "github.com/Ramsey-B/thistle/pkg/errors"
	"github.com/Ramsey-B/thistle/pkg/gateway/memory"
	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/negotiation"
	"github.com/Ramsey-B/thistle/pkg/scoring"
	"github.com/Ramsey-B/thistle/pkg/toolcalls"
)

func getTestLogger() ectologger.Logger {
	return zapadapter.NewZapEctoLogger(zap.NewNop(), nil)
}

type recordingPublisher struct {
	mu        sync.Mutex
	decisions []*models.Decision
}

func (p *recordingPublisher) EmitDecisionCreated(ctx context.Context, d *models.Decision) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.decisions = append(p.decisions, d)
	return nil
}

var priorities = models.DecisionPriorities{Quality: 25, Cost: 50, LeadTime: 15, PaymentTerms: 10}

func seedQuote(t *testing.T, store *memory.Store, quoteID string, supplierIDs ...int) []*models.Negotiation {
	t.Helper()
	negotiations := make([]*models.Negotiation, 0, len(supplierIDs))
	for _, id := range supplierIDs {
		negotiations = append(negotiations, &models.Negotiation{
			ID:         fmt.Sprintf("%s-s%d", quoteID, id),
			QuoteID:    quoteID,
			SupplierID: id,
			Status:     models.NegotiationStatusActive,
		})
	}
	require.NoError(t, store.CreateSourcingRequest(context.Background(), &models.SourcingRequest{
		ID:                 quoteID,
		Status:             models.SourcingRequestStatusNegotiating,
		DecisionPriorities: priorities,
		SupplierIDs:        supplierIDs,
	}, negotiations))
	return negotiations
}

func complete(store *memory.Store, n *models.Negotiation, price float64, leadTime int) {
	c := *n
	c.Status = models.NegotiationStatusCompleted
	c.FinalOffer = &models.Offer{UnitPrice: price, LeadTimeDays: leadTime, PaymentTerms: "30/70"}
	store.PutNegotiation(c)
}

func TestCoordinator_Decide(t *testing.T) {
	store := memory.NewStore()
	publisher := &recordingPublisher{}
	coordinator := decision.NewCoordinator(store, scoring.NewEngine(scoring.DefaultConfig()), getTestLogger(), decision.WithPublisher(publisher))

	negotiations := seedQuote(t, store, "quote-1", 1, 2, 3)
	complete(store, negotiations[0], 25, 30)
	complete(store, negotiations[1], 22, 35)
	complete(store, negotiations[2], 28, 20)

	created, err := coordinator.Decide(context.Background(), "quote-1")
	require.NoError(t, err)

	assert.Equal(t, 2, created.SelectedSupplierID)
	assert.NotEmpty(t, created.ID)
	assert.Len(t, created.EvaluationScores, 4)
	assert.Equal(t, 76.6, created.EvaluationScores["supplier2"].TotalScore)
	assert.Equal(t, models.ScoreBreakdown{}, created.EvaluationScores["supplier4"])

	request, err := store.GetSourcingRequest(context.Background(), "quote-1")
	require.NoError(t, err)
	assert.Equal(t, models.SourcingRequestStatusCompleted, request.Status)
	assert.NotNil(t, request.CompletedAt)

	require.Len(t, publisher.decisions, 1)
	assert.Equal(t, created.ID, publisher.decisions[0].ID)
}

func TestCoordinator_DecideTwiceConflicts(t *testing.T) {
	store := memory.NewStore()
	coordinator := decision.NewCoordinator(store, scoring.NewEngine(scoring.DefaultConfig()), getTestLogger())

	negotiations := seedQuote(t, store, "quote-2", 1, 2)
	complete(store, negotiations[0], 20, 30)
	complete(store, negotiations[1], 30, 30)

	first, err := coordinator.Decide(context.Background(), "quote-2")
	require.NoError(t, err)

	_, err = coordinator.Decide(context.Background(), "quote-2")
	require.Error(t, err)
	assert.True(t, negerrors.IsConflict(err))

	stored, err := store.GetDecision(context.Background(), "quote-2")
	require.NoError(t, err)
	assert.Equal(t, first.ID, stored.ID)
	assert.Equal(t, first.SelectedSupplierID, stored.SelectedSupplierID)
}

func TestCoordinator_DecideRequiresTerminalNegotiations(t *testing.T) {
	store := memory.NewStore()
	coordinator := decision.NewCoordinator(store, scoring.NewEngine(scoring.DefaultConfig()), getTestLogger())

	negotiations := seedQuote(t, store, "quote-3", 1, 2)
	complete(store, negotiations[0], 20, 30)

	_, err := coordinator.Decide(context.Background(), "quote-3")
	require.Error(t, err)
	assert.True(t, negerrors.IsPrecondition(err))

	_, err = store.GetDecision(context.Background(), "quote-3")
	assert.Error(t, err)
}

func TestCoordinator_DecideWithoutCompletedNegotiation(t *testing.T) {
	store := memory.NewStore()
	coordinator := decision.NewCoordinator(store, scoring.NewEngine(scoring.DefaultConfig()), getTestLogger())

	negotiations := seedQuote(t, store, "quote-4", 1)
	failed := *negotiations[0]
	failed.Status = models.NegotiationStatusImpasse
	store.PutNegotiation(failed)

	_, err := coordinator.Decide(context.Background(), "quote-4")
	require.Error(t, err)
	assert.True(t, negerrors.IsPrecondition(err))
}

func TestCoordinator_OnTerminalWaitsForAll(t *testing.T) {
	store := memory.NewStore()
	coordinator := decision.NewCoordinator(store, scoring.NewEngine(scoring.DefaultConfig()), getTestLogger())

	negotiations := seedQuote(t, store, "quote-5", 1, 2)
	complete(store, negotiations[0], 20, 30)

	coordinator.OnTerminal(context.Background(), *negotiations[0])
	_, err := store.GetDecision(context.Background(), "quote-5")
	assert.Error(t, err, "one negotiation is still active")

	complete(store, negotiations[1], 24, 20)
	coordinator.OnTerminal(context.Background(), *negotiations[1])
	stored, err := store.GetDecision(context.Background(), "quote-5")
	require.NoError(t, err)
	assert.Equal(t, "quote-5", stored.QuoteID)
}

func call(t *testing.T, tool toolcalls.Tool, args any) *toolcalls.Call {
	t.Helper()
	raw, err := json.Marshal(args)
	require.NoError(t, err)
	return &toolcalls.Call{Tool: tool, Args: raw}
}

// Negotiations finishing concurrently race to trigger the decision; exactly one is recorded.
func TestCoordinator_AutomaticDecisionFromNegotiator(t *testing.T) {
	store := memory.NewStore()
	publisher := &recordingPublisher{}
	coordinator := decision.NewCoordinator(store, scoring.NewEngine(scoring.DefaultConfig()), getTestLogger(), decision.WithPublisher(publisher))
	negotiator := negotiation.NewNegotiator(store, store, negotiation.DefaultConfig(), getTestLogger(),
		negotiation.WithTerminalHook(coordinator.OnTerminal))

	negotiations := seedQuote(t, store, "quote-6", 1, 2, 3)
	finals := map[int]*models.Offer{
		1: {UnitPrice: 25, LeadTimeDays: 30, PaymentTerms: "30/70"},
		2: {UnitPrice: 22, LeadTimeDays: 35, PaymentTerms: "30/70"},
		3: {UnitPrice: 28, LeadTimeDays: 20, PaymentTerms: "30/70"},
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(negotiations))
	for _, n := range negotiations {
		wg.Add(1)
		go func(n *models.Negotiation) {
			defer wg.Done()
			ctx := context.Background()
			session, err := negotiator.Load(ctx, n.ID)
			if err != nil {
				errs <- err
				return
			}
			proposed, err := negotiator.Apply(ctx, session, negotiation.Turn{
				Sender: models.SenderSupplier,
				ToolCall: call(t, toolcalls.ToolProposeOffer, toolcalls.ProposeArgs{
					SupplierID: n.SupplierID,
					Offer:      finals[n.SupplierID],
					Message:    "Our opening offer",
				}),
			})
			if err != nil {
				errs <- err
				return
			}
			_, err = negotiator.Apply(ctx, session, negotiation.Turn{
				Sender: models.SenderBrand,
				ToolCall: call(t, toolcalls.ToolAcceptOffer, toolcalls.AcceptArgs{
					OfferID:             proposed.Outcome.OfferID,
					AcceptedTerms:       finals[n.SupplierID],
					ConfirmationMessage: "Agreed",
				}),
			})
			if err != nil {
				errs <- err
			}
		}(n)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	stored, err := store.GetDecision(context.Background(), "quote-6")
	require.NoError(t, err)
	assert.Equal(t, 2, stored.SelectedSupplierID)
	assert.Equal(t, 59.5, stored.EvaluationScores["supplier1"].TotalScore)
	assert.Equal(t, 41.55, stored.EvaluationScores["supplier3"].TotalScore)
	assert.Len(t, publisher.decisions, 1)
}
