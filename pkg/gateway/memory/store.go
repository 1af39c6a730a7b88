// Package memory is an in-process store implementing the negotiation, sourcing and decision
// persistence contracts. It backs tests and single-node runs without Postgres.
package memory

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/google/uuid"

	negerrors "github.com/Ramsey-B/thistle/pkg/errors"
	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/negotiation"
)

// Operation names accepted by FailOn
const (
	OpOnMessage            = "on_message"
	OpOnStatusChange       = "on_status_change"
	OpOnOfferReceived      = "on_offer_received"
	OpGetUserInterventions = "get_user_interventions"
	OpCreateDecision       = "create_decision"
)

var (
	_ negotiation.Gateway        = (*Store)(nil)
	_ negotiation.TurnTransactor = (*Store)(nil)
	_ negotiation.Reader         = (*Store)(nil)
)

type Store struct {
	mu sync.RWMutex
	// turnMu serializes WithinTurn so a failed turn can be rolled back
	turnMu sync.Mutex

	requests     map[string]*models.SourcingRequest
	negotiations map[string]*models.Negotiation
	byQuote      map[string][]string
	messages     map[string][]models.Message
	decisions    map[string]*models.Decision
	offerEvents  map[string][]negotiation.OfferReceived

	failures map[string]error
	now      func() time.Time
}

func NewStore() *Store {
	return &Store{
		requests:     make(map[string]*models.SourcingRequest),
		negotiations: make(map[string]*models.Negotiation),
		byQuote:      make(map[string][]string),
		messages:     make(map[string][]models.Message),
		decisions:    make(map[string]*models.Decision),
		offerEvents:  make(map[string][]negotiation.OfferReceived),
		failures:     make(map[string]error),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// FailOn makes every call to op return err until cleared with a nil err.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

func (s *Store) failure(op string) error {
	return s.failures[op]
}

// WithinTurn runs fn and undoes its message and status writes if it fails.
func (s *Store) WithinTurn(ctx context.Context, fn func(ctx context.Context) error) error {
	s.turnMu.Lock()
	defer s.turnMu.Unlock()

	s.mu.RLock()
	lengths := make(map[string]int, len(s.messages))
	for id, msgs := range s.messages {
		lengths[id] = len(msgs)
	}
	records := make(map[string]models.Negotiation, len(s.negotiations))
	for id, n := range s.negotiations {
		records[id] = *n
	}
	s.mu.RUnlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		for id, msgs := range s.messages {
			s.messages[id] = msgs[:lengths[id]]
		}
		for id, n := range records {
			restored := n
			s.negotiations[id] = &restored
		}
		return err
	}
	return nil
}

// CreateSourcingRequest stores the request and its negotiations together.
func (s *Store) CreateSourcingRequest(ctx context.Context, request *models.SourcingRequest, negotiations []*models.Negotiation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.requests[request.ID]; ok {
		return negerrors.Conflictf("memory.Store.CreateSourcingRequest", "sourcing request %s already exists", request.ID)
	}
	seen := map[int]bool{}
	for _, n := range negotiations {
		if seen[n.SupplierID] {
			return negerrors.Conflictf("memory.Store.CreateSourcingRequest", "duplicate negotiation for supplier %d", n.SupplierID)
		}
		seen[n.SupplierID] = true
	}

	r := *request
	s.requests[r.ID] = &r
	for _, n := range negotiations {
		c := *n
		s.negotiations[c.ID] = &c
		s.byQuote[r.ID] = append(s.byQuote[r.ID], c.ID)
	}
	return nil
}

// PutNegotiation inserts or replaces a negotiation record directly.
func (s *Store) PutNegotiation(n models.Negotiation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.negotiations[n.ID]; !ok {
		s.byQuote[n.QuoteID] = append(s.byQuote[n.QuoteID], n.ID)
	}
	n.FinalOffer = n.FinalOffer.Clone()
	s.negotiations[n.ID] = &n
}

func (s *Store) GetSourcingRequest(ctx context.Context, quoteID string) (*models.SourcingRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.requests[quoteID]
	if !ok {
		return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("sourcing request %s not found", quoteID))
	}
	c := *r
	return &c, nil
}

func (s *Store) GetNegotiation(ctx context.Context, id string) (*models.Negotiation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.negotiations[id]
	if !ok {
		return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("negotiation %s not found", id))
	}
	c := *n
	c.FinalOffer = n.FinalOffer.Clone()
	return &c, nil
}

// ListNegotiations returns the request's negotiations ordered by supplier id.
func (s *Store) ListNegotiations(ctx context.Context, quoteID string) ([]models.Negotiation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Negotiation, 0, len(s.byQuote[quoteID]))
	for _, id := range s.byQuote[quoteID] {
		c := *s.negotiations[id]
		c.FinalOffer = s.negotiations[id].FinalOffer.Clone()
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SupplierID < out[j].SupplierID })
	return out, nil
}

func (s *Store) ListMessages(ctx context.Context, negotiationID string) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Message, len(s.messages[negotiationID]))
	copy(out, s.messages[negotiationID])
	return out, nil
}

func (s *Store) OnMessage(ctx context.Context, negotiationID string, msg negotiation.MessageInput) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failure(OpOnMessage); err != nil {
		return nil, err
	}
	n, ok := s.negotiations[negotiationID]
	if !ok {
		return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("negotiation %s not found", negotiationID))
	}
	if n.IsTerminal() {
		return nil, negerrors.Conflictf("memory.Store.OnMessage", "negotiation %s is %s", negotiationID, n.Status)
	}
	if msg.RecordsToolCall() {
		if stored := s.toolCalls(negotiationID); stored != msg.PriorToolCalls {
			return nil, negerrors.Conflictf("memory.Store.OnMessage", "negotiation %s has %d tool calls, writer saw %d", negotiationID, stored, msg.PriorToolCalls)
		}
	}

	timestamp := msg.Timestamp
	if timestamp.IsZero() {
		timestamp = s.now()
	}
	stored := models.Message{
		ID:            uuid.New().String(),
		NegotiationID: negotiationID,
		Sender:        msg.Sender,
		Content:       msg.Content,
		Timestamp:     timestamp,
		Metadata:      msg.Metadata,
	}
	s.messages[negotiationID] = append(s.messages[negotiationID], stored)
	return &stored, nil
}

func (s *Store) toolCalls(negotiationID string) int {
	count := 0
	for _, msg := range s.messages[negotiationID] {
		if msg.Metadata != nil {
			count += len(msg.Metadata.ToolCalls)
		}
	}
	return count
}

// OnStatusChange applies the change only while the negotiation is active at change.FromRound.
func (s *Store) OnStatusChange(ctx context.Context, negotiationID string, change negotiation.StatusChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failure(OpOnStatusChange); err != nil {
		return err
	}
	n, ok := s.negotiations[negotiationID]
	if !ok {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("negotiation %s not found", negotiationID))
	}
	if n.IsTerminal() || n.RoundCount != change.FromRound {
		return negerrors.Conflictf("memory.Store.OnStatusChange", "negotiation %s is %s at round %d, expected active at round %d", negotiationID, n.Status, n.RoundCount, change.FromRound)
	}

	n.Status = change.Status
	n.RoundCount = change.RoundCount
	n.UpdatedAt = s.now()
	if change.Status.IsTerminal() {
		n.FinalOffer = change.FinalOffer.Clone()
		n.ImpasseReason = change.ImpasseReason
		completedAt := n.UpdatedAt
		if change.CompletedAt != nil {
			completedAt = *change.CompletedAt
		}
		n.CompletedAt = &completedAt
	}
	return nil
}

func (s *Store) OnOfferReceived(ctx context.Context, negotiationID string, offer negotiation.OfferReceived) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failure(OpOnOfferReceived); err != nil {
		return err
	}
	s.offerEvents[negotiationID] = append(s.offerEvents[negotiationID], offer)
	return nil
}

// OffersReceived returns the offer summaries relayed for a negotiation.
func (s *Store) OffersReceived(negotiationID string) []negotiation.OfferReceived {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]negotiation.OfferReceived, len(s.offerEvents[negotiationID]))
	copy(out, s.offerEvents[negotiationID])
	return out
}

func (s *Store) GetUserInterventions(ctx context.Context, negotiationID string, since time.Time) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.failure(OpGetUserInterventions); err != nil {
		return nil, err
	}
	out := []models.Message{}
	for _, msg := range s.messages[negotiationID] {
		if msg.Sender == models.SenderUser && msg.Timestamp.After(since) {
			out = append(out, msg)
		}
	}
	return out, nil
}

// CreateDecision stores the decision and completes its sourcing request. A second decision
// for the same quote is a conflict and leaves the first untouched.
func (s *Store) CreateDecision(ctx context.Context, decision *models.Decision) (*models.Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failure(OpCreateDecision); err != nil {
		return nil, err
	}
	if _, ok := s.decisions[decision.QuoteID]; ok {
		return nil, negerrors.Conflictf("memory.Store.CreateDecision", "decision for quote %s already exists", decision.QuoteID)
	}

	d := *decision
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = s.now()
	}
	s.decisions[d.QuoteID] = &d

	if r, ok := s.requests[d.QuoteID]; ok {
		completedAt := d.CreatedAt
		r.Status = models.SourcingRequestStatusCompleted
		r.CompletedAt = &completedAt
		r.UpdatedAt = completedAt
	}

	c := d
	return &c, nil
}

func (s *Store) GetDecision(ctx context.Context, quoteID string) (*models.Decision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.decisions[quoteID]
	if !ok {
		return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("decision for quote %s not found", quoteID))
	}
	c := *d
	return &c, nil
}
