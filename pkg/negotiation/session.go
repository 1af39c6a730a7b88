package negotiation

import (
	"fmt"
	"sort"
	"sync"
	"time"

	negerrors "github.com/Ramsey-B/thistle/pkg/errors"
	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/toolcalls"
)

// Session is the in-memory state machine for one negotiation. It is rebuilt from the
// persisted negotiation and its transcript, so any process can resume where another left off.
// A Session is safe for concurrent use; turns are applied one at a time.
type Session struct {
	mu sync.Mutex

	negotiation models.Negotiation
	target      *float64
	transcript  []models.Message

	offers    map[string]*models.Offer
	prices    []float64
	toolCalls int

	// terminal call, kept to recognize replays
	terminalEffect  toolcalls.Effect
	terminalOfferID string

	lastAgentTurn time.Time
}

// NewSession rebuilds a session from history. targetPrice may be nil.
func NewSession(n *models.Negotiation, transcript []models.Message, targetPrice *float64) (*Session, error) {
	if n == nil {
		return nil, negerrors.Preconditionf("negotiation.NewSession", "negotiation is required")
	}

	s := &Session{
		negotiation: *n,
		target:      targetPrice,
		offers:      make(map[string]*models.Offer),
	}
	s.negotiation.FinalOffer = n.FinalOffer.Clone()

	msgs := make([]models.Message, len(transcript))
	copy(msgs, transcript)
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Timestamp.Before(msgs[j].Timestamp)
	})

	for _, msg := range msgs {
		if err := s.replay(msg); err != nil {
			return nil, negerrors.Wrap(negerrors.KindPrecondition, "negotiation.NewSession", err, fmt.Sprintf("unreadable tool call in message %s", msg.ID))
		}
		s.transcript = append(s.transcript, msg)
	}

	return s, nil
}

func (s *Session) replay(msg models.Message) error {
	if msg.Sender != models.SenderUser && msg.Timestamp.After(s.lastAgentTurn) {
		s.lastAgentTurn = msg.Timestamp
	}
	if msg.Metadata == nil {
		return nil
	}

	for _, encoded := range msg.Metadata.ToolCalls {
		record, err := toolcalls.DecodeRecord(encoded)
		if err != nil {
			return err
		}
		offer, err := record.Offer()
		if err != nil {
			return err
		}
		s.track(record.Effect, record.OfferID, offer)
	}
	return nil
}

// track folds one applied call into the ledger. Callers hold mu or own the session exclusively.
func (s *Session) track(effect toolcalls.Effect, offerID string, offer *models.Offer) {
	s.toolCalls++
	switch effect {
	case toolcalls.EffectPropose, toolcalls.EffectCounter:
		if offer != nil {
			s.offers[offerID] = offer
			s.prices = append(s.prices, offer.UnitPrice)
		}
	case toolcalls.EffectAccept, toolcalls.EffectHardReject:
		s.terminalEffect = effect
		s.terminalOfferID = offerID
	}
}

// isReplay reports whether the outcome repeats the call that already ended the negotiation.
func (s *Session) isReplay(out *toolcalls.Outcome) bool {
	return s.terminalEffect != "" && out.Effect == s.terminalEffect && out.OfferID == s.terminalOfferID
}

// ID returns the negotiation id.
func (s *Session) ID() string {
	return s.negotiation.ID
}

// Snapshot returns a copy of the current negotiation record.
func (s *Session) Snapshot() models.Negotiation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Session) snapshot() models.Negotiation {
	n := s.negotiation
	n.FinalOffer = s.negotiation.FinalOffer.Clone()
	return n
}

// Transcript returns the ordered messages seen by this session.
func (s *Session) Transcript() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Message, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// Prices returns the unit prices proposed so far, oldest first.
func (s *Session) Prices() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]float64, len(s.prices))
	copy(out, s.prices)
	return out
}

// Ledger methods; called by the interpreter while mu is held.

func (s *Session) SupplierID() int {
	return s.negotiation.SupplierID
}

func (s *Session) HasToolCalls() bool {
	return s.toolCalls > 0
}

func (s *Session) LookupOffer(offerID string) (*models.Offer, bool) {
	offer, ok := s.offers[offerID]
	return offer, ok
}
