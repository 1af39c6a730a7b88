package negotiation

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"

	negerrors "github.com/Ramsey-B/thistle/pkg/errors"
	"github.com/Ramsey-B/thistle/pkg/metrics"
	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/offers"
	"github.com/Ramsey-B/thistle/pkg/toolcalls"
	"github.com/Ramsey-B/thistle/pkg/tracing"
)

// Turn is one agent output: a message and at most one tool call
type Turn struct {
	Sender   models.Sender
	Content  string
	ToolCall *toolcalls.Call
	Metadata *models.MessageMetadata
}

// TurnResult describes what a turn did
type TurnResult struct {
	Negotiation models.Negotiation
	Message     *models.Message
	Outcome     *toolcalls.Outcome
	// Replayed is set when the turn repeated the terminal call and nothing was written.
	Replayed bool
	// Supervised is set when a heuristic, not the agent, ended the negotiation.
	Supervised *models.ImpasseReason
}

// TerminalHook observes negotiations entering completed or impasse
type TerminalHook func(ctx context.Context, n models.Negotiation)

// Negotiator applies agent turns to sessions and relays every transition to the gateway
type Negotiator struct {
	gateway     Gateway
	reader      Reader
	interpreter *toolcalls.Interpreter
	supervisor  *Supervisor
	locker      TurnLocker
	hooks       []TerminalHook
	logger      ectologger.Logger
	now         func() time.Time
}

type Option func(*Negotiator)

// WithLocker serializes turns across processes.
func WithLocker(locker TurnLocker) Option {
	return func(n *Negotiator) { n.locker = locker }
}

func WithTerminalHook(hook TerminalHook) Option {
	return func(n *Negotiator) { n.hooks = append(n.hooks, hook) }
}

func WithClock(now func() time.Time) Option {
	return func(n *Negotiator) { n.now = now }
}

func WithInterpreter(interpreter *toolcalls.Interpreter) Option {
	return func(n *Negotiator) { n.interpreter = interpreter }
}

func NewNegotiator(gateway Gateway, reader Reader, config Config, logger ectologger.Logger, opts ...Option) *Negotiator {
	n := &Negotiator{
		gateway:     gateway,
		reader:      reader,
		interpreter: toolcalls.NewInterpreter(nil),
		supervisor:  NewSupervisor(config),
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// AddTerminalHook registers a hook after construction.
func (n *Negotiator) AddTerminalHook(hook TerminalHook) {
	n.hooks = append(n.hooks, hook)
}

// Load rebuilds a session for the negotiation from the store.
func (n *Negotiator) Load(ctx context.Context, negotiationID string) (*Session, error) {
	ctx, span := tracing.StartSpan(ctx, "negotiation.Negotiator.Load")
	defer span.End()

	record, err := n.reader.GetNegotiation(ctx, negotiationID)
	if err != nil {
		return nil, err
	}
	transcript, err := n.reader.ListMessages(ctx, negotiationID)
	if err != nil {
		return nil, err
	}
	request, err := n.reader.GetSourcingRequest(ctx, record.QuoteID)
	if err != nil {
		return nil, err
	}

	return NewSession(record, transcript, request.TargetUnitPrice)
}

// Apply runs one turn against the session. The session may predate turns written by other
// processes; the gateway then rejects the write as a conflict. Use ApplyByID to read under
// the turn lock.
func (n *Negotiator) Apply(ctx context.Context, s *Session, turn Turn) (*TurnResult, error) {
	ctx, span := tracing.StartSpan(ctx, "negotiation.Negotiator.Apply")
	defer span.End()

	tool, done := observeTurn(turn)
	defer done()

	unlock, err := n.lock(ctx, s.ID(), tool)
	if err != nil {
		return nil, err
	}
	defer unlock(ctx)

	result, err := n.applyLocked(ctx, s, turn, tool)
	if err != nil {
		tracing.RecordError(span, err)
	}
	return result, err
}

// ApplyByID takes the turn lock, loads the negotiation and runs one turn against it.
func (n *Negotiator) ApplyByID(ctx context.Context, negotiationID string, turn Turn) (*TurnResult, error) {
	ctx, span := tracing.StartSpan(ctx, "negotiation.Negotiator.ApplyByID")
	defer span.End()

	tool, done := observeTurn(turn)
	defer done()

	unlock, err := n.lock(ctx, negotiationID, tool)
	if err != nil {
		return nil, err
	}
	defer unlock(ctx)

	s, err := n.Load(ctx, negotiationID)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	result, err := n.applyLocked(ctx, s, turn, tool)
	if err != nil {
		tracing.RecordError(span, err)
	}
	return result, err
}

func observeTurn(turn Turn) (tool string, done func()) {
	tool = "none"
	if turn.ToolCall != nil {
		tool = string(turn.ToolCall.Tool)
	}
	start := time.Now()
	return tool, func() {
		metrics.NegotiationTurnDuration.WithLabelValues(tool).Observe(time.Since(start).Seconds())
	}
}

func (n *Negotiator) lock(ctx context.Context, negotiationID, tool string) (func(context.Context), error) {
	if n.locker == nil {
		return func(context.Context) {}, nil
	}
	unlock, err := n.locker.Lock(ctx, negotiationID)
	if err != nil {
		metrics.NegotiationTurnsTotal.WithLabelValues(tool, "locked").Inc()
		return nil, negerrors.Wrap(negerrors.KindConflict, "negotiation.Negotiator.Apply", err, "another turn is in flight for this negotiation")
	}
	return unlock, nil
}

func (n *Negotiator) applyLocked(ctx context.Context, s *Session, turn Turn, tool string) (*TurnResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := n.apply(ctx, s, turn)
	if err != nil {
		metrics.NegotiationTurnsTotal.WithLabelValues(tool, string(negerrors.KindOf(err))).Inc()
		return nil, err
	}

	label := "applied"
	if result.Replayed {
		label = "replayed"
	}
	metrics.NegotiationTurnsTotal.WithLabelValues(tool, label).Inc()
	return result, nil
}

func (n *Negotiator) apply(ctx context.Context, s *Session, turn Turn) (*TurnResult, error) {
	current := s.negotiation
	log := n.logger.WithContext(ctx).WithFields(map[string]any{
		"negotiation_id": current.ID,
		"supplier_id":    current.SupplierID,
		"round_count":    current.RoundCount,
	})

	if turn.ToolCall == nil {
		if current.IsTerminal() {
			return nil, negerrors.Conflictf("negotiation.Negotiator.Apply", "negotiation %s is %s", current.ID, current.Status)
		}
		msg, err := n.writeTurn(ctx, s, turn, nil, nil)
		if err != nil {
			return nil, err
		}
		s.transcript = append(s.transcript, *msg)
		s.markAgentTurn(turn.Sender, msg.Timestamp)
		return &TurnResult{Negotiation: s.snapshot(), Message: msg}, nil
	}

	out, interpretErr := n.interpreter.Interpret(s, *turn.ToolCall)
	if current.IsTerminal() {
		if interpretErr == nil && s.isReplay(out) {
			log.WithField("tool", out.Tool).Debug("Ignoring replayed terminal tool call")
			return &TurnResult{Negotiation: s.snapshot(), Outcome: out, Replayed: true}, nil
		}
		return nil, negerrors.Conflictf("negotiation.Negotiator.Apply", "negotiation %s is %s", current.ID, current.Status)
	}
	if interpretErr != nil {
		log.WithError(interpretErr).Debug("Rejected tool call")
		return nil, interpretErr
	}

	next := current
	now := n.now()
	switch out.Effect {
	case toolcalls.EffectAccept:
		next.Status = models.NegotiationStatusCompleted
		next.FinalOffer = out.Offer.Clone()
		next.CompletedAt = &now
	case toolcalls.EffectHardReject:
		next.Status = models.NegotiationStatusImpasse
		next.ImpasseReason = reason(models.ImpasseReasonAgentRejected)
		next.CompletedAt = &now
	case toolcalls.EffectCounter, toolcalls.EffectSoftReject:
		next.RoundCount++
	}

	prices := s.prices
	if out.Offer != nil && (out.Effect == toolcalls.EffectPropose || out.Effect == toolcalls.EffectCounter) {
		prices = append(append([]float64{}, s.prices...), out.Offer.UnitPrice)
	}

	var supervised *models.ImpasseReason
	if !next.IsTerminal() {
		if triggered := n.supervisor.Evaluate(next.RoundCount, prices, s.target); triggered != nil {
			supervised = triggered
			next.Status = models.NegotiationStatusImpasse
			next.ImpasseReason = triggered
			next.CompletedAt = &now
		}
	}

	var change *StatusChange
	if next.Status != current.Status || next.RoundCount != current.RoundCount {
		change = &StatusChange{
			Status:        next.Status,
			RoundCount:    next.RoundCount,
			FromRound:     current.RoundCount,
			FinalOffer:    next.FinalOffer,
			ImpasseReason: next.ImpasseReason,
			CompletedAt:   next.CompletedAt,
		}
	}

	msg, err := n.writeTurn(ctx, s, turn, out, change)
	if err != nil {
		log.WithError(err).WithField("tool", out.Tool).Error("Failed to persist negotiation turn")
		return nil, err
	}

	// persisted; advance in-memory state
	next.UpdatedAt = now
	s.negotiation = next
	s.track(out.Effect, out.OfferID, out.Offer)
	s.transcript = append(s.transcript, *msg)
	s.markAgentTurn(turn.Sender, msg.Timestamp)

	if out.Effect == toolcalls.EffectPropose || out.Effect == toolcalls.EffectCounter {
		n.offerReceived(ctx, s, out)
	}

	if next.IsTerminal() {
		reasonLabel := ""
		if next.ImpasseReason != nil {
			reasonLabel = string(*next.ImpasseReason)
		}
		metrics.NegotiationTerminalTotal.WithLabelValues(string(next.Status), reasonLabel).Inc()
		log.WithFields(map[string]any{
			"status":         next.Status,
			"impasse_reason": reasonLabel,
			"tool":           out.Tool,
		}).Info("Negotiation reached a terminal status")

		snapshot := s.snapshot()
		for _, hook := range n.hooks {
			hook(ctx, snapshot)
		}
	}

	return &TurnResult{
		Negotiation: s.snapshot(),
		Message:     msg,
		Outcome:     out,
		Supervised:  supervised,
	}, nil
}

// writeTurn persists the message and, when present, the status change. Both go through one
// transaction when the gateway supports it.
func (n *Negotiator) writeTurn(ctx context.Context, s *Session, turn Turn, out *toolcalls.Outcome, change *StatusChange) (*models.Message, error) {
	input := MessageInput{
		Sender:         turn.Sender,
		Content:        turn.Content,
		Timestamp:      n.now(),
		Metadata:       turn.Metadata,
		PriorToolCalls: s.toolCalls,
	}
	if input.Sender == "" {
		input.Sender = models.SenderBrand
	}
	if out != nil {
		if input.Content == "" {
			input.Content = out.Message
		}
		encoded, err := out.Record.Encode()
		if err != nil {
			return nil, negerrors.Validationf("negotiation.Negotiator.writeTurn", "unencodable tool call: %v", err)
		}
		meta := models.MessageMetadata{}
		if turn.Metadata != nil {
			meta = *turn.Metadata
		}
		meta.ToolCalls = append(append([]string{}, meta.ToolCalls...), encoded)
		input.Metadata = &meta
	}

	var msg *models.Message
	writes := func(ctx context.Context) error {
		var err error
		msg, err = n.gateway.OnMessage(ctx, s.ID(), input)
		if err != nil {
			metrics.GatewayErrorsTotal.WithLabelValues("on_message").Inc()
			return negerrors.Dependency("negotiation.Negotiator.writeTurn", err, "failed to persist message")
		}
		if change == nil {
			return nil
		}
		if err := n.gateway.OnStatusChange(ctx, s.ID(), *change); err != nil {
			metrics.GatewayErrorsTotal.WithLabelValues("on_status_change").Inc()
			return negerrors.Dependency("negotiation.Negotiator.writeTurn", err, "failed to persist status change")
		}
		return nil
	}

	var err error
	if tx, ok := n.gateway.(TurnTransactor); ok {
		err = tx.WithinTurn(ctx, writes)
	} else {
		err = writes(ctx)
	}
	if err != nil {
		if negerrors.KindOf(err) == "" {
			// begin or commit failed; the writes classify their own errors
			err = negerrors.Wrap(negerrors.KindDependency, "negotiation.Negotiator.writeTurn", err, "failed to commit turn")
		}
		return nil, err
	}

	if msg == nil {
		msg = &models.Message{
			NegotiationID: s.ID(),
			Sender:        input.Sender,
			Content:       input.Content,
			Timestamp:     input.Timestamp,
			Metadata:      input.Metadata,
		}
	}
	return msg, nil
}

func (n *Negotiator) offerReceived(ctx context.Context, s *Session, out *toolcalls.Outcome) {
	event := OfferReceived{
		SupplierID:   s.negotiation.SupplierID,
		OfferID:      out.OfferID,
		AvgPrice:     offers.AveragePrice(out.Offer),
		LeadTime:     out.Offer.LeadTimeDays,
		PaymentTerms: out.Offer.PaymentTerms,
	}
	if err := n.gateway.OnOfferReceived(ctx, s.ID(), event); err != nil {
		metrics.GatewayErrorsTotal.WithLabelValues("on_offer_received").Inc()
		n.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"negotiation_id": s.ID(),
			"offer_id":       out.OfferID,
		}).Warn("Failed to relay offer received")
	}
}

// Interventions returns user messages posted since the last agent turn. Failures degrade to none.
func (n *Negotiator) Interventions(ctx context.Context, s *Session) []models.Message {
	ctx, span := tracing.StartSpan(ctx, "negotiation.Negotiator.Interventions")
	defer span.End()

	s.mu.Lock()
	since := s.lastAgentTurn
	s.mu.Unlock()

	msgs, err := n.gateway.GetUserInterventions(ctx, s.ID(), since)
	if err != nil {
		metrics.GatewayErrorsTotal.WithLabelValues("get_user_interventions").Inc()
		n.logger.WithContext(ctx).WithError(err).WithField("negotiation_id", s.ID()).Warn("Failed to fetch user interventions, continuing without them")
		return []models.Message{}
	}
	if msgs == nil {
		return []models.Message{}
	}
	return msgs
}

func (s *Session) markAgentTurn(sender models.Sender, at time.Time) {
	if sender != models.SenderUser && at.After(s.lastAgentTurn) {
		s.lastAgentTurn = at
	}
}
