package negotiation

import (
	"context"
	"errors"

	"github.com/Gobusters/ectologger"

	negerrors "github.com/Ramsey-B/thistle/pkg/errors"
	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/tracing"
)

// ErrTurnLimitReached is returned when the runner stops before the negotiation is terminal.
var ErrTurnLimitReached = errors.New("turn limit reached before the negotiation ended")

// AgentInput is what the agent sees before choosing its next turn
type AgentInput struct {
	Negotiation   models.Negotiation
	Transcript    []models.Message
	Interventions []models.Message
	// LastError is the rejection of the previous turn, if any, so the agent can correct itself.
	LastError error
}

// Agent produces the next turn of a negotiation. It may return any sequence of tool calls;
// the negotiator is responsible for rejecting the ones that make no sense.
type Agent interface {
	NextTurn(ctx context.Context, input AgentInput) (Turn, error)
}

// AgentFunc adapts a function to the Agent interface.
type AgentFunc func(ctx context.Context, input AgentInput) (Turn, error)

func (f AgentFunc) NextTurn(ctx context.Context, input AgentInput) (Turn, error) {
	return f(ctx, input)
}

// Runner drives an agent against a session until the negotiation ends
type Runner struct {
	negotiator *Negotiator
	config     Config
	logger     ectologger.Logger
}

func NewRunner(negotiator *Negotiator, config Config, logger ectologger.Logger) *Runner {
	return &Runner{
		negotiator: negotiator,
		config:     config,
		logger:     logger,
	}
}

// Run loops until the negotiation is terminal, the context is done or MaxTurns is exhausted.
// Validation errors are fed back to the agent up to MaxInvalidTurns consecutive times.
func (r *Runner) Run(ctx context.Context, s *Session, agent Agent) (models.Negotiation, error) {
	ctx, span := tracing.StartSpan(ctx, "negotiation.Runner.Run")
	defer span.End()

	var lastErr error
	invalid := 0
	for turn := 0; r.config.MaxTurns <= 0 || turn < r.config.MaxTurns; turn++ {
		if err := ctx.Err(); err != nil {
			return s.Snapshot(), err
		}

		current := s.Snapshot()
		if current.IsTerminal() {
			return current, nil
		}

		input := AgentInput{
			Negotiation:   current,
			Transcript:    s.Transcript(),
			Interventions: r.negotiator.Interventions(ctx, s),
			LastError:     lastErr,
		}

		next, err := agent.NextTurn(ctx, input)
		if err != nil {
			r.logger.WithContext(ctx).WithError(err).WithField("negotiation_id", s.ID()).Error("Agent failed to produce a turn")
			return s.Snapshot(), err
		}

		result, err := r.negotiator.Apply(ctx, s, next)
		if err != nil {
			if negerrors.IsValidation(err) && invalid < r.config.MaxInvalidTurns {
				invalid++
				lastErr = err
				r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
					"negotiation_id": s.ID(),
					"invalid_turns":  invalid,
				}).Warn("Agent turn rejected, re-prompting")
				continue
			}
			tracing.RecordError(span, err)
			return s.Snapshot(), err
		}

		invalid = 0
		lastErr = nil
		if result.Negotiation.IsTerminal() {
			return result.Negotiation, nil
		}
	}

	return s.Snapshot(), ErrTurnLimitReached
}
