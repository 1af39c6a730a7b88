package handlers

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/negotiation"
	"github.com/Ramsey-B/thistle/pkg/toolcalls"
	"github.com/Ramsey-B/thistle/pkg/tracing"
)

// NegotiationReader reads negotiations and their transcripts
type NegotiationReader interface {
	GetNegotiation(ctx context.Context, id string) (*models.Negotiation, error)
	ListMessages(ctx context.Context, negotiationID string) ([]models.Message, error)
}

// NegotiationHandler handles negotiation endpoints. Every turn reloads the session from the
// store so any replica can serve any negotiation.
type NegotiationHandler struct {
	negotiator *negotiation.Negotiator
	reader     NegotiationReader
	logger     ectologger.Logger
}

func NewNegotiationHandler(negotiator *negotiation.Negotiator, reader NegotiationReader, logger ectologger.Logger) *NegotiationHandler {
	return &NegotiationHandler{
		negotiator: negotiator,
		reader:     reader,
		logger:     logger,
	}
}

// TurnRequest is one agent turn: a message and at most one tool call
type TurnRequest struct {
	Sender   models.Sender           `json:"sender" validate:"required,oneof=brand supplier"`
	Content  string                  `json:"content"`
	ToolCall *toolcalls.Call         `json:"tool_call,omitempty"`
	Metadata *models.MessageMetadata `json:"metadata,omitempty"`
}

// InterventionRequest is a message from the human operator
type InterventionRequest struct {
	Content string `json:"content" validate:"required"`
}

// TurnResponse describes the applied turn
type TurnResponse struct {
	Negotiation models.Negotiation    `json:"negotiation"`
	Message     *models.Message       `json:"message,omitempty"`
	ToolCall    *toolcalls.Record     `json:"tool_call,omitempty"`
	Replayed    bool                  `json:"replayed"`
	Supervised  *models.ImpasseReason `json:"supervised_impasse,omitempty"`
}

// Register registers negotiation routes
func (h *NegotiationHandler) Register(g *echo.Group) {
	g.GET("/:id", h.Get)
	g.GET("/:id/messages", h.ListMessages)
	g.POST("/:id/turns", h.ApplyTurn)
	g.POST("/:id/interventions", h.Intervene)
}

func (h *NegotiationHandler) Get(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "NegotiationHandler.Get")
	defer span.End()

	id, err := PathParam(c, "id")
	if err != nil {
		return err
	}
	n, err := h.reader.GetNegotiation(ctx, id)
	if err != nil {
		return err
	}
	return SuccessResponse(c, n)
}

func (h *NegotiationHandler) ListMessages(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "NegotiationHandler.ListMessages")
	defer span.End()

	id, err := PathParam(c, "id")
	if err != nil {
		return err
	}
	if _, err := h.reader.GetNegotiation(ctx, id); err != nil {
		return err
	}
	messages, err := h.reader.ListMessages(ctx, id)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).WithField("negotiation_id", id).Error("Failed to list messages")
		return err
	}
	return SuccessResponse(c, messages)
}

// ApplyTurn applies an agent turn to the negotiation
func (h *NegotiationHandler) ApplyTurn(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "NegotiationHandler.ApplyTurn")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	id, err := PathParam(c, "id")
	if err != nil {
		return err
	}
	req, err := BindRequest[TurnRequest](c)
	if err != nil {
		return err
	}

	return h.apply(c, id, negotiation.Turn{
		Sender:   req.Sender,
		Content:  req.Content,
		ToolCall: req.ToolCall,
		Metadata: req.Metadata,
	})
}

// Intervene appends a user message the agents will see on their next turn
func (h *NegotiationHandler) Intervene(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "NegotiationHandler.Intervene")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	id, err := PathParam(c, "id")
	if err != nil {
		return err
	}
	req, err := BindRequest[InterventionRequest](c)
	if err != nil {
		return err
	}

	return h.apply(c, id, negotiation.Turn{
		Sender:  models.SenderUser,
		Content: req.Content,
	})
}

func (h *NegotiationHandler) apply(c echo.Context, id string, turn negotiation.Turn) error {
	ctx := c.Request().Context()

	result, err := h.negotiator.ApplyByID(ctx, id, turn)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).WithField("negotiation_id", id).Debug("Turn rejected")
		return err
	}

	resp := TurnResponse{
		Negotiation: result.Negotiation,
		Message:     result.Message,
		Replayed:    result.Replayed,
		Supervised:  result.Supervised,
	}
	if result.Outcome != nil {
		record := result.Outcome.Record
		resp.ToolCall = &record
	}
	return SuccessResponse(c, resp)
}
