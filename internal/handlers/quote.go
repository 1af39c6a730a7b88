package handlers

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/sourcing"
	"github.com/Ramsey-B/thistle/pkg/tracing"
)

// QuoteReader reads sourcing requests and their outcome
type QuoteReader interface {
	GetSourcingRequest(ctx context.Context, quoteID string) (*models.SourcingRequest, error)
	ListNegotiations(ctx context.Context, quoteID string) ([]models.Negotiation, error)
	GetDecision(ctx context.Context, quoteID string) (*models.Decision, error)
}

// Decider runs the scoring engine for a quote
type Decider interface {
	Decide(ctx context.Context, quoteID string) (*models.Decision, error)
}

// QuoteHandler handles sourcing request endpoints
type QuoteHandler struct {
	service *sourcing.Service
	reader  QuoteReader
	decider Decider
	logger  ectologger.Logger
}

func NewQuoteHandler(service *sourcing.Service, reader QuoteReader, decider Decider, logger ectologger.Logger) *QuoteHandler {
	return &QuoteHandler{
		service: service,
		reader:  reader,
		decider: decider,
		logger:  logger,
	}
}

// OpenQuoteResponse is the created request and its negotiations
type OpenQuoteResponse struct {
	SourcingRequest *models.SourcingRequest `json:"sourcing_request"`
	Negotiations    []models.Negotiation    `json:"negotiations"`
}

// Register registers quote routes
func (h *QuoteHandler) Register(g *echo.Group) {
	g.POST("", h.Open)
	g.GET("/:id", h.Get)
	g.GET("/:id/negotiations", h.ListNegotiations)
	g.POST("/:id/decision", h.Decide)
	g.GET("/:id/decision", h.GetDecision)
}

// Open creates a sourcing request with one negotiation per supplier
func (h *QuoteHandler) Open(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "QuoteHandler.Open")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	req, err := BindRequest[sourcing.OpenRequest](c)
	if err != nil {
		return err
	}

	request, negotiations, err := h.service.Open(ctx, *req)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Debug("Failed to open sourcing request")
		return err
	}
	return CreatedResponse(c, OpenQuoteResponse{SourcingRequest: request, Negotiations: negotiations})
}

func (h *QuoteHandler) Get(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "QuoteHandler.Get")
	defer span.End()

	quoteID, err := PathParam(c, "id")
	if err != nil {
		return err
	}
	request, err := h.reader.GetSourcingRequest(ctx, quoteID)
	if err != nil {
		return err
	}
	return SuccessResponse(c, request)
}

func (h *QuoteHandler) ListNegotiations(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "QuoteHandler.ListNegotiations")
	defer span.End()

	quoteID, err := PathParam(c, "id")
	if err != nil {
		return err
	}
	if _, err := h.reader.GetSourcingRequest(ctx, quoteID); err != nil {
		return err
	}
	negotiations, err := h.reader.ListNegotiations(ctx, quoteID)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).WithField("quote_id", quoteID).Error("Failed to list negotiations")
		return err
	}
	return SuccessResponse(c, negotiations)
}

// Decide scores the quote's negotiations and records the decision
func (h *QuoteHandler) Decide(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "QuoteHandler.Decide")
	defer span.End()
	c.SetRequest(c.Request().WithContext(ctx))

	quoteID, err := PathParam(c, "id")
	if err != nil {
		return err
	}
	decision, err := h.decider.Decide(ctx, quoteID)
	if err != nil {
		return err
	}
	return CreatedResponse(c, decision)
}

func (h *QuoteHandler) GetDecision(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "QuoteHandler.GetDecision")
	defer span.End()

	quoteID, err := PathParam(c, "id")
	if err != nil {
		return err
	}
	decision, err := h.reader.GetDecision(ctx, quoteID)
	if err != nil {
		return err
	}
	return SuccessResponse(c, decision)
}
