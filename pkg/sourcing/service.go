// Package sourcing opens sourcing requests and seeds one negotiation per supplier.
package sourcing

import (
	"context"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	negerrors "github.com/Ramsey-B/thistle/pkg/errors"
	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/tracing"
)

var validate = validator.New()

// Store persists a request together with its negotiations
type Store interface {
	CreateSourcingRequest(ctx context.Context, request *models.SourcingRequest, negotiations []*models.Negotiation) error
}

// OpenRequest is the input for Open
type OpenRequest struct {
	Title              string                    `json:"title"`
	DecisionPriorities models.DecisionPriorities `json:"decision_priorities"`
	TargetUnitPrice    *float64                  `json:"target_unit_price,omitempty" validate:"omitempty,gt=0"`
	SupplierIDs        []int                     `json:"supplier_ids" validate:"required,min=1,max=4,unique,dive,gte=1,lte=4"`
}

type Service struct {
	store  Store
	logger ectologger.Logger
	now    func() time.Time
}

func NewService(store Store, logger ectologger.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Open creates the sourcing request in negotiating status and one active negotiation at
// round zero for each supplier.
func (s *Service) Open(ctx context.Context, req OpenRequest) (*models.SourcingRequest, []models.Negotiation, error) {
	ctx, span := tracing.StartSpan(ctx, "sourcing.Service.Open")
	defer span.End()

	if err := validate.Struct(req); err != nil {
		return nil, nil, negerrors.Validationf("sourcing.Service.Open", "invalid sourcing request: %v", err)
	}

	now := s.now()
	request := &models.SourcingRequest{
		ID:                 uuid.New().String(),
		Title:              strings.TrimSpace(req.Title),
		Status:             models.SourcingRequestStatusNegotiating,
		DecisionPriorities: req.DecisionPriorities,
		TargetUnitPrice:    req.TargetUnitPrice,
		SupplierIDs:        append([]int{}, req.SupplierIDs...),
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	negotiations := make([]*models.Negotiation, 0, len(req.SupplierIDs))
	for _, supplierID := range req.SupplierIDs {
		negotiations = append(negotiations, &models.Negotiation{
			ID:         uuid.New().String(),
			QuoteID:    request.ID,
			SupplierID: supplierID,
			Status:     models.NegotiationStatusActive,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}

	if err := s.store.CreateSourcingRequest(ctx, request, negotiations); err != nil {
		tracing.RecordError(span, err)
		s.logger.WithContext(ctx).WithError(err).WithField("quote_id", request.ID).Error("Failed to open sourcing request")
		return nil, nil, err
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"quote_id":     request.ID,
		"supplier_ids": req.SupplierIDs,
	}).Info("Opened sourcing request")

	out := make([]models.Negotiation, 0, len(negotiations))
	for _, n := range negotiations {
		out = append(out, *n)
	}
	return request, out, nil
}
