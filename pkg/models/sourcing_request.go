package models

import "time"

// SourcingRequestStatus is the lifecycle state of a sourcing request
type SourcingRequestStatus string

const (
	SourcingRequestStatusNegotiating SourcingRequestStatus = "negotiating"
	SourcingRequestStatusCompleted   SourcingRequestStatus = "completed"
)

// DecisionPriorities are the buyer's weights over the scoring criteria.
// Each is 0-100; they are intended to sum to 100 but are not required to.
type DecisionPriorities struct {
	Quality      float64 `json:"quality" validate:"gte=0,lte=100"`
	Cost         float64 `json:"cost" validate:"gte=0,lte=100"`
	LeadTime     float64 `json:"lead_time" validate:"gte=0,lte=100"`
	PaymentTerms float64 `json:"payment_terms" validate:"gte=0,lte=100"`
}

// SourcingRequest owns one negotiation per supplier and, eventually, one decision
type SourcingRequest struct {
	ID                 string                `json:"id" db:"id"`
	Title              string                `json:"title" db:"title"`
	Status             SourcingRequestStatus `json:"status" db:"status"`
	DecisionPriorities DecisionPriorities    `json:"decision_priorities" db:"-"`
	TargetUnitPrice    *float64              `json:"target_unit_price,omitempty" db:"target_unit_price"`
	SupplierIDs        []int                 `json:"supplier_ids" db:"-"`
	CreatedAt          time.Time             `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time             `json:"updated_at" db:"updated_at"`
	CompletedAt        *time.Time            `json:"completed_at,omitempty" db:"completed_at"`
}
