package models

// LineItem is a single product line inside an offer.
type LineItem struct {
	ProductID   string  `json:"productId" validate:"required"`
	ProductName string  `json:"productName"`
	Quantity    int     `json:"quantity" validate:"gt=0"`
	UnitPrice   float64 `json:"unitPrice" validate:"gt=0"`
	LineTotal   float64 `json:"lineTotal"`
}

// Offer is a price and terms proposal exchanged between the buyer and a supplier.
// Field names follow the agent tool-call surface, which is camelCase.
type Offer struct {
	UnitPrice    float64    `json:"unitPrice" validate:"gt=0"`
	LeadTimeDays int        `json:"leadTimeDays" validate:"gt=0"`
	PaymentTerms string     `json:"paymentTerms"`
	Notes        *string    `json:"notes,omitempty"`
	Products     []LineItem `json:"products,omitempty" validate:"omitempty,dive"`
}

// Clone returns a deep copy so callers can hold on to an offer without aliasing.
func (o *Offer) Clone() *Offer {
	if o == nil {
		return nil
	}
	c := *o
	if o.Notes != nil {
		notes := *o.Notes
		c.Notes = &notes
	}
	if o.Products != nil {
		c.Products = make([]LineItem, len(o.Products))
		copy(c.Products, o.Products)
	}
	return &c
}
