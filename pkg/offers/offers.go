// Package offers validates and normalizes price/terms proposals.
package offers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	negerrors "github.com/Ramsey-B/thistle/pkg/errors"
	"github.com/Ramsey-B/thistle/pkg/models"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks an agent-submitted offer and returns a normalized copy.
// Line totals are recomputed from quantity and unit price; payment terms are kept as given.
func Validate(candidate *models.Offer) (*models.Offer, error) {
	if candidate == nil {
		return nil, negerrors.Validationf("offers.Validate", "offer is required")
	}

	if err := validate.Struct(candidate); err != nil {
		return nil, negerrors.Validationf("offers.Validate", "%s", describe(err))
	}

	if strings.TrimSpace(candidate.PaymentTerms) == "" {
		return nil, negerrors.Validationf("offers.Validate", "paymentTerms is required")
	}

	offer := candidate.Clone()
	for i := range offer.Products {
		item := &offer.Products[i]
		item.LineTotal = LineTotal(item.Quantity, item.UnitPrice)
	}

	return offer, nil
}

// LineTotal is quantity * unitPrice rounded to cents.
func LineTotal(quantity int, unitPrice float64) float64 {
	return decimal.NewFromInt(int64(quantity)).Mul(decimal.NewFromFloat(unitPrice)).Round(2).InexactFloat64()
}

// AveragePrice is the quantity-weighted unit price across line items, or the headline price without any.
func AveragePrice(offer *models.Offer) float64 {
	if offer == nil {
		return 0
	}

	total := decimal.Zero
	quantity := decimal.Zero
	for _, item := range offer.Products {
		total = total.Add(decimal.NewFromInt(int64(item.Quantity)).Mul(decimal.NewFromFloat(item.UnitPrice)))
		quantity = quantity.Add(decimal.NewFromInt(int64(item.Quantity)))
	}

	if quantity.IsZero() {
		return offer.UnitPrice
	}

	return total.Div(quantity).Round(4).InexactFloat64()
}

// ParsePaymentTerms splits a slash-delimited breakdown such as "30/70" into percentages.
// ok is false when any part is not a number or the parts do not sum to 100 (within one point, so "33/33/33" parses).
func ParsePaymentTerms(terms string) (parts []float64, ok bool) {
	sum := 0.0
	for _, raw := range strings.Split(strings.TrimSpace(terms), "/") {
		value, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(raw), "%"), 64)
		if err != nil || value < 0 {
			return nil, false
		}
		parts = append(parts, value)
		sum += value
	}

	if sum < 99 || sum > 100 {
		return nil, false
	}

	return parts, true
}

// UpfrontPercentage returns the percentage before the first slash.
func UpfrontPercentage(terms string) (float64, bool) {
	head, _, _ := strings.Cut(strings.TrimSpace(terms), "/")
	value, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(head), "%"), 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

func describe(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "gt":
			msgs = append(msgs, fmt.Sprintf("%s must be greater than %s, got %v", fe.Namespace(), fe.Param(), fe.Value()))
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Namespace()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed rule '%s'", fe.Namespace(), fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}
