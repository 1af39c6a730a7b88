package offers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	negerrors "github.com/Ramsey-B/thistle/pkg/errors"
	"github.com/Ramsey-B/thistle/pkg/models"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		offer   *models.Offer
		wantErr bool
	}{
		{name: "valid", offer: &models.Offer{UnitPrice: 25, LeadTimeDays: 30, PaymentTerms: "30/70"}},
		{name: "opaque terms are accepted", offer: &models.Offer{UnitPrice: 25, LeadTimeDays: 30, PaymentTerms: "net 30"}},
		{name: "nil", offer: nil, wantErr: true},
		{name: "zero price", offer: &models.Offer{UnitPrice: 0, LeadTimeDays: 30, PaymentTerms: "30/70"}, wantErr: true},
		{name: "negative price", offer: &models.Offer{UnitPrice: -1, LeadTimeDays: 30, PaymentTerms: "30/70"}, wantErr: true},
		{name: "zero lead time", offer: &models.Offer{UnitPrice: 25, LeadTimeDays: 0, PaymentTerms: "30/70"}, wantErr: true},
		{name: "missing terms", offer: &models.Offer{UnitPrice: 25, LeadTimeDays: 5, PaymentTerms: " "}, wantErr: true},
		{
			name: "bad line item",
			offer: &models.Offer{UnitPrice: 25, LeadTimeDays: 5, PaymentTerms: "100", Products: []models.LineItem{
				{ProductID: "p1", Quantity: 0, UnitPrice: 3},
			}},
			wantErr: true,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			offer, err := Validate(test.offer)
			if test.wantErr {
				require.Error(t, err)
				assert.True(t, negerrors.IsValidation(err))
				assert.Nil(t, offer)
				return
			}
			require.NoError(t, err)
			assert.Greater(t, offer.UnitPrice, 0.0)
			assert.Greater(t, offer.LeadTimeDays, 0)
		})
	}
}

func TestValidate_RecomputesLineTotals(t *testing.T) {
	input := &models.Offer{UnitPrice: 2.5, LeadTimeDays: 10, PaymentTerms: "30/70", Products: []models.LineItem{
		{ProductID: "p1", ProductName: "Bottle", Quantity: 3, UnitPrice: 0.1, LineTotal: 99},
	}}

	offer, err := Validate(input)
	require.NoError(t, err)
	assert.Equal(t, 0.3, offer.Products[0].LineTotal)
	assert.Equal(t, 99.0, input.Products[0].LineTotal, "input is not mutated")
}

func TestAveragePrice(t *testing.T) {
	assert.Equal(t, 22.0, AveragePrice(&models.Offer{UnitPrice: 22}))

	offer := &models.Offer{UnitPrice: 1, Products: []models.LineItem{
		{ProductID: "a", Quantity: 100, UnitPrice: 2},
		{ProductID: "b", Quantity: 300, UnitPrice: 4},
	}}
	assert.Equal(t, 3.5, AveragePrice(offer))
	assert.Equal(t, 0.0, AveragePrice(nil))
}

func TestParsePaymentTerms(t *testing.T) {
	parts, ok := ParsePaymentTerms("30/70")
	require.True(t, ok)
	assert.Equal(t, []float64{30, 70}, parts)

	_, ok = ParsePaymentTerms("33/33/33")
	assert.True(t, ok)

	_, ok = ParsePaymentTerms("50/20")
	assert.False(t, ok)

	_, ok = ParsePaymentTerms("net 30")
	assert.False(t, ok)
}

func TestUpfrontPercentage(t *testing.T) {
	value, ok := UpfrontPercentage("40/60")
	require.True(t, ok)
	assert.Equal(t, 40.0, value)

	value, ok = UpfrontPercentage("100")
	require.True(t, ok)
	assert.Equal(t, 100.0, value)

	_, ok = UpfrontPercentage("on delivery")
	assert.False(t, ok)
}
