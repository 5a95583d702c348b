package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"radagast/internal/domain"
)

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func fullyPriced() domain.Product {
	return domain.Product{
		ID:   1,
		Name: "Amplifier",
		Prices: domain.ProductPrices{
			Cost:    decPtr("40.00"),
			SaleA:   decPtr("59.99"),
			SaleB:   decPtr("54.99"),
			SaleC:   decPtr("49.99"),
			ResaleA: decPtr("45.00"),
			ResaleB: decPtr("47.50"),
		},
	}
}

func TestResolve_ChannelWinsOverProfile(t *testing.T) {
	svc := NewPricingService()

	tier, price := svc.Resolve(fullyPriced(), "reseller", "whatsapp")

	assert.Equal(t, "sale_b", tier)
	assert.True(t, price.Equal(decimal.RequireFromString("54.99")))
}

func TestResolve_ProfileUsedWhenChannelUnknown(t *testing.T) {
	svc := NewPricingService()

	tier, price := svc.Resolve(fullyPriced(), "reseller", "carrier-pigeon")

	assert.Equal(t, "resale_a", tier)
	assert.True(t, price.Equal(decimal.RequireFromString("45.00")))
}

func TestResolve_RegularProfilePrefersSaleC(t *testing.T) {
	svc := NewPricingService()

	tier, _ := svc.Resolve(fullyPriced(), "regular", "")

	assert.Equal(t, "sale_c", tier)
}

func TestResolve_SkipsMissingTiers(t *testing.T) {
	svc := NewPricingService()
	product := fullyPriced()
	product.Prices.SaleB = nil

	// whatsapp prefers sale_b, which this product lacks.
	tier, price := svc.Resolve(product, "", "whatsapp")

	assert.Equal(t, "sale_a", tier)
	assert.True(t, price.Equal(decimal.RequireFromString("59.99")))
}

func TestResolve_FallbackOrder(t *testing.T) {
	svc := NewPricingService()
	product := domain.Product{
		Prices: domain.ProductPrices{ResaleB: decPtr("12.00")},
	}

	tier, price := svc.Resolve(product, "", "")

	assert.Equal(t, "resale_b", tier)
	assert.True(t, price.Equal(decimal.RequireFromString("12.00")))
}

func TestResolve_NoPriceAtAll(t *testing.T) {
	svc := NewPricingService()

	tier, price := svc.Resolve(domain.Product{}, "vip", "ui")

	assert.Equal(t, "", tier)
	assert.Nil(t, price)
}

func TestResolve_CostNeverSelected(t *testing.T) {
	svc := NewPricingService()
	product := domain.Product{
		Prices: domain.ProductPrices{Cost: decPtr("40.00")},
	}

	tier, price := svc.Resolve(product, "regular", "ui")

	assert.Equal(t, "", tier)
	assert.Nil(t, price)
}
