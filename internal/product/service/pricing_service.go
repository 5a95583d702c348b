package service

import (
	"github.com/shopspring/decimal"

	"radagast/internal/domain"
)

// PricingService picks the price tier a line item is sold at, based on the
// customer's profile and the ordering channel. It is stateless; "no price
// found" is a nil price, which aborts order creation upstream.
type PricingService struct{}

func NewPricingService() *PricingService {
	return &PricingService{}
}

var profileTiers = map[string][]string{
	"vip":      {"sale_a", "sale_b"},
	"reseller": {"resale_a", "resale_b"},
	"regular":  {"sale_c", "sale_b", "sale_a"},
}

var channelTiers = map[string][]string{
	"whatsapp": {"sale_b", "sale_a"},
	"ui":       {"sale_a"},
}

var fallbackTiers = []string{"sale_a", "sale_b", "sale_c", "resale_a", "resale_b"}

// Resolve tries channel-preferred tiers, then profile-preferred tiers, then
// the general fallback order, returning the first tier the product carries.
func (s *PricingService) Resolve(product domain.Product, profileType, channel string) (string, *decimal.Decimal) {
	var tiers []string
	tiers = append(tiers, channelTiers[channel]...)
	tiers = append(tiers, profileTiers[profileType]...)
	tiers = append(tiers, fallbackTiers...)

	for _, tier := range tiers {
		if price := product.Prices.Tier(tier); price != nil {
			return tier, price
		}
	}

	return "", nil
}
