package finance

import "marketfin-finance-services/internal/models"

// Hard fallbacks used when the platform settings row itself is missing a
// default. Restaurants opt out of platform-wide fee changes via overrides, so
// resolution is total and never errors on incomplete data.
const (
	FallbackTaxRatePct        = 5.0
	FallbackCommissionRatePct = 20.0
	FallbackDeliveryFee       = 40.0
)

// Rates is the effective rate set for one order's restaurant.
type Rates struct {
	TaxRatePct        float64 `json:"taxRatePct"`
	CommissionRatePct float64 `json:"commissionRatePct"`
	DeliveryFee       float64 `json:"deliveryFee"`
}

// Each field resolves independently: restaurant override, then platform
// default, then hard fallback. Kept as separate functions so the fallback
// order is testable per field.

func ResolveTaxRate(r *models.Restaurant, settings models.PlatformSettings) float64 {
	if r != nil && r.CustomTaxRate != nil {
		return *r.CustomTaxRate
	}
	if settings.TaxRate != nil {
		return *settings.TaxRate
	}
	return FallbackTaxRatePct
}

func ResolveCommissionRate(r *models.Restaurant, settings models.PlatformSettings) float64 {
	if r != nil && r.CommissionRate != nil {
		return *r.CommissionRate
	}
	if settings.PlatformCommission != nil {
		return *settings.PlatformCommission
	}
	return FallbackCommissionRatePct
}

func ResolveDeliveryFee(r *models.Restaurant, settings models.PlatformSettings) float64 {
	if r != nil && r.CustomDeliveryFee != nil {
		return *r.CustomDeliveryFee
	}
	if settings.DeliveryBaseFee != nil {
		return *settings.DeliveryBaseFee
	}
	return FallbackDeliveryFee
}

// Resolve returns the effective rates for an order owned by r. A nil
// restaurant (unknown reference) resolves entirely from platform defaults.
func Resolve(r *models.Restaurant, settings models.PlatformSettings) Rates {
	return Rates{
		TaxRatePct:        ResolveTaxRate(r, settings),
		CommissionRatePct: ResolveCommissionRate(r, settings),
		DeliveryFee:       ResolveDeliveryFee(r, settings),
	}
}
