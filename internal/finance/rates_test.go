package finance

import (
	"testing"

	"marketfin-finance-services/internal/models"
)

func floatPtr(v float64) *float64 { return &v }

func TestResolveFallbackOrder(t *testing.T) {
	override := models.Restaurant{
		ID:                "r1",
		CustomTaxRate:     floatPtr(12),
		CommissionRate:    floatPtr(15),
		CustomDeliveryFee: floatPtr(0),
	}
	settings := models.PlatformSettings{
		TaxRate:            floatPtr(8),
		PlatformCommission: floatPtr(22),
		DeliveryBaseFee:    floatPtr(50),
	}

	cases := []struct {
		name       string
		restaurant *models.Restaurant
		settings   models.PlatformSettings
		expected   Rates
	}{
		{
			name:       "overrides win over settings",
			restaurant: &override,
			settings:   settings,
			expected:   Rates{TaxRatePct: 12, CommissionRatePct: 15, DeliveryFee: 0},
		},
		{
			name:       "settings win when no overrides",
			restaurant: &models.Restaurant{ID: "r2"},
			settings:   settings,
			expected:   Rates{TaxRatePct: 8, CommissionRatePct: 22, DeliveryFee: 50},
		},
		{
			name:       "hard fallback when settings empty",
			restaurant: &models.Restaurant{ID: "r3"},
			settings:   models.PlatformSettings{},
			expected:   Rates{TaxRatePct: 5, CommissionRatePct: 20, DeliveryFee: 40},
		},
		{
			name:       "unknown restaurant uses settings",
			restaurant: nil,
			settings:   settings,
			expected:   Rates{TaxRatePct: 8, CommissionRatePct: 22, DeliveryFee: 50},
		},
		{
			name:       "nothing at all still resolves",
			restaurant: nil,
			settings:   models.PlatformSettings{},
			expected:   Rates{TaxRatePct: 5, CommissionRatePct: 20, DeliveryFee: 40},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Resolve(tc.restaurant, tc.settings); got != tc.expected {
				t.Fatalf("expected %+v, got %+v", tc.expected, got)
			}
		})
	}
}

func TestResolveFieldsAreIndependent(t *testing.T) {
	// A restaurant overriding only the delivery fee keeps platform tax and
	// commission.
	r := &models.Restaurant{ID: "r1", CustomDeliveryFee: floatPtr(10)}
	settings := models.PlatformSettings{TaxRate: floatPtr(8), PlatformCommission: floatPtr(25)}

	got := Resolve(r, settings)
	expected := Rates{TaxRatePct: 8, CommissionRatePct: 25, DeliveryFee: 10}
	if got != expected {
		t.Fatalf("expected %+v, got %+v", expected, got)
	}
}

func TestResolveZeroOverrideIsNotMissing(t *testing.T) {
	// An explicit zero override must not fall through to the default.
	r := &models.Restaurant{ID: "r1", CustomDeliveryFee: floatPtr(0)}
	settings := models.PlatformSettings{DeliveryBaseFee: floatPtr(40)}

	if got := ResolveDeliveryFee(r, settings); got != 0 {
		t.Fatalf("explicit zero fee must resolve to 0, got %v", got)
	}
}
