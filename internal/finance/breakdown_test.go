package finance

import (
	"math"
	"testing"

	"marketfin-finance-services/internal/models"
)

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func defaultRates() Rates {
	return Rates{TaxRatePct: 5, CommissionRatePct: 20, DeliveryFee: 40}
}

func TestComputeDefaultRates(t *testing.T) {
	order := models.Order{ID: "o1", TotalAmount: 500, PaymentMethod: models.PaymentOnline}
	b := Compute(order, defaultRates())

	cases := []struct {
		name     string
		got      float64
		expected float64
	}{
		{"gross", b.TotalIncludingGST, 500},
		{"delivery fee", b.TotalDeliveryFees, 40},
		{"base amount", round2(b.TotalExcludingGST), 438.10},
		{"tax amount", round2(b.TotalGST), 21.90},
		{"commission", round2(b.TotalCommission), 87.62},
		{"restaurant payable", round2(b.TotalRestaurantPayable), 350.48},
		{"online revenue", b.TotalOnlineRevenue, 500},
		{"cash revenue", b.TotalCashRevenue, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.got != tc.expected {
				t.Fatalf("expected %v, got %v", tc.expected, tc.got)
			}
		})
	}
}

func TestComputeReconciliationIdentities(t *testing.T) {
	cases := []struct {
		name  string
		order models.Order
		rates Rates
	}{
		{"typical online", models.Order{TotalAmount: 500, PaymentMethod: models.PaymentOnline}, defaultRates()},
		{"typical cash", models.Order{TotalAmount: 223.45, PaymentMethod: models.PaymentCash}, defaultRates()},
		{"fee only", models.Order{TotalAmount: 40}, defaultRates()},
		{"zero delivery fee", models.Order{TotalAmount: 200, PaymentMethod: models.PaymentCash}, Rates{TaxRatePct: 5, CommissionRatePct: 20, DeliveryFee: 0}},
		{"high tax", models.Order{TotalAmount: 1000}, Rates{TaxRatePct: 18, CommissionRatePct: 25, DeliveryFee: 60}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := Compute(tc.order, tc.rates)

			sum := b.TotalExcludingGST + b.TotalGST + b.TotalDeliveryFees
			if math.Abs(b.TotalIncludingGST-sum) > 1e-9 {
				t.Fatalf("gross %v != base+tax+fee %v", b.TotalIncludingGST, sum)
			}
			if math.Abs(b.TotalRestaurantPayable-(b.TotalExcludingGST-b.TotalCommission)) > 1e-9 {
				t.Fatalf("payable %v != base-commission %v", b.TotalRestaurantPayable, b.TotalExcludingGST-b.TotalCommission)
			}
			if b.TotalCashRevenue+b.TotalOnlineRevenue != b.TotalIncludingGST {
				t.Fatalf("payment split %v does not cover gross %v", b.TotalCashRevenue+b.TotalOnlineRevenue, b.TotalIncludingGST)
			}
		})
	}
}

func TestComputeClampsMalformedOrders(t *testing.T) {
	b := Compute(models.Order{TotalAmount: -120}, defaultRates())
	if b.TotalIncludingGST != 0 {
		t.Fatalf("negative gross must clamp to zero, got %v", b.TotalIncludingGST)
	}
	if b.TotalExcludingGST != 0 || b.TotalGST != 0 || b.TotalCommission != 0 {
		t.Fatalf("delivery-fee-only order must yield zero food value, got %+v", b)
	}
	if b.TotalRestaurantPayable != 0 {
		t.Fatalf("expected zero payable, got %v", b.TotalRestaurantPayable)
	}
}

func TestComputeZeroDeliveryFeeCashOrder(t *testing.T) {
	order := models.Order{TotalAmount: 200, PaymentMethod: models.PaymentCash}
	b := Compute(order, Rates{TaxRatePct: 5, CommissionRatePct: 20, DeliveryFee: 0})

	if round2(b.TotalExcludingGST+b.TotalGST) != 200 {
		t.Fatalf("full gross must split as food portion, got base=%v tax=%v", b.TotalExcludingGST, b.TotalGST)
	}
	if b.TotalCashRevenue != 200 || b.TotalOnlineRevenue != 0 {
		t.Fatalf("expected cash=200 online=0, got cash=%v online=%v", b.TotalCashRevenue, b.TotalOnlineRevenue)
	}
}

func TestPartnerPayoutFallback(t *testing.T) {
	stored := 32.5
	rates := defaultRates()

	if got := PartnerPayout(models.Order{PartnerPayout: &stored}, rates); got != 32.5 {
		t.Fatalf("stored payout is authoritative, got %v", got)
	}
	// Legacy orders without a stored payout approximate with the delivery fee.
	if got := PartnerPayout(models.Order{}, rates); got != 40 {
		t.Fatalf("expected delivery-fee fallback 40, got %v", got)
	}
}
