package finance

import "marketfin-finance-services/internal/models"

// Breakdown is the financial decomposition of an order, or a componentwise
// sum of such decompositions. Invariants for a single order:
//
//	TotalIncludingGST == TotalExcludingGST + TotalGST + TotalDeliveryFees
//	TotalRestaurantPayable == TotalExcludingGST - TotalCommission
type Breakdown struct {
	TotalIncludingGST      float64 `json:"totalIncludingGST"`
	TotalExcludingGST      float64 `json:"totalExcludingGST"`
	TotalGST               float64 `json:"totalGST"`
	TotalCommission        float64 `json:"totalCommission"`
	TotalDeliveryFees      float64 `json:"totalDeliveryFees"`
	TotalRestaurantPayable float64 `json:"totalRestaurantPayable"`
	TotalPartnerPayouts    float64 `json:"totalPartnerPayouts"`
	TotalCashRevenue       float64 `json:"totalCashRevenue"`
	TotalOnlineRevenue     float64 `json:"totalOnlineRevenue"`
}

// Compute derives the breakdown of one order under the given rates. Pure and
// total: a malformed order degrades to zeros instead of failing.
//
// The customer-facing total bundles the delivery fee, so the fee is carved
// out first and the remainder is split as an inclusive-tax amount. Commission
// is charged on the tax-exclusive base only.
func Compute(order models.Order, rates Rates) Breakdown {
	gross := order.TotalAmount
	if gross < 0 {
		gross = 0
	}

	foodPortionWithTax := gross - rates.DeliveryFee
	if foodPortionWithTax < 0 {
		foodPortionWithTax = 0
	}

	base := foodPortionWithTax / (1 + rates.TaxRatePct/100)
	tax := foodPortionWithTax - base
	commission := base * rates.CommissionRatePct / 100

	b := Breakdown{
		TotalIncludingGST: gross,
		TotalExcludingGST: base,
		TotalGST:          tax,
		TotalCommission:   commission,
		TotalDeliveryFees: rates.DeliveryFee,
		// base - commission is the canonical form; the algebraically equal
		// gross - fee - tax - commission drifts under rounding.
		TotalRestaurantPayable: base - commission,
		TotalPartnerPayouts:    PartnerPayout(order, rates),
	}

	if order.PaymentMethod == models.PaymentOnline {
		b.TotalOnlineRevenue = gross
	} else {
		b.TotalCashRevenue = gross
	}

	return b
}

// PartnerPayout is the amount the assigned partner earns for the order. The
// stored payout is authoritative; the delivery-fee fallback approximates
// earnings for orders predating payout tracking and can overstate them where
// a discounted payout policy applied.
func PartnerPayout(order models.Order, rates Rates) float64 {
	if order.PartnerPayout != nil {
		return *order.PartnerPayout
	}
	return rates.DeliveryFee
}

// Add accumulates other into b componentwise.
func (b *Breakdown) Add(other Breakdown) {
	b.TotalIncludingGST += other.TotalIncludingGST
	b.TotalExcludingGST += other.TotalExcludingGST
	b.TotalGST += other.TotalGST
	b.TotalCommission += other.TotalCommission
	b.TotalDeliveryFees += other.TotalDeliveryFees
	b.TotalRestaurantPayable += other.TotalRestaurantPayable
	b.TotalPartnerPayouts += other.TotalPartnerPayouts
	b.TotalCashRevenue += other.TotalCashRevenue
	b.TotalOnlineRevenue += other.TotalOnlineRevenue
}
