package models

import "time"

type OrderStatus string

const (
	OrderPlaced         OrderStatus = "PLACED"
	OrderConfirmed      OrderStatus = "CONFIRMED"
	OrderPreparing      OrderStatus = "PREPARING"
	OrderOutForDelivery OrderStatus = "OUT_FOR_DELIVERY"
	OrderDelivered      OrderStatus = "DELIVERED"
	OrderCancelled      OrderStatus = "CANCELLED"
)

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "CASH"
	PaymentOnline PaymentMethod = "ONLINE"
)

type SettlementStatus string

const (
	SettlementSuccess SettlementStatus = "SUCCESS"
	SettlementFailed  SettlementStatus = "FAILED"
)

type PayeeKind string

const (
	PayeeRestaurant PayeeKind = "RESTAURANT"
	PayeePartner    PayeeKind = "PARTNER"
)

// Order is immutable once created except for its status. CreatedAt is epoch
// milliseconds, like every timestamp crossing the service boundary.
type Order struct {
	ID                string        `json:"id"`
	RestaurantID      string        `json:"restaurantId"`
	RestaurantName    string        `json:"restaurantName"`
	TotalAmount       float64       `json:"totalAmount"`
	PaymentMethod     PaymentMethod `json:"paymentMethod"`
	Status            OrderStatus   `json:"status"`
	CreatedAt         int64         `json:"createdAt"`
	DeliveryPartnerID *string       `json:"deliveryPartnerId,omitempty"`
	// PartnerPayout is set at delivery-assignment time by a process outside
	// this service. Orders predating payout tracking have none.
	PartnerPayout *float64 `json:"partnerPayout,omitempty"`
}

// Restaurant carries optional per-entity rate overrides. A nil override means
// "use the platform default".
type Restaurant struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	CustomTaxRate     *float64 `json:"customTaxRate,omitempty"`
	CommissionRate    *float64 `json:"commissionRate,omitempty"`
	CustomDeliveryFee *float64 `json:"customDeliveryFee,omitempty"`
	UPIID             *string  `json:"upiId,omitempty"`
}

type DeliveryPartner struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Phone         string  `json:"phone"`
	VehicleNumber string  `json:"vehicleNumber"`
	UPIID         *string `json:"upiId,omitempty"`
}

// PlatformSettings is the singleton defaults record. Fields are pointers so a
// missing default is distinguishable from an explicit zero.
type PlatformSettings struct {
	TaxRate            *float64 `json:"taxRate,omitempty"`
	PlatformCommission *float64 `json:"platformCommission,omitempty"`
	DeliveryBaseFee    *float64 `json:"deliveryBaseFee,omitempty"`
	DeliveryPerKm      *float64 `json:"deliveryPerKm,omitempty"`
}

// SettlementEvent is an append-only payout record. Exactly one of
// RestaurantID and PartnerID is set.
type SettlementEvent struct {
	ID           int64            `json:"id"`
	RestaurantID *string          `json:"restaurantId,omitempty"`
	PartnerID    *string          `json:"partnerId,omitempty"`
	Amount       float64          `json:"amount"`
	Timestamp    int64            `json:"timestamp"`
	Status       SettlementStatus `json:"status"`
}

// Matches reports whether the event targets the given payee.
func (e SettlementEvent) Matches(kind PayeeKind, id string) bool {
	switch kind {
	case PayeeRestaurant:
		return e.RestaurantID != nil && *e.RestaurantID == id
	case PayeePartner:
		return e.PartnerID != nil && *e.PartnerID == id
	}
	return false
}

// Snapshot is one fully observed state of every collection the engine reads.
// All computations are pure functions of a snapshot; the feed swaps in a new
// one on every change, so output is never derived from a mix of partially
// applied deltas.
type Snapshot struct {
	Version     int64             `json:"version"`
	LoadedAt    time.Time         `json:"loadedAt"`
	Orders      []Order           `json:"orders"`
	Restaurants []Restaurant      `json:"restaurants"`
	Partners    []DeliveryPartner `json:"partners"`
	Settings    PlatformSettings  `json:"settings"`
	Settlements []SettlementEvent `json:"settlements"`
}

// RestaurantByID returns the restaurant record, or nil when unknown.
func (s Snapshot) RestaurantByID(id string) *Restaurant {
	for i := range s.Restaurants {
		if s.Restaurants[i].ID == id {
			return &s.Restaurants[i]
		}
	}
	return nil
}

func (s Snapshot) PartnerByID(id string) *DeliveryPartner {
	for i := range s.Partners {
		if s.Partners[i].ID == id {
			return &s.Partners[i]
		}
	}
	return nil
}
