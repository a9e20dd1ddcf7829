package ledger

import (
	"context"
	"errors"
	"sort"

	"marketfin-finance-services/internal/finance"
	"marketfin-finance-services/internal/models"
)

var (
	// ErrInvalidAmount rejects non-positive settlement amounts.
	ErrInvalidAmount = errors.New("settlement amount must be positive")
	// ErrStaleBalance reports that the payee's settled total moved between
	// the balance read and the settlement attempt. The caller should reload
	// the ledger and retry.
	ErrStaleBalance = errors.New("stale balance, retry")
	// ErrUnknownPayee reports a settlement against a payee absent from the
	// current snapshot.
	ErrUnknownPayee = errors.New("unknown payee")
)

// Payee identifies a settlement target: a restaurant or a delivery partner.
type Payee struct {
	Kind models.PayeeKind
	ID   string
}

func RestaurantPayee(id string) Payee {
	return Payee{Kind: models.PayeeRestaurant, ID: id}
}

func PartnerPayee(id string) Payee {
	return Payee{Kind: models.PayeePartner, ID: id}
}

// Store appends settlement events. AppendSettlement must be read-then-append
// atomic per payee: it re-reads the settled total under a per-payee lock and
// returns ErrStaleBalance when it no longer matches settledAsOf.
type Store interface {
	AppendSettlement(ctx context.Context, payee Payee, amount float64, settledAsOf float64) (models.SettlementEvent, error)
}

// Balance is a payee's full ledger position. Lifetime figures ignore every
// reporting window; settlement correctness needs the whole history.
type Balance struct {
	LifetimeEarnings float64                  `json:"lifetimeEarnings"`
	LifetimeRuns     int64                    `json:"lifetimeRuns,omitempty"`
	TotalSettled     float64                  `json:"totalSettled"`
	Outstanding      float64                  `json:"outstanding"`
	History          []models.SettlementEvent `json:"history"`
}

// LifetimeEarnings recomputes what the payee has earned across all history.
// Restaurants earn the payable portion of every non-cancelled order they
// own; partners earn the payout of every order they delivered.
func LifetimeEarnings(snap models.Snapshot, payee Payee) (amount float64, runs int64) {
	for _, order := range snap.Orders {
		switch payee.Kind {
		case models.PayeeRestaurant:
			if order.RestaurantID != payee.ID || order.Status == models.OrderCancelled {
				continue
			}
			rates := finance.Resolve(snap.RestaurantByID(order.RestaurantID), snap.Settings)
			amount += finance.Compute(order, rates).TotalRestaurantPayable
			runs++
		case models.PayeePartner:
			if order.DeliveryPartnerID == nil || *order.DeliveryPartnerID != payee.ID {
				continue
			}
			if order.Status != models.OrderDelivered {
				continue
			}
			rates := finance.Resolve(snap.RestaurantByID(order.RestaurantID), snap.Settings)
			amount += finance.PartnerPayout(order, rates)
			runs++
		}
	}
	return amount, runs
}

// TotalSettled sums the payee's SUCCESS settlement events. FAILED events are
// excluded: a failed payout never reached the payee, so counting it would
// silently underpay.
func TotalSettled(snap models.Snapshot, payee Payee) float64 {
	var total float64
	for _, event := range snap.Settlements {
		if event.Status != models.SettlementSuccess {
			continue
		}
		if event.Matches(payee.Kind, payee.ID) {
			total += event.Amount
		}
	}
	return total
}

// Outstanding is lifetime earnings minus total settled. Negative balances are
// representable: over-settlement is a real, visible ledger state, not an
// error.
func Outstanding(snap models.Snapshot, payee Payee) float64 {
	earned, _ := LifetimeEarnings(snap, payee)
	return earned - TotalSettled(snap, payee)
}

// History returns the payee's settlement events newest-first, including
// FAILED ones so the record stays complete.
func History(snap models.Snapshot, payee Payee) []models.SettlementEvent {
	events := make([]models.SettlementEvent, 0)
	for _, event := range snap.Settlements {
		if event.Matches(payee.Kind, payee.ID) {
			events = append(events, event)
		}
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].Timestamp != events[j].Timestamp {
			return events[i].Timestamp > events[j].Timestamp
		}
		return events[i].ID > events[j].ID
	})
	return events
}

// BalanceOf assembles the full ledger position for a payee.
func BalanceOf(snap models.Snapshot, payee Payee) Balance {
	earned, runs := LifetimeEarnings(snap, payee)
	settled := TotalSettled(snap, payee)
	return Balance{
		LifetimeEarnings: earned,
		LifetimeRuns:     runs,
		TotalSettled:     settled,
		Outstanding:      earned - settled,
		History:          History(snap, payee),
	}
}

// Service records settlements against the store.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// RecordSettlement validates and appends one settlement event. Any positive
// amount is accepted, so partial settlement is representable even though the
// operator flow usually settles the full outstanding balance. settledAsOf is
// the total-settled figure observed when the caller read the balance; the
// store rejects the append with ErrStaleBalance if it moved.
func (s *Service) RecordSettlement(ctx context.Context, snap models.Snapshot, payee Payee, amount float64, settledAsOf float64) (models.SettlementEvent, error) {
	if amount <= 0 {
		return models.SettlementEvent{}, ErrInvalidAmount
	}
	if !payeeExists(snap, payee) {
		return models.SettlementEvent{}, ErrUnknownPayee
	}
	return s.store.AppendSettlement(ctx, payee, amount, settledAsOf)
}

func payeeExists(snap models.Snapshot, payee Payee) bool {
	switch payee.Kind {
	case models.PayeeRestaurant:
		return snap.RestaurantByID(payee.ID) != nil
	case models.PayeePartner:
		return snap.PartnerByID(payee.ID) != nil
	}
	return false
}
