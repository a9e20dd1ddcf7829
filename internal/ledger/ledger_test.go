package ledger

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"marketfin-finance-services/internal/models"
)

func floatPtr(v float64) *float64 { return &v }
func strPtr(v string) *string { return &v }

// memStore mimics the Postgres append path: a per-store lock makes the
// read-then-append atomic, and settledAsOf is compared against the settled
// total inside that critical section.
type memStore struct {
	mu     sync.Mutex
	nextID int64
	events []models.SettlementEvent
}

func (m *memStore) AppendSettlement(_ context.Context, payee Payee, amount float64, settledAsOf float64) (models.SettlementEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var settled float64
	for _, e := range m.events {
		if e.Status == models.SettlementSuccess && e.Matches(payee.Kind, payee.ID) {
			settled += e.Amount
		}
	}
	if math.Abs(settled-settledAsOf) > 1e-6 {
		return models.SettlementEvent{}, ErrStaleBalance
	}

	m.nextID++
	event := models.SettlementEvent{
		ID:        m.nextID,
		Amount:    amount,
		Timestamp: time.Now().UnixMilli(),
		Status:    models.SettlementSuccess,
	}
	switch payee.Kind {
	case models.PayeeRestaurant:
		event.RestaurantID = &payee.ID
	case models.PayeePartner:
		event.PartnerID = &payee.ID
	}
	m.events = append(m.events, event)
	return event, nil
}

func (m *memStore) snapshotInto(snap models.Snapshot) models.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap.Settlements = append([]models.SettlementEvent(nil), m.events...)
	return snap
}

func ledgerSnapshot() models.Snapshot {
	payout := 50.0
	base := time.Date(2024, 2, 1, 12, 0, 0, 0, time.Local)
	return models.Snapshot{
		Restaurants: []models.Restaurant{{ID: "r1", Name: "Spice Villa"}},
		Partners:    []models.DeliveryPartner{{ID: "p1", Name: "Asha"}},
		Settings: models.PlatformSettings{
			TaxRate:            floatPtr(5),
			PlatformCommission: floatPtr(20),
			DeliveryBaseFee:    floatPtr(40),
		},
		Orders: []models.Order{
			// payable per order: (500-40)/1.05 * 0.8 = 350.476...
			{ID: "o1", RestaurantID: "r1", TotalAmount: 500, Status: models.OrderDelivered, CreatedAt: base.UnixMilli(), DeliveryPartnerID: strPtr("p1"), PartnerPayout: &payout},
			{ID: "o2", RestaurantID: "r1", TotalAmount: 500, Status: models.OrderPlaced, CreatedAt: base.AddDate(0, 0, 1).UnixMilli()},
			{ID: "o3", RestaurantID: "r1", TotalAmount: 9999, Status: models.OrderCancelled, CreatedAt: base.AddDate(0, 0, 2).UnixMilli()},
			// legacy delivered order without stored payout: falls back to fee 40
			{ID: "o4", RestaurantID: "r1", TotalAmount: 100, Status: models.OrderDelivered, CreatedAt: base.AddDate(0, 0, 3).UnixMilli(), DeliveryPartnerID: strPtr("p1")},
		},
	}
}

func TestLifetimeEarnings(t *testing.T) {
	snap := ledgerSnapshot()

	perOrder := (500.0 - 40.0) / 1.05 * 0.8
	smallOrder := (100.0 - 40.0) / 1.05 * 0.8

	earned, runs := LifetimeEarnings(snap, RestaurantPayee("r1"))
	if math.Abs(earned-(2*perOrder+smallOrder)) > 1e-9 {
		t.Fatalf("restaurant lifetime earnings wrong: %v", earned)
	}
	// Cancelled order excluded, all other statuses included.
	if runs != 3 {
		t.Fatalf("expected 3 contributing orders, got %d", runs)
	}

	fees, deliveries := LifetimeEarnings(snap, PartnerPayee("p1"))
	if fees != 90 { // stored 50 + fallback fee 40
		t.Fatalf("partner lifetime fees wrong: %v", fees)
	}
	if deliveries != 2 {
		t.Fatalf("expected 2 delivered runs, got %d", deliveries)
	}
}

func TestTotalSettledExcludesFailed(t *testing.T) {
	snap := ledgerSnapshot()
	snap.Settlements = []models.SettlementEvent{
		{ID: 1, RestaurantID: strPtr("r1"), Amount: 100, Timestamp: 1, Status: models.SettlementSuccess},
		{ID: 2, RestaurantID: strPtr("r1"), Amount: 999, Timestamp: 2, Status: models.SettlementFailed},
		{ID: 3, PartnerID: strPtr("p1"), Amount: 40, Timestamp: 3, Status: models.SettlementSuccess},
	}

	if got := TotalSettled(snap, RestaurantPayee("r1")); got != 100 {
		t.Fatalf("failed events must not count, got %v", got)
	}
	if got := TotalSettled(snap, PartnerPayee("p1")); got != 40 {
		t.Fatalf("partner settled wrong: %v", got)
	}

	// History keeps the failed event so the record stays complete.
	history := History(snap, RestaurantPayee("r1"))
	if len(history) != 2 {
		t.Fatalf("expected full history, got %d events", len(history))
	}
	if history[0].ID != 2 {
		t.Fatalf("history must be newest-first, got %+v", history[0])
	}
}

func TestOutstandingIdentityAfterSettlement(t *testing.T) {
	store := &memStore{}
	service := NewService(store)
	snap := ledgerSnapshot()

	payee := PartnerPayee("p1")
	earned, _ := LifetimeEarnings(snap, payee)

	event, err := service.RecordSettlement(context.Background(), snap, payee, earned, 0)
	if err != nil {
		t.Fatalf("settlement failed: %v", err)
	}
	if event.PartnerID == nil || *event.PartnerID != "p1" {
		t.Fatalf("event must target the partner, got %+v", event)
	}
	if event.Status != models.SettlementSuccess {
		t.Fatalf("recorded settlement must be SUCCESS, got %s", event.Status)
	}

	snap = store.snapshotInto(snap)
	if got := Outstanding(snap, payee); math.Abs(got) > 1e-9 {
		t.Fatalf("outstanding must be zero after full settlement, got %v", got)
	}
}

func TestSequentialOverSettlementReachesNegative(t *testing.T) {
	store := &memStore{}
	service := NewService(store)

	snap := models.Snapshot{
		Restaurants: []models.Restaurant{{ID: "r1", Name: "Spice Villa"}},
	}
	payee := RestaurantPayee("r1")

	// Two sequential settlements of 300 against an outstanding of 500: the
	// second passes the stale check because it observed the first.
	if _, err := service.RecordSettlement(context.Background(), snap, payee, 300, 0); err != nil {
		t.Fatalf("first settlement failed: %v", err)
	}
	if _, err := service.RecordSettlement(context.Background(), snap, payee, 300, 300); err != nil {
		t.Fatalf("second settlement failed: %v", err)
	}

	snap = store.snapshotInto(snap)
	outstanding := 500.0 - TotalSettled(snap, payee)
	if outstanding != -100 {
		t.Fatalf("over-settlement must be representable, got %v", outstanding)
	}
}

func TestRecordSettlementRejectsNonPositive(t *testing.T) {
	store := &memStore{}
	service := NewService(store)
	snap := ledgerSnapshot()

	for _, amount := range []float64{0, -50} {
		if _, err := service.RecordSettlement(context.Background(), snap, RestaurantPayee("r1"), amount, 0); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("amount %v must be rejected, got %v", amount, err)
		}
	}
	if len(store.events) != 0 {
		t.Fatalf("rejected settlements must not change state")
	}
}

func TestRecordSettlementRejectsUnknownPayee(t *testing.T) {
	service := NewService(&memStore{})
	snap := ledgerSnapshot()

	if _, err := service.RecordSettlement(context.Background(), snap, RestaurantPayee("ghost"), 100, 0); !errors.Is(err, ErrUnknownPayee) {
		t.Fatalf("expected ErrUnknownPayee, got %v", err)
	}
}

func TestConcurrentFullSettlementAdmitsOneWinner(t *testing.T) {
	store := &memStore{}
	service := NewService(store)
	snap := ledgerSnapshot()
	payee := RestaurantPayee("r1")

	// Both callers computed outstanding=500 from the same pre-race read.
	const racers = 2
	results := make(chan error, racers)
	var start sync.WaitGroup
	start.Add(1)
	for i := 0; i < racers; i++ {
		go func() {
			start.Wait()
			_, err := service.RecordSettlement(context.Background(), snap, payee, 500, 0)
			results <- err
		}()
	}
	start.Done()

	var accepted, stale int
	for i := 0; i < racers; i++ {
		switch err := <-results; {
		case err == nil:
			accepted++
		case errors.Is(err, ErrStaleBalance):
			stale++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if accepted != 1 || stale != 1 {
		t.Fatalf("expected exactly one winner, got accepted=%d stale=%d", accepted, stale)
	}
}
