package store

import (
	"context"
	"time"

	"marketfin-finance-services/internal/models"
	"marketfin-finance-services/internal/utils"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Store reads full-collection snapshots and appends settlement events. The
// four read collections are never written by this service; settlement_events
// is append-only.
type Store struct {
	DB     *pgxpool.Pool
	Logger *zap.Logger
}

func New(db *pgxpool.Pool, logger *zap.Logger) *Store {
	return &Store{DB: db, Logger: logger}
}

// LoadSnapshot reads every collection in one pass. The result is a fully
// observed state; callers treat it as immutable.
func (s *Store) LoadSnapshot(ctx context.Context) (models.Snapshot, error) {
	snap := models.Snapshot{LoadedAt: time.Now()}

	var err error
	if snap.Restaurants, err = s.loadRestaurants(ctx); err != nil {
		return models.Snapshot{}, err
	}
	if snap.Partners, err = s.loadPartners(ctx); err != nil {
		return models.Snapshot{}, err
	}
	if snap.Settings, err = s.loadSettings(ctx); err != nil {
		return models.Snapshot{}, err
	}
	if snap.Orders, err = s.loadOrders(ctx); err != nil {
		return models.Snapshot{}, err
	}
	if snap.Settlements, err = s.loadSettlements(ctx); err != nil {
		return models.Snapshot{}, err
	}
	return snap, nil
}

func (s *Store) loadRestaurants(ctx context.Context) ([]models.Restaurant, error) {
	rows, err := s.DB.Query(ctx, `
		select id, name, custom_tax_rate, commission_rate, custom_delivery_fee, upi_id
		from restaurants
		order by id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.Restaurant, 0)
	for rows.Next() {
		var (
			r           models.Restaurant
			taxRate     pgtype.Numeric
			commission  pgtype.Numeric
			deliveryFee pgtype.Numeric
			upiID       pgtype.Text
		)
		if err := rows.Scan(&r.ID, &r.Name, &taxRate, &commission, &deliveryFee, &upiID); err != nil {
			return nil, err
		}
		r.CustomTaxRate = utils.NumericToFloat64Ptr(taxRate)
		r.CommissionRate = utils.NumericToFloat64Ptr(commission)
		r.CustomDeliveryFee = utils.NumericToFloat64Ptr(deliveryFee)
		r.UPIID = utils.TextPtr(upiID)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) loadPartners(ctx context.Context) ([]models.DeliveryPartner, error) {
	rows, err := s.DB.Query(ctx, `
		select id, name, phone, vehicle_number, upi_id
		from delivery_partners
		order by id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.DeliveryPartner, 0)
	for rows.Next() {
		var (
			p     models.DeliveryPartner
			upiID pgtype.Text
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Phone, &p.VehicleNumber, &upiID); err != nil {
			return nil, err
		}
		p.UPIID = utils.TextPtr(upiID)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) loadSettings(ctx context.Context) (models.PlatformSettings, error) {
	var (
		settings    models.PlatformSettings
		taxRate     pgtype.Numeric
		commission  pgtype.Numeric
		baseFee     pgtype.Numeric
		perDistance pgtype.Numeric
	)
	err := s.DB.QueryRow(ctx, `
		select tax_rate, platform_commission, delivery_base_fee, delivery_per_km
		from platform_settings
		where id = 1
	`).Scan(&taxRate, &commission, &baseFee, &perDistance)
	if err == pgx.ErrNoRows {
		// Missing settings row is not an error: rate resolution falls back.
		return models.PlatformSettings{}, nil
	}
	if err != nil {
		return models.PlatformSettings{}, err
	}
	settings.TaxRate = utils.NumericToFloat64Ptr(taxRate)
	settings.PlatformCommission = utils.NumericToFloat64Ptr(commission)
	settings.DeliveryBaseFee = utils.NumericToFloat64Ptr(baseFee)
	settings.DeliveryPerKm = utils.NumericToFloat64Ptr(perDistance)
	return settings, nil
}

func (s *Store) loadOrders(ctx context.Context) ([]models.Order, error) {
	rows, err := s.DB.Query(ctx, `
		select id, restaurant_id, restaurant_name, total_amount, payment_method,
		       status, created_at, delivery_partner_id, partner_payout
		from orders
		order by created_at, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.Order, 0)
	for rows.Next() {
		var (
			o             models.Order
			totalAmount   pgtype.Numeric
			paymentMethod string
			status        string
			createdAt     time.Time
			partnerID     pgtype.Text
			partnerPayout pgtype.Numeric
		)
		if err := rows.Scan(&o.ID, &o.RestaurantID, &o.RestaurantName, &totalAmount,
			&paymentMethod, &status, &createdAt, &partnerID, &partnerPayout); err != nil {
			return nil, err
		}
		o.TotalAmount = utils.NumericToFloat64(totalAmount)
		o.PaymentMethod = models.PaymentMethod(paymentMethod)
		o.Status = models.OrderStatus(status)
		o.CreatedAt = createdAt.UnixMilli()
		o.DeliveryPartnerID = utils.TextPtr(partnerID)
		o.PartnerPayout = utils.NumericToFloat64Ptr(partnerPayout)
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *Store) loadSettlements(ctx context.Context) ([]models.SettlementEvent, error) {
	rows, err := s.DB.Query(ctx, `
		select id, restaurant_id, partner_id, amount, status, created_at
		from settlement_events
		order by id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.SettlementEvent, 0)
	for rows.Next() {
		var (
			e            models.SettlementEvent
			restaurantID pgtype.Text
			partnerID    pgtype.Text
			amount       pgtype.Numeric
			status       string
			createdAt    time.Time
		)
		if err := rows.Scan(&e.ID, &restaurantID, &partnerID, &amount, &status, &createdAt); err != nil {
			return nil, err
		}
		e.RestaurantID = utils.TextPtr(restaurantID)
		e.PartnerID = utils.TextPtr(partnerID)
		e.Amount = utils.NumericToFloat64(amount)
		e.Status = models.SettlementStatus(status)
		e.Timestamp = createdAt.UnixMilli()
		out = append(out, e)
	}
	return out, rows.Err()
}
