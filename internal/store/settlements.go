package store

import (
	"context"
	"math"
	"time"

	"marketfin-finance-services/internal/ledger"
	"marketfin-finance-services/internal/models"
	"marketfin-finance-services/internal/utils"

	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"
)

// Two float64 settled totals computed from the same events may differ by
// accumulated rounding; anything beyond this is a real divergence.
const settledTolerance = 0.005

// AppendSettlement records one settlement as a single read-then-append unit.
// A per-payee advisory lock serializes writers; the settled total is
// recomputed under that lock and compared against what the caller observed
// when it read the balance. Two racing full settlements therefore admit at
// most one winner, the other gets ledger.ErrStaleBalance.
func (s *Store) AppendSettlement(ctx context.Context, payee ledger.Payee, amount float64, settledAsOf float64) (models.SettlementEvent, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return models.SettlementEvent{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	lockKey := string(payee.Kind) + ":" + payee.ID
	if _, err := tx.Exec(ctx, `select pg_advisory_xact_lock(hashtextextended($1, 0))`, lockKey); err != nil {
		return models.SettlementEvent{}, err
	}

	var settledValue pgtype.Numeric
	err = tx.QueryRow(ctx, `
		select coalesce(sum(amount), 0)
		from settlement_events
		where status = 'SUCCESS'
		  and (($1 = 'RESTAURANT' and restaurant_id = $2)
		    or ($1 = 'PARTNER' and partner_id = $2))
	`, string(payee.Kind), payee.ID).Scan(&settledValue)
	if err != nil {
		return models.SettlementEvent{}, err
	}

	settled := utils.NumericToFloat64(settledValue)
	if math.Abs(settled-settledAsOf) > settledTolerance {
		s.Logger.Warn("settlement rejected on stale balance",
			zap.String("payeeKind", string(payee.Kind)),
			zap.String("payeeId", payee.ID),
			zap.Float64("settled", settled),
			zap.Float64("settledAsOf", settledAsOf),
		)
		return models.SettlementEvent{}, ledger.ErrStaleBalance
	}

	var (
		restaurantID *string
		partnerID    *string
	)
	switch payee.Kind {
	case models.PayeeRestaurant:
		restaurantID = &payee.ID
	case models.PayeePartner:
		partnerID = &payee.ID
	}

	var (
		id        int64
		createdAt time.Time
	)
	err = tx.QueryRow(ctx, `
		insert into settlement_events (restaurant_id, partner_id, amount, status)
		values ($1, $2, $3, 'SUCCESS')
		returning id, created_at
	`, restaurantID, partnerID, amount).Scan(&id, &createdAt)
	if err != nil {
		return models.SettlementEvent{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return models.SettlementEvent{}, err
	}

	return models.SettlementEvent{
		ID:           id,
		RestaurantID: restaurantID,
		PartnerID:    partnerID,
		Amount:       amount,
		Timestamp:    createdAt.UnixMilli(),
		Status:       models.SettlementSuccess,
	}, nil
}
