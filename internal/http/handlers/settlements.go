package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"marketfin-finance-services/internal/ledger"
	"marketfin-finance-services/internal/models"
	"marketfin-finance-services/pkg/response"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type settlementRequest struct {
	Amount float64 `json:"amount"`
	// SettledAsOf is the totalSettled figure the operator saw when reading
	// the ledger. A mismatch at write time means another settlement landed
	// in between.
	SettledAsOf float64 `json:"settledAsOf"`
}

func (h *Handler) RecordRestaurantSettlement(w http.ResponseWriter, r *http.Request) {
	h.recordSettlement(w, r, ledger.RestaurantPayee(chi.URLParam(r, "id")))
}

func (h *Handler) RecordPartnerSettlement(w http.ResponseWriter, r *http.Request) {
	h.recordSettlement(w, r, ledger.PartnerPayee(chi.URLParam(r, "id")))
}

func (h *Handler) recordSettlement(w http.ResponseWriter, r *http.Request, payee ledger.Payee) {
	var req settlementRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	snap := h.Feed.Snapshot()
	event, err := h.Ledger.RecordSettlement(r.Context(), snap, payee, req.Amount, req.SettledAsOf)
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount):
		response.Error(w, http.StatusBadRequest, "INVALID_AMOUNT", "Settlement amount must be positive")
		return
	case errors.Is(err, ledger.ErrUnknownPayee):
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Payee not found")
		return
	case errors.Is(err, ledger.ErrStaleBalance):
		response.Error(w, http.StatusConflict, "STALE_BALANCE", "Balance changed since it was read, reload and retry")
		return
	case err != nil:
		h.Logger.Error("settlement append failed",
			zap.String("payeeKind", string(payee.Kind)),
			zap.String("payeeId", payee.ID),
			zap.Error(err),
		)
		response.Error(w, http.StatusInternalServerError, "INTERNAL", "Failed to record settlement")
		return
	}

	h.afterSettlement(event)

	snap = h.Feed.Snapshot()
	payload := map[string]any{
		"event":   event,
		"balance": roundedBalance(ledger.BalanceOf(snap, payee)),
	}
	response.JSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"data":    payload,
	})
}

// afterSettlement refreshes the snapshot so the response reflects the new
// event, then announces it on the change feed. Both are best-effort; the
// settlement is already durable.
func (h *Handler) afterSettlement(event models.SettlementEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := h.Feed.Refresh(ctx); err != nil {
		h.Logger.Warn("snapshot refresh after settlement failed", zap.Error(err))
	}
	if h.Queue != nil {
		if err := h.Queue.PublishJSON(ctx, "settlements.recorded", event); err != nil {
			h.Logger.Warn("settlement event publish failed", zap.Error(err))
		}
	}
}
