package handlers

import (
	"net/http"

	"marketfin-finance-services/internal/ledger"
	"marketfin-finance-services/internal/models"
	"marketfin-finance-services/internal/utils"
	"marketfin-finance-services/pkg/response"

	"github.com/go-chi/chi/v5"
)

type ledgerResult struct {
	Payee struct {
		Kind models.PayeeKind `json:"kind"`
		ID   string           `json:"id"`
		Name string           `json:"name"`
	} `json:"payee"`
	ledger.Balance
}

// roundedBalance trims amounts to two decimals for display. The operator
// echoes totalSettled back as settledAsOf, and the store's stale check
// tolerates exactly this much rounding.
func roundedBalance(b ledger.Balance) ledger.Balance {
	b.LifetimeEarnings = utils.Round2(b.LifetimeEarnings)
	b.TotalSettled = utils.Round2(b.TotalSettled)
	b.Outstanding = utils.Round2(b.Outstanding)
	return b
}

func (h *Handler) RestaurantLedger(w http.ResponseWriter, r *http.Request) {
	snap := h.Feed.Snapshot()
	id := chi.URLParam(r, "id")

	restaurant := snap.RestaurantByID(id)
	if restaurant == nil {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Restaurant not found")
		return
	}

	result := ledgerResult{Balance: roundedBalance(ledger.BalanceOf(snap, ledger.RestaurantPayee(id)))}
	result.Payee.Kind = models.PayeeRestaurant
	result.Payee.ID = id
	result.Payee.Name = restaurant.Name
	response.Success(w, result)
}

func (h *Handler) PartnerLedger(w http.ResponseWriter, r *http.Request) {
	snap := h.Feed.Snapshot()
	id := chi.URLParam(r, "id")

	partner := snap.PartnerByID(id)
	if partner == nil {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Delivery partner not found")
		return
	}

	result := ledgerResult{Balance: roundedBalance(ledger.BalanceOf(snap, ledger.PartnerPayee(id)))}
	result.Payee.Kind = models.PayeePartner
	result.Payee.ID = id
	result.Payee.Name = partner.Name
	response.Success(w, result)
}
