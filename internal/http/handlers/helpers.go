package handlers

import (
	"encoding/json"
	"net/http"

	"marketfin-finance-services/internal/models"
	"marketfin-finance-services/pkg/response"
)

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_BODY", "Request body is not valid JSON")
		return false
	}
	return true
}

// parseStatusFilter validates the optional ?status= query value. Empty means
// no filter; CANCELLED is rejected because cancelled orders never contribute
// to financials.
func parseStatusFilter(value string) (models.OrderStatus, bool) {
	switch models.OrderStatus(value) {
	case "", models.OrderPlaced, models.OrderConfirmed, models.OrderPreparing,
		models.OrderOutForDelivery, models.OrderDelivered:
		return models.OrderStatus(value), true
	}
	return "", false
}
