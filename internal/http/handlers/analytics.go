package handlers

import (
	"fmt"
	"net/http"
	"time"

	"marketfin-finance-services/internal/finance"
	"marketfin-finance-services/pkg/response"

	"go.uber.org/zap"
)

type dateRange struct {
	Start *int64 `json:"start"`
	End   *int64 `json:"end"`
}

type analyticsResult struct {
	Window      finance.Window              `json:"window"`
	DateRange   dateRange                   `json:"dateRange"`
	Version     int64                       `json:"version"`
	Totals      finance.GlobalMetrics       `json:"totals"`
	Restaurants []finance.RestaurantMetrics `json:"restaurants"`
	Partners    []finance.PartnerMetrics    `json:"partners"`
}

// Windows that run through "now" carry a sentinel upper bound; the response
// reports those as open-ended.
const maxExposedEndMs = int64(1) << 60

// Analytics computes the financial rollup for the requested window.
// Results are cached per (window, status, includeIdle, snapshot version);
// the version in the key makes stale entries unreachable without explicit
// invalidation.
func (h *Handler) Analytics(w http.ResponseWriter, r *http.Request) {
	window, err := finance.ParseWindow(r.URL.Query().Get("window"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_WINDOW", "Unknown analytics window")
		return
	}
	statusFilter, ok := parseStatusFilter(r.URL.Query().Get("status"))
	if !ok {
		response.Error(w, http.StatusBadRequest, "INVALID_STATUS", "Unknown or unsupported order status filter")
		return
	}
	includeIdle := r.URL.Query().Get("includeIdle") == "true"

	snap := h.Feed.Snapshot()
	cacheKey := fmt.Sprintf("analytics:%s:%s:%t:v%d", window, statusFilter, includeIdle, snap.Version)

	var cached analyticsResult
	if hit, err := h.Cache.Get(r.Context(), cacheKey, &cached); err != nil {
		h.Logger.Warn("analytics cache read failed", zap.Error(err))
	} else if hit {
		response.Success(w, cached)
		return
	}

	now := time.Now()
	totals, restaurants, partners := finance.Aggregate(snap, window, statusFilter, now)
	if !includeIdle {
		restaurants = finance.ActiveOnly(restaurants)
	}

	var rng dateRange
	if start, end, bounded := window.Bounds(now); bounded {
		rng.Start = &start
		if end < maxExposedEndMs {
			rng.End = &end
		}
	}

	result := analyticsResult{
		Window:      window,
		DateRange:   rng,
		Version:     snap.Version,
		Totals:      totals,
		Restaurants: restaurants,
		Partners:    partners,
	}
	if err := h.Cache.Set(r.Context(), cacheKey, result); err != nil {
		h.Logger.Warn("analytics cache write failed", zap.Error(err))
	}
	response.Success(w, result)
}
