package finance

import (
	"sort"
	"time"

	"marketfin-finance-services/internal/models"
)

type GlobalMetrics struct {
	Breakdown
	OrderCount int64 `json:"orderCount"`
}

type RestaurantMetrics struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Breakdown
	OrderCount int64 `json:"orderCount"`
}

type PartnerMetrics struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	DeliveriesCount int64   `json:"deliveriesCount"`
	TotalFees       float64 `json:"totalFees"`
}

// Aggregate folds every eligible order in the snapshot into global totals,
// per-restaurant buckets, and per-partner buckets. Cancelled orders never
// contribute; statusFilter (empty = all) narrows further; the window filters
// on creation time evaluated against now.
//
// Every known restaurant gets a bucket even with zero matching orders, so
// callers decide whether to hide idle rows. Partner buckets accrue only from
// DELIVERED orders with an assigned partner. Output ordering is
// deterministic: payable (fees for partners) descending, ID ascending.
func Aggregate(snap models.Snapshot, window Window, statusFilter models.OrderStatus, now time.Time) (GlobalMetrics, []RestaurantMetrics, []PartnerMetrics) {
	var global GlobalMetrics

	restaurantBuckets := make(map[string]*RestaurantMetrics, len(snap.Restaurants))
	for _, r := range snap.Restaurants {
		restaurantBuckets[r.ID] = &RestaurantMetrics{ID: r.ID, Name: r.Name}
	}
	partnerBuckets := make(map[string]*PartnerMetrics)

	for _, order := range snap.Orders {
		if order.Status == models.OrderCancelled {
			continue
		}
		if statusFilter != "" && order.Status != statusFilter {
			continue
		}
		if !window.Contains(order.CreatedAt, now) {
			continue
		}

		rates := Resolve(snap.RestaurantByID(order.RestaurantID), snap.Settings)
		contribution := Compute(order, rates)

		delivered := order.Status == models.OrderDelivered
		if !delivered {
			// Partner earnings accrue on completed deliveries only.
			contribution.TotalPartnerPayouts = 0
		}

		global.Add(contribution)
		global.OrderCount++

		bucket := restaurantBuckets[order.RestaurantID]
		if bucket == nil {
			name := order.RestaurantName
			if name == "" {
				name = "Unknown"
			}
			bucket = &RestaurantMetrics{ID: order.RestaurantID, Name: name}
			restaurantBuckets[order.RestaurantID] = bucket
		}
		restContribution := contribution
		restContribution.TotalPartnerPayouts = 0
		bucket.Add(restContribution)
		bucket.OrderCount++

		if delivered && order.DeliveryPartnerID != nil {
			pid := *order.DeliveryPartnerID
			pBucket := partnerBuckets[pid]
			if pBucket == nil {
				name := pid
				if p := snap.PartnerByID(pid); p != nil {
					name = p.Name
				}
				pBucket = &PartnerMetrics{ID: pid, Name: name}
				partnerBuckets[pid] = pBucket
			}
			pBucket.DeliveriesCount++
			pBucket.TotalFees += PartnerPayout(order, rates)
		}
	}

	restaurants := make([]RestaurantMetrics, 0, len(restaurantBuckets))
	for _, bucket := range restaurantBuckets {
		restaurants = append(restaurants, *bucket)
	}
	sort.Slice(restaurants, func(i, j int) bool {
		if restaurants[i].TotalRestaurantPayable != restaurants[j].TotalRestaurantPayable {
			return restaurants[i].TotalRestaurantPayable > restaurants[j].TotalRestaurantPayable
		}
		return restaurants[i].ID < restaurants[j].ID
	})

	partners := make([]PartnerMetrics, 0, len(partnerBuckets))
	for _, bucket := range partnerBuckets {
		partners = append(partners, *bucket)
	}
	sort.Slice(partners, func(i, j int) bool {
		if partners[i].TotalFees != partners[j].TotalFees {
			return partners[i].TotalFees > partners[j].TotalFees
		}
		return partners[i].ID < partners[j].ID
	})

	return global, restaurants, partners
}

// ActiveOnly drops restaurant rows that matched no orders, mirroring how
// dashboards hide idle restaurants by default.
func ActiveOnly(rows []RestaurantMetrics) []RestaurantMetrics {
	out := make([]RestaurantMetrics, 0, len(rows))
	for _, row := range rows {
		if row.OrderCount > 0 {
			out = append(out, row)
		}
	}
	return out
}
