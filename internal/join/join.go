// Package join merges the cleaned entity tables into the unified
// order-centric table. The join is total on orders: every order appears
// exactly once in the output, with nulls where foreign entities did not
// match.
package join

import (
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/nexgen-logistics/cost-intelligence/internal/config"
	"github.com/nexgen-logistics/cost-intelligence/internal/models"
	"github.com/nexgen-logistics/cost-intelligence/internal/stats"
)

// Joiner builds the unified order table from a cleaned snapshot.
type Joiner struct {
	cfg config.AnalyticsConfig
	log *zap.Logger
}

// New returns a Joiner.
func New(cfg config.AnalyticsConfig, log *zap.Logger) *Joiner {
	return &Joiner{cfg: cfg, log: log}
}

// Join left-joins deliveries, routes, cost totals, customer feedback,
// and the vehicle CO2 factor onto every order. Unresolved references
// become nulls plus a join-mismatch warning, never row loss.
func (j *Joiner) Join(ds models.Dataset) ([]models.UnifiedOrder, []models.Warning) {
	var warns []models.Warning

	deliveries := make(map[string]*models.DeliveryRecord, len(ds.Deliveries))
	for i := range ds.Deliveries {
		deliveries[ds.Deliveries[i].OrderID] = &ds.Deliveries[i]
	}

	routes := make(map[models.Segment][]*models.Route)
	for i := range ds.Routes {
		seg := models.Segment{Origin: ds.Routes[i].Origin, Destination: ds.Routes[i].Destination}
		routes[seg] = append(routes[seg], &ds.Routes[i])
	}
	// Deterministic candidate order: shortest distance first, then id.
	for _, candidates := range routes {
		sort.Slice(candidates, func(a, b int) bool {
			da := candidates[a].DistanceKm.Or(math.MaxFloat64)
			db := candidates[b].DistanceKm.Or(math.MaxFloat64)
			if da != db {
				return da < db
			}
			return candidates[a].ID < candidates[b].ID
		})
	}

	costTotals := make(map[string]map[string]float64)
	for _, item := range ds.CostItems {
		if !item.Amount.Valid {
			continue
		}
		byCat := costTotals[item.OrderID]
		if byCat == nil {
			byCat = make(map[string]float64)
			costTotals[item.OrderID] = byCat
		}
		byCat[item.Category] += item.Amount.Value
	}

	// First feedback record per order wins; later duplicates are ignored.
	feedback := make(map[string]*models.FeedbackRecord, len(ds.Feedback))
	for i := range ds.Feedback {
		if _, ok := feedback[ds.Feedback[i].OrderID]; !ok {
			feedback[ds.Feedback[i].OrderID] = &ds.Feedback[i]
		}
	}

	vehicles := make(map[string]*models.Vehicle, len(ds.Vehicles))
	var co2Factors []float64
	for i := range ds.Vehicles {
		vehicles[ds.Vehicles[i].ID] = &ds.Vehicles[i]
		if ds.Vehicles[i].CO2PerKm.Valid {
			co2Factors = append(co2Factors, ds.Vehicles[i].CO2PerKm.Value)
		}
	}
	fleetCO2, haveFleetCO2 := stats.Mean(co2Factors)

	unified := make([]models.UnifiedOrder, 0, len(ds.Orders))
	for _, order := range ds.Orders {
		row := models.UnifiedOrder{Order: order}

		row.Delivery = deliveries[order.ID]
		if row.Delivery == nil && order.Status == models.OrderDelivered {
			warns = append(warns, models.Warning{
				Entity: "orders",
				Key:    order.ID,
				Field:  "delivery",
				Reason: "delivered order has no delivery record",
			})
		}

		row.Route = j.matchRoute(order, routes)
		if row.Route == nil {
			warns = append(warns, models.Warning{
				Entity: "orders",
				Key:    order.ID,
				Field:  "route",
				Reason: "no route for origin/destination, downstream metrics null",
			})
			j.log.Debug("route join mismatch",
				zap.String("order", order.ID),
				zap.String("origin", order.Origin),
				zap.String("destination", order.Destination),
			)
		}

		if byCat, ok := costTotals[order.ID]; ok {
			row.CostByCategory = byCat
			var total float64
			for _, amount := range byCat {
				total += amount
			}
			row.TotalCost = models.Some(total)
			j.reconcile(&row, total, &warns)
		} else if row.Delivery != nil && row.Delivery.Cost.Valid {
			// No itemized costs; fall back to the recorded delivery cost.
			row.TotalCost = row.Delivery.Cost
		}

		// Auxiliary tables join opportunistically: absent records stay nil
		// without a warning.
		row.Feedback = feedback[order.ID]

		row.CO2PerKm = j.vehicleCO2(order, vehicles, fleetCO2, haveFleetCO2)

		unified = append(unified, row)
	}
	return unified, warns
}

// matchRoute resolves the order's lane, preferring the route whose
// carrier matches the order's assigned carrier, else the shortest
// candidate.
func (j *Joiner) matchRoute(order models.Order, routes map[models.Segment][]*models.Route) *models.Route {
	candidates := routes[models.Segment{Origin: order.Origin, Destination: order.Destination}]
	if len(candidates) == 0 {
		return nil
	}
	if order.Carrier.Valid {
		for _, r := range candidates {
			if r.Carrier == order.Carrier.Value {
				return r
			}
		}
	}
	return candidates[0]
}

// reconcile warns when the summed cost items disagree with the recorded
// delivery cost beyond the configured tolerance. Never fatal.
func (j *Joiner) reconcile(row *models.UnifiedOrder, itemTotal float64, warns *[]models.Warning) {
	if row.Delivery == nil || !row.Delivery.Cost.Valid || row.Delivery.Cost.Value <= 0 {
		return
	}
	recorded := row.Delivery.Cost.Value
	if math.Abs(itemTotal-recorded)/recorded > j.cfg.CostTolerancePct {
		*warns = append(*warns, models.Warning{
			Entity: "cost_breakdown",
			Key:    row.ID,
			Field:  "amount",
			Reason: "summed cost items disagree with recorded delivery cost",
		})
		j.log.Warn("cost reconciliation mismatch",
			zap.String("order", row.ID),
			zap.Float64("items_total", itemTotal),
			zap.Float64("recorded", recorded),
		)
	}
}

// vehicleCO2 resolves the emission factor: the assigned vehicle's when
// known, otherwise the fleet average.
func (j *Joiner) vehicleCO2(
	order models.Order,
	vehicles map[string]*models.Vehicle,
	fleetCO2 float64,
	haveFleetCO2 bool,
) models.Null[float64] {
	if order.VehicleID.Valid {
		if v, ok := vehicles[order.VehicleID.Value]; ok && v.CO2PerKm.Valid {
			return v.CO2PerKm
		}
	}
	if haveFleetCO2 {
		return models.Some(fleetCO2)
	}
	return models.None[float64]()
}
