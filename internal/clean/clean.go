// Package clean repairs missing or inconsistent fields per entity.
// Numeric gaps are filled with the median of the record's categorical
// group, falling back to the global median; categorical gaps use the
// modal value within the record's segment or the Unknown sentinel.
// Dates are never imputed: a null date stays null and date-dependent
// aggregates exclude the record.
package clean

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/nexgen-logistics/cost-intelligence/internal/models"
	"github.com/nexgen-logistics/cost-intelligence/internal/stats"
)

// Cleaner applies the imputation rules to a loaded Dataset.
type Cleaner struct {
	log *zap.Logger
}

// New returns a Cleaner.
func New(log *zap.Logger) *Cleaner {
	return &Cleaner{log: log}
}

// Clean returns a repaired copy of ds together with the warnings raised
// for every imputed field. The input dataset is not modified.
func (c *Cleaner) Clean(ds models.Dataset) (models.Dataset, []models.Warning) {
	out := models.Dataset{
		Orders:     append([]models.Order(nil), ds.Orders...),
		Deliveries: append([]models.DeliveryRecord(nil), ds.Deliveries...),
		Routes:     append([]models.Route(nil), ds.Routes...),
		Vehicles:   append([]models.Vehicle(nil), ds.Vehicles...),
		CostItems:  append([]models.CostItem(nil), ds.CostItems...),
		Inventory:  append([]models.InventoryRecord(nil), ds.Inventory...),
		Feedback:   append([]models.FeedbackRecord(nil), ds.Feedback...),
	}
	var warns []models.Warning

	c.cleanOrders(out.Orders, &warns)
	c.cleanDeliveries(out.Deliveries, &warns)
	c.cleanRoutes(out.Routes, &warns)
	c.cleanVehicles(out.Vehicles, &warns)
	c.cleanCostItems(out.CostItems, &warns)

	return out, warns
}

func (c *Cleaner) cleanOrders(orders []models.Order, warns *[]models.Warning) {
	imputeNumeric(c, "orders", "order_value", orders, warns,
		func(o *models.Order) string { return o.Priority },
		func(o *models.Order) string { return o.ID },
		func(o *models.Order) *models.Null[float64] { return &o.Value },
	)
	imputeNumeric(c, "orders", "weight_kg", orders, warns,
		func(o *models.Order) string { return o.Priority },
		func(o *models.Order) string { return o.ID },
		func(o *models.Order) *models.Null[float64] { return &o.WeightKg },
	)
	imputeCategorical(c, "orders", "priority", orders, warns,
		func(o *models.Order) string { return o.Segment },
		func(o *models.Order) string { return o.ID },
		func(o *models.Order) *string { return &o.Priority },
	)
	imputeCategorical(c, "orders", "product_category", orders, warns,
		func(o *models.Order) string { return o.Segment },
		func(o *models.Order) string { return o.ID },
		func(o *models.Order) *string { return &o.Category },
	)
	// Segment has no broader context to impute from.
	for i := range orders {
		if orders[i].Segment == "" {
			orders[i].Segment = models.SentinelUnknown
		}
		if orders[i].Status == "" {
			orders[i].Status = models.SentinelUnknown
		}
	}
}

func (c *Cleaner) cleanDeliveries(deliveries []models.DeliveryRecord, warns *[]models.Warning) {
	for i := range deliveries {
		if deliveries[i].Status == "" {
			deliveries[i].Status = models.SentinelUnknown
		}
	}
	imputeNumeric(c, "delivery_performance", "delivery_cost", deliveries, warns,
		func(d *models.DeliveryRecord) string { return d.Status },
		func(d *models.DeliveryRecord) string { return d.OrderID },
		func(d *models.DeliveryRecord) *models.Null[float64] { return &d.Cost },
	)
	imputeNumeric(c, "delivery_performance", "customer_rating", deliveries, warns,
		func(d *models.DeliveryRecord) string { return d.Status },
		func(d *models.DeliveryRecord) string { return d.OrderID },
		func(d *models.DeliveryRecord) *models.Null[float64] { return &d.Rating },
	)
	imputeNumeric(c, "delivery_performance", "promised_days", deliveries, warns,
		func(d *models.DeliveryRecord) string { return d.Status },
		func(d *models.DeliveryRecord) string { return d.OrderID },
		func(d *models.DeliveryRecord) *models.Null[float64] { return &d.PromisedDays },
	)
	imputeNumeric(c, "delivery_performance", "actual_days", deliveries, warns,
		func(d *models.DeliveryRecord) string { return d.Status },
		func(d *models.DeliveryRecord) string { return d.OrderID },
		func(d *models.DeliveryRecord) *models.Null[float64] { return &d.ActualDays },
	)
}

func (c *Cleaner) cleanRoutes(routes []models.Route, warns *[]models.Warning) {
	imputeNumeric(c, "routes", "distance_km", routes, warns,
		func(r *models.Route) string { return r.Origin },
		func(r *models.Route) string { return r.ID },
		func(r *models.Route) *models.Null[float64] { return &r.DistanceKm },
	)
	imputeNumeric(c, "routes", "toll_cost", routes, warns,
		func(r *models.Route) string { return r.Origin },
		func(r *models.Route) string { return r.ID },
		func(r *models.Route) *models.Null[float64] { return &r.TollCost },
	)
	for i := range routes {
		if routes[i].Carrier == "" {
			routes[i].Carrier = models.SentinelUnknown
		}
	}
}

func (c *Cleaner) cleanVehicles(vehicles []models.Vehicle, warns *[]models.Warning) {
	imputeNumeric(c, "vehicle_fleet", "co2_per_km", vehicles, warns,
		func(v *models.Vehicle) string { return v.Type },
		func(v *models.Vehicle) string { return v.ID },
		func(v *models.Vehicle) *models.Null[float64] { return &v.CO2PerKm },
	)
	imputeNumeric(c, "vehicle_fleet", "fuel_efficiency_kmpl", vehicles, warns,
		func(v *models.Vehicle) string { return v.Type },
		func(v *models.Vehicle) string { return v.ID },
		func(v *models.Vehicle) *models.Null[float64] { return &v.FuelEfficiency },
	)
}

func (c *Cleaner) cleanCostItems(items []models.CostItem, warns *[]models.Warning) {
	for i := range items {
		if items[i].Category == "" {
			items[i].Category = models.SentinelUnknown
		}
	}
	imputeNumeric(c, "cost_breakdown", "amount", items, warns,
		func(it *models.CostItem) string { return it.Category },
		func(it *models.CostItem) string { return it.OrderID },
		func(it *models.CostItem) *models.Null[float64] { return &it.Amount },
	)
}

// imputeNumeric fills missing numeric fields with the median of the same
// categorical group when available, falling back to the global median.
// Rows stay untouched when no median exists at all.
func imputeNumeric[T any](
	c *Cleaner,
	entity, field string,
	rows []T,
	warns *[]models.Warning,
	group func(*T) string,
	key func(*T) string,
	value func(*T) *models.Null[float64],
) {
	byGroup := make(map[string][]float64)
	var all []float64
	for i := range rows {
		if v := value(&rows[i]); v.Valid {
			byGroup[group(&rows[i])] = append(byGroup[group(&rows[i])], v.Value)
			all = append(all, v.Value)
		}
	}
	globalMedian, haveGlobal := stats.Median(all)

	for i := range rows {
		v := value(&rows[i])
		if v.Valid {
			continue
		}
		filled, source := 0.0, ""
		if m, ok := stats.Median(byGroup[group(&rows[i])]); ok {
			filled, source = m, fmt.Sprintf("group %q median", group(&rows[i]))
		} else if haveGlobal {
			filled, source = globalMedian, "global median"
		} else {
			continue // nothing to impute from, stays null
		}
		*v = models.Some(filled)
		*warns = append(*warns, models.Warning{
			Entity: entity,
			Key:    key(&rows[i]),
			Field:  field,
			Reason: "missing value imputed from " + source,
		})
		c.log.Debug("imputed numeric field",
			zap.String("entity", entity),
			zap.String("key", key(&rows[i])),
			zap.String("field", field),
			zap.Float64("value", filled),
		)
	}
}

// imputeCategorical fills missing categorical fields with the modal value
// within the record's segment, or the Unknown sentinel without context.
func imputeCategorical[T any](
	c *Cleaner,
	entity, field string,
	rows []T,
	warns *[]models.Warning,
	segment func(*T) string,
	key func(*T) string,
	value func(*T) *string,
) {
	bySegment := make(map[string][]string)
	for i := range rows {
		if v := *value(&rows[i]); v != "" {
			bySegment[segment(&rows[i])] = append(bySegment[segment(&rows[i])], v)
		}
	}

	for i := range rows {
		v := value(&rows[i])
		if *v != "" {
			continue
		}
		filled := models.SentinelUnknown
		seg := segment(&rows[i])
		if seg != "" {
			if m, ok := stats.Mode(bySegment[seg]); ok {
				filled = m
			}
		}
		*v = filled
		*warns = append(*warns, models.Warning{
			Entity: entity,
			Key:    key(&rows[i]),
			Field:  field,
			Reason: fmt.Sprintf("missing category imputed as %q", filled),
		})
		c.log.Debug("imputed categorical field",
			zap.String("entity", entity),
			zap.String("key", key(&rows[i])),
			zap.String("field", field),
			zap.String("value", filled),
		)
	}
}
