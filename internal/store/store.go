// Package store loads the raw entity tables into typed, normalized
// records. Malformed values become nulls with a data-quality warning,
// never a fatal error.
package store

import (
	"context"

	"github.com/nexgen-logistics/cost-intelligence/internal/models"
)

// Entity file names inside a data directory, and topic suffixes for the
// Kafka source.
const (
	EntityOrders     = "orders"
	EntityDeliveries = "delivery_performance"
	EntityRoutes     = "routes"
	EntityVehicles   = "vehicle_fleet"
	EntityCosts      = "cost_breakdown"
	EntityInventory  = "warehouse_inventory"
	EntityFeedback   = "customer_feedback"
)

// Source loads one full Dataset snapshot. Loading happens once per
// analysis session; the returned snapshot is read-only afterwards.
type Source interface {
	Load(ctx context.Context) (models.Dataset, []models.Warning, error)
}
