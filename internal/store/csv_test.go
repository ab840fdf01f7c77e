package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nexgen-logistics/cost-intelligence/internal/models"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestDirSourceLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "orders.csv", `order_id,order_date,customer_id,customer_segment,origin_warehouse,destination_city,route_id,carrier,priority,product_category,weight_kg,order_value,vehicle_assigned,status
ORD1,2024-03-01,CUST1,Retail,WH_East,Chicago,RT1,FastShip,Express,Electronics,120.5,890.00,VEH1,Delivered
ORD2,,CUST2,Retail,WH_East,Chicago,RT1,,Standard,Apparel,60,,,Pending
`)
	writeFile(t, dir, "delivery_performance.csv", `order_id,promised_days,actual_days,delivery_status,quality_issue,damage_reported,customer_rating,delivery_cost
ORD1,2,5,Delayed,false,true,2,310.50
`)
	writeFile(t, dir, "routes.csv", `route_id,origin_warehouse,destination_city,carrier,distance_km,fuel_consumption_l,toll_cost,avg_traffic_delay_min,weather_impact
RT1,WH_East,Chicago,FastShip,950,210.4,45,32,false
`)
	writeFile(t, dir, "vehicle_fleet.csv", `vehicle_id,vehicle_type,capacity_kg,fuel_efficiency_kmpl,co2_per_km,status
VEH1,Box Truck,5000,9.2,2.8,Active
`)
	writeFile(t, dir, "cost_breakdown.csv", `order_id,cost_category,amount
ORD1,Fuel,120.00
ORD1,Labor,95.50
`)

	src := NewDirSource(dir, zap.NewNop())
	ds, warns, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, warns)

	require.Len(t, ds.Orders, 2)
	first := ds.Orders[0]
	assert.Equal(t, "ORD1", first.ID)
	assert.Equal(t, models.Some(890.00), first.Value)
	assert.Equal(t, models.Some("FastShip"), first.Carrier)
	require.True(t, first.PlacedAt.Valid)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), first.PlacedAt.Value)

	second := ds.Orders[1]
	assert.False(t, second.PlacedAt.Valid)
	assert.False(t, second.Value.Valid)
	assert.False(t, second.Carrier.Valid)

	require.Len(t, ds.Deliveries, 1)
	assert.Equal(t, models.Some(true), ds.Deliveries[0].DamageReported)
	require.Len(t, ds.Routes, 1)
	assert.Equal(t, models.Some(950.0), ds.Routes[0].DistanceKm)
	require.Len(t, ds.CostItems, 2)
}

func TestDirSourceMalformedValuesBecomeNullWithWarning(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "orders.csv", `order_id,order_date,order_value,status
ORD1,not-a-date,abc,Delivered
`)
	writeFile(t, dir, "delivery_performance.csv", "order_id,delivery_status\n")
	writeFile(t, dir, "routes.csv", "route_id\n")
	writeFile(t, dir, "vehicle_fleet.csv", "vehicle_id\n")
	writeFile(t, dir, "cost_breakdown.csv", "order_id,cost_category,amount\n")

	src := NewDirSource(dir, zap.NewNop())
	ds, warns, err := src.Load(context.Background())
	require.NoError(t, err)

	require.Len(t, ds.Orders, 1)
	assert.False(t, ds.Orders[0].PlacedAt.Valid)
	assert.False(t, ds.Orders[0].Value.Valid)

	fields := make(map[string]bool)
	for _, w := range warns {
		fields[w.Field] = true
	}
	assert.True(t, fields["order_date"])
	assert.True(t, fields["order_value"])
}

func TestDirSourceMissingTableLoadsEmptyWithWarning(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "orders.csv", "order_id,status\nORD1,Pending\n")
	writeFile(t, dir, "delivery_performance.csv", "order_id\n")
	writeFile(t, dir, "vehicle_fleet.csv", "vehicle_id\n")
	writeFile(t, dir, "cost_breakdown.csv", "order_id,cost_category,amount\n")
	// routes.csv intentionally absent.

	src := NewDirSource(dir, zap.NewNop())
	ds, warns, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ds.Routes)

	found := false
	for _, w := range warns {
		if w.Entity == EntityRoutes {
			found = true
		}
	}
	assert.True(t, found, "expected a warning for the missing routes table")
}

func TestDirSourceMissingOrdersIsFatal(t *testing.T) {
	src := NewDirSource(t.TempDir(), zap.NewNop())
	_, _, err := src.Load(context.Background())
	assert.Error(t, err)
}

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, "order_id", normalizeHeader(" Order ID "))
	assert.Equal(t, "distance_km", normalizeHeader("Distance KM"))
}
