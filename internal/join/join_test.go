package join

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nexgen-logistics/cost-intelligence/internal/config"
	"github.com/nexgen-logistics/cost-intelligence/internal/models"
)

func newJoiner() *Joiner {
	return New(config.Default().Analytics, zap.NewNop())
}

func TestJoinIsTotalOnOrders(t *testing.T) {
	ds := models.Dataset{
		Orders: []models.Order{
			{ID: "ORD1", Origin: "WH_East", Destination: "Chicago", Status: models.OrderDelivered},
			{ID: "ORD2", Origin: "WH_West", Destination: "Nowhere", Status: models.OrderPending},
			{ID: "ORD3", Origin: "WH_East", Destination: "Chicago", Status: models.OrderDelivered},
		},
		Deliveries: []models.DeliveryRecord{
			{OrderID: "ORD1", Status: models.StatusOnTime},
		},
		Routes: []models.Route{
			{ID: "RT1", Origin: "WH_East", Destination: "Chicago", Carrier: "FastShip", DistanceKm: models.Some(950.0)},
		},
	}

	unified, _ := newJoiner().Join(ds)

	// Every order appears exactly once regardless of match success.
	require.Len(t, unified, len(ds.Orders))
	seen := make(map[string]int)
	for _, row := range unified {
		seen[row.ID]++
	}
	for id, count := range seen {
		assert.Equal(t, 1, count, "order %s duplicated", id)
	}

	// Unmatched foreign entities are null, not dropped.
	assert.Nil(t, unified[1].Delivery)
	assert.Nil(t, unified[1].Route)
	assert.False(t, unified[1].TotalCost.Valid)
}

func TestJoinIsIdempotent(t *testing.T) {
	ds := models.Dataset{
		Orders: []models.Order{
			{ID: "ORD1", Origin: "WH_East", Destination: "Chicago", Status: models.OrderDelivered},
		},
		Routes: []models.Route{
			{ID: "RT1", Origin: "WH_East", Destination: "Chicago", DistanceKm: models.Some(500.0)},
		},
	}

	j := newJoiner()
	first, _ := j.Join(ds)
	second, _ := j.Join(ds)
	require.Len(t, second, len(first))
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Equal(t, first[0].Route.ID, second[0].Route.ID)
}

func TestJoinPrefersCarrierMatchingRoute(t *testing.T) {
	ds := models.Dataset{
		Orders: []models.Order{
			{ID: "ORD1", Origin: "WH_East", Destination: "Chicago", Carrier: models.Some("SlowHaul"), Status: models.OrderDelivered},
		},
		Routes: []models.Route{
			{ID: "RT1", Origin: "WH_East", Destination: "Chicago", Carrier: "FastShip", DistanceKm: models.Some(500.0)},
			{ID: "RT2", Origin: "WH_East", Destination: "Chicago", Carrier: "SlowHaul", DistanceKm: models.Some(900.0)},
		},
	}

	unified, _ := newJoiner().Join(ds)
	require.NotNil(t, unified[0].Route)
	assert.Equal(t, "RT2", unified[0].Route.ID, "carrier match beats shorter distance")
}

func TestJoinFallsBackToShortestRoute(t *testing.T) {
	ds := models.Dataset{
		Orders: []models.Order{
			{ID: "ORD1", Origin: "WH_East", Destination: "Chicago", Carrier: models.Some("NoSuchCarrier"), Status: models.OrderDelivered},
		},
		Routes: []models.Route{
			{ID: "RT1", Origin: "WH_East", Destination: "Chicago", Carrier: "FastShip", DistanceKm: models.Some(900.0)},
			{ID: "RT2", Origin: "WH_East", Destination: "Chicago", Carrier: "SlowHaul", DistanceKm: models.Some(500.0)},
		},
	}

	unified, _ := newJoiner().Join(ds)
	require.NotNil(t, unified[0].Route)
	assert.Equal(t, "RT2", unified[0].Route.ID)
}

func TestJoinAggregatesCostItems(t *testing.T) {
	ds := models.Dataset{
		Orders: []models.Order{
			{ID: "ORD1", Status: models.OrderDelivered},
		},
		CostItems: []models.CostItem{
			{OrderID: "ORD1", Category: models.CostFuel, Amount: models.Some(120.0)},
			{OrderID: "ORD1", Category: models.CostFuel, Amount: models.Some(30.0)},
			{OrderID: "ORD1", Category: models.CostLabor, Amount: models.Some(95.0)},
		},
	}

	unified, _ := newJoiner().Join(ds)
	require.True(t, unified[0].TotalCost.Valid)
	assert.InDelta(t, 245.0, unified[0].TotalCost.Value, 1e-9)
	assert.InDelta(t, 150.0, unified[0].CostByCategory[models.CostFuel], 1e-9)
}

func TestJoinFallsBackToDeliveryCost(t *testing.T) {
	ds := models.Dataset{
		Orders: []models.Order{
			{ID: "ORD1", Status: models.OrderDelivered},
		},
		Deliveries: []models.DeliveryRecord{
			{OrderID: "ORD1", Status: models.StatusOnTime, Cost: models.Some(310.5)},
		},
	}

	unified, _ := newJoiner().Join(ds)
	require.True(t, unified[0].TotalCost.Valid)
	assert.InDelta(t, 310.5, unified[0].TotalCost.Value, 1e-9)
}

func TestJoinWarnsOnCostMismatch(t *testing.T) {
	ds := models.Dataset{
		Orders: []models.Order{
			{ID: "ORD1", Status: models.OrderDelivered},
		},
		Deliveries: []models.DeliveryRecord{
			{OrderID: "ORD1", Status: models.StatusOnTime, Cost: models.Some(100.0)},
		},
		CostItems: []models.CostItem{
			{OrderID: "ORD1", Category: models.CostFuel, Amount: models.Some(200.0)},
		},
	}

	unified, warns := newJoiner().Join(ds)

	// Itemized total wins, with a reconciliation warning.
	assert.InDelta(t, 200.0, unified[0].TotalCost.Value, 1e-9)
	found := false
	for _, w := range warns {
		if w.Entity == "cost_breakdown" && w.Key == "ORD1" {
			found = true
		}
	}
	assert.True(t, found, "expected a cost reconciliation warning")
}

func TestJoinVehicleCO2FallsBackToFleetAverage(t *testing.T) {
	ds := models.Dataset{
		Orders: []models.Order{
			{ID: "ORD1", VehicleID: models.Some("VEH1"), Status: models.OrderDelivered},
			{ID: "ORD2", Status: models.OrderDelivered},
		},
		Vehicles: []models.Vehicle{
			{ID: "VEH1", CO2PerKm: models.Some(3.0)},
			{ID: "VEH2", CO2PerKm: models.Some(1.0)},
		},
	}

	unified, _ := newJoiner().Join(ds)

	assert.InDelta(t, 3.0, unified[0].CO2PerKm.Value, 1e-9)
	// No assigned vehicle: fleet average.
	assert.InDelta(t, 2.0, unified[1].CO2PerKm.Value, 1e-9)
}

func TestJoinAttachesFeedbackOpportunistically(t *testing.T) {
	ds := models.Dataset{
		Orders: []models.Order{
			{ID: "ORD1", Status: models.OrderDelivered},
			{ID: "ORD2", Status: models.OrderDelivered},
		},
		Deliveries: []models.DeliveryRecord{
			{OrderID: "ORD1", Status: models.StatusOnTime},
			{OrderID: "ORD2", Status: models.StatusOnTime},
		},
		Feedback: []models.FeedbackRecord{
			{ID: "FB1", OrderID: "ORD1", Rating: models.Some(4.0)},
			{ID: "FB2", OrderID: "ORD1", Rating: models.Some(1.0)},
		},
	}

	unified, warns := newJoiner().Join(ds)

	require.NotNil(t, unified[0].Feedback)
	assert.Equal(t, "FB1", unified[0].Feedback.ID, "first feedback record per order wins")

	// Absent feedback stays nil with no warning.
	assert.Nil(t, unified[1].Feedback)
	for _, w := range warns {
		assert.NotEqual(t, "feedback", w.Field)
	}
}

func TestJoinWarnsOnDeliveredOrderWithoutRecord(t *testing.T) {
	ds := models.Dataset{
		Orders: []models.Order{
			{ID: "ORD1", Status: models.OrderDelivered},
		},
	}

	_, warns := newJoiner().Join(ds)
	require.NotEmpty(t, warns)
	assert.Equal(t, "delivery", warns[0].Field)
}
