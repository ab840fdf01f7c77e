package recommend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexgen-logistics/cost-intelligence/internal/config"
	"github.com/nexgen-logistics/cost-intelligence/internal/models"
)

func laneOrder(id, carrier string, distance, costPerKm float64) (models.UnifiedOrder, models.OrderMetrics) {
	row := models.UnifiedOrder{
		Order: models.Order{
			ID:          id,
			Carrier:     models.Some(carrier),
			Origin:      "WH_East",
			Destination: "Chicago",
			Status:      models.OrderDelivered,
		},
		Delivery:  &models.DeliveryRecord{OrderID: id, Status: models.StatusOnTime},
		Route:     &models.Route{ID: "RT", DistanceKm: models.Some(distance)},
		TotalCost: models.Some(distance * costPerKm),
	}
	m := models.OrderMetrics{
		OrderID:         id,
		Carrier:         models.Some(carrier),
		Segment:         models.Segment{Origin: "WH_East", Destination: "Chicago"},
		CostPerDistance: models.Some(costPerKm),
	}
	return row, m
}

func scorePair(low, high float64) []models.CarrierScore {
	return []models.CarrierScore{
		{Carrier: "Cheap", ValueScore: high, Rank: 1},
		{Carrier: "Pricey", ValueScore: low, Rank: 2},
	}
}

func TestGenerateEstimatedSavings(t *testing.T) {
	// Pricey runs 1000 km at 10.00/km, Cheap runs 800 km at 6.00/km.
	// Shifting 15% of Pricey's volume saves 0.15 * 1000 * (10 - 6) = 600.
	priceyRow, priceyM := laneOrder("ORD1", "Pricey", 1000, 10.0)
	cheapRow, cheapM := laneOrder("ORD2", "Cheap", 800, 6.0)

	recs := New(config.Default().Analytics).Generate(
		scorePair(60, 80),
		[]models.UnifiedOrder{priceyRow, cheapRow},
		[]models.OrderMetrics{priceyM, cheapM},
	)

	require.Len(t, recs, 1)
	rec := recs[0]
	assert.Equal(t, "Pricey", rec.FromCarrier)
	assert.Equal(t, "Cheap", rec.ToCarrier)
	assert.InDelta(t, 600.0, rec.AnnualSavings, 1e-9)
	assert.InDelta(t, 150.0, rec.ShiftedVolume, 1e-9)
	assert.InDelta(t, 20.0, rec.ScoreGap, 1e-9)
	assert.Equal(t, models.RiskLow, rec.Risk)
	assert.Equal(t, models.HorizonImmediate, rec.Horizon)
}

func TestGenerateSkipsSmallScoreGaps(t *testing.T) {
	priceyRow, priceyM := laneOrder("ORD1", "Pricey", 4000, 4.0)
	cheapRow, cheapM := laneOrder("ORD2", "Cheap", 20000, 3.0)

	// Gap of exactly the threshold does not qualify.
	recs := New(config.Default().Analytics).Generate(
		scorePair(70, 80),
		[]models.UnifiedOrder{priceyRow, cheapRow},
		[]models.OrderMetrics{priceyM, cheapM},
	)
	assert.Empty(t, recs)
}

func TestGenerateExcludesNonPositiveSavings(t *testing.T) {
	// The higher-scoring carrier is also the more expensive one, so the
	// shift would cost money.
	priceyRow, priceyM := laneOrder("ORD1", "Pricey", 4000, 3.0)
	cheapRow, cheapM := laneOrder("ORD2", "Cheap", 20000, 4.0)

	recs := New(config.Default().Analytics).Generate(
		scorePair(60, 80),
		[]models.UnifiedOrder{priceyRow, cheapRow},
		[]models.OrderMetrics{priceyM, cheapM},
	)
	assert.Empty(t, recs)
}

func TestGenerateRiskTiers(t *testing.T) {
	tests := []struct {
		name        string
		receiverVol float64
		wantRisk    string
		wantHorizon string
	}{
		{"ample capacity", 20000, models.RiskLow, models.HorizonImmediate},
		{"moderate squeeze", 2000, models.RiskMedium, models.HorizonShortTerm},
		{"heavy squeeze", 1000, models.RiskHigh, models.HorizonLongTerm},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			priceyRow, priceyM := laneOrder("ORD1", "Pricey", 4000, 4.0)
			cheapRow, cheapM := laneOrder("ORD2", "Cheap", tt.receiverVol, 3.0)

			recs := New(config.Default().Analytics).Generate(
				scorePair(60, 80),
				[]models.UnifiedOrder{priceyRow, cheapRow},
				[]models.OrderMetrics{priceyM, cheapM},
			)
			require.Len(t, recs, 1)
			assert.Equal(t, tt.wantRisk, recs[0].Risk)
			assert.Equal(t, tt.wantHorizon, recs[0].Horizon)
		})
	}
}

func TestGenerateSortsBySavingsDescending(t *testing.T) {
	// Two lanes with different spreads.
	p1, pm1 := laneOrder("ORD1", "Pricey", 4000, 4.0)
	c1, cm1 := laneOrder("ORD2", "Cheap", 20000, 3.0)
	p2, pm2 := laneOrder("ORD3", "Pricey", 4000, 6.0)
	c2, cm2 := laneOrder("ORD4", "Cheap", 20000, 3.0)
	p2.Origin, p2.Destination = "WH_West", "Denver"
	pm2.Segment = models.Segment{Origin: "WH_West", Destination: "Denver"}
	c2.Origin, c2.Destination = "WH_West", "Denver"
	cm2.Segment = models.Segment{Origin: "WH_West", Destination: "Denver"}

	recs := New(config.Default().Analytics).Generate(
		scorePair(60, 80),
		[]models.UnifiedOrder{p1, c1, p2, c2},
		[]models.OrderMetrics{pm1, cm1, pm2, cm2},
	)

	require.Len(t, recs, 2)
	assert.Equal(t, "WH_West", recs[0].Segment.Origin)
	assert.Greater(t, recs[0].AnnualSavings, recs[1].AnnualSavings)
}

func TestGenerateIDsAreStableAcrossRuns(t *testing.T) {
	priceyRow, priceyM := laneOrder("ORD1", "Pricey", 4000, 4.0)
	cheapRow, cheapM := laneOrder("ORD2", "Cheap", 20000, 3.0)

	e := New(config.Default().Analytics)
	first := e.Generate(scorePair(60, 80), []models.UnifiedOrder{priceyRow, cheapRow}, []models.OrderMetrics{priceyM, cheapM})
	second := e.Generate(scorePair(60, 80), []models.UnifiedOrder{priceyRow, cheapRow}, []models.OrderMetrics{priceyM, cheapM})

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.NotEmpty(t, first[0].ID)
}

func TestGenerateNeedsAtLeastTwoScoredCarriers(t *testing.T) {
	row, m := laneOrder("ORD1", "Solo", 4000, 4.0)
	recs := New(config.Default().Analytics).Generate(
		[]models.CarrierScore{{Carrier: "Solo", ValueScore: 50}},
		[]models.UnifiedOrder{row},
		[]models.OrderMetrics{m},
	)
	assert.Nil(t, recs)
}
