package http

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tpcpower/pkg/contracts/domain"
)

func point(ts string, capacity, used domain.NullFloat) domain.AggregatedPoint {
	return domain.AggregatedPoint{Time: at(ts), CapacitySum: capacity, UsedSum: used}
}

func TestBuildChart_Empty(t *testing.T) {
	c := buildChart(nil, 400, 200)

	assert.Equal(t, 0, c.Points)
	assert.Empty(t, c.CapacityPath)
	assert.Empty(t, c.XTicks)
	assert.Equal(t, 400-chartPadRight, c.Right)
	assert.Equal(t, 200-chartPadBottom, c.Bottom)
}

func TestBuildChart_Scaling(t *testing.T) {
	series := domain.AggregatedSeries{
		point("2024-01-01 00:00:00", domain.Float(0), domain.Float(0)),
		point("2024-01-01 02:00:00", domain.Float(100), domain.Float(50)),
	}
	c := buildChart(series, 400, 200)

	// x spans Left..Right, y spans Bottom (0) .. Top (100)
	assert.Equal(t, "M64.0 160.0 L64.0 160.0 L384.0 16.0", c.CapacityPath)
	assert.Equal(t, "M64.0 160.0 L64.0 160.0 L384.0 88.0", c.UsedPath)

	require.Len(t, c.XTicks, 3)
	assert.Equal(t, "2024-01-01 01:00", c.XTicks[1].Label)
	require.Len(t, c.YTicks, chartYTicks)
	assert.Equal(t, "100.00", c.YTicks[chartYTicks-1].Label)
}

func TestLinePath_BreaksAtGaps(t *testing.T) {
	series := domain.AggregatedSeries{
		point("2024-01-01 00:00:00", domain.Float(1), domain.Missing()),
		point("2024-01-01 01:00:00", domain.Missing(), domain.Missing()),
		point("2024-01-01 02:00:00", domain.Float(2), domain.Missing()),
		point("2024-01-01 03:00:00", domain.Float(3), domain.Missing()),
	}
	x := func(t time.Time) float64 { return float64(t.Hour()) }
	y := func(v float64) float64 { return v }

	capacity := linePath(series, x, y, func(p domain.AggregatedPoint) domain.NullFloat { return p.CapacitySum })
	assert.Equal(t, "M0.0 1.0 L0.0 1.0 M2.0 2.0 L2.0 2.0 L3.0 3.0", capacity)

	used := linePath(series, x, y, func(p domain.AggregatedPoint) domain.NullFloat { return p.UsedSum })
	assert.Empty(t, used)
}

func TestBuildChart_SinglePoint(t *testing.T) {
	c := buildChart(domain.AggregatedSeries{point("2024-01-01 00:00:00", domain.Float(5), domain.Float(5))}, 400, 200)

	require.Len(t, c.XTicks, 1)
	assert.Equal(t, float64(64+384)/2, c.XTicks[0].Pos)
}
