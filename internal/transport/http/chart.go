package http

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"tpcpower/pkg/contracts/domain"
)

const (
	chartPadLeft   = 64
	chartPadRight  = 16
	chartPadTop    = 16
	chartPadBottom = 40
	chartYTicks    = 5
)

// lineChart is the geometry of the aggregated series chart rendered as SVG
type lineChart struct {
	Width, Height int
	// Plot area
	Left, Top, Right, Bottom int

	CapacityPath string
	UsedPath     string
	XTicks       []chartTick
	YTicks       []chartTick
	Points       int
}

type chartTick struct {
	Pos   float64
	Label string
}

// buildChart scales the series into a width x height box. Missing sums
// break the line instead of being drawn as zero.
func buildChart(series domain.AggregatedSeries, width, height int) *lineChart {
	c := &lineChart{
		Width:  width,
		Height: height,
		Left:   chartPadLeft,
		Top:    chartPadTop,
		Right:  width - chartPadRight,
		Bottom: height - chartPadBottom,
		Points: len(series),
	}
	if len(series) == 0 {
		return c
	}

	t0, t1 := series[0].Time, series[len(series)-1].Time
	yMax := 0.0
	for _, p := range series {
		if p.CapacitySum.Valid {
			yMax = math.Max(yMax, p.CapacitySum.Value)
		}
		if p.UsedSum.Valid {
			yMax = math.Max(yMax, p.UsedSum.Value)
		}
	}
	yMin := 0.0
	for _, p := range series {
		if p.CapacitySum.Valid {
			yMin = math.Min(yMin, p.CapacitySum.Value)
		}
		if p.UsedSum.Valid {
			yMin = math.Min(yMin, p.UsedSum.Value)
		}
	}
	if yMax == yMin {
		yMax = yMin + 1
	}

	x := func(t time.Time) float64 {
		span := t1.Sub(t0)
		if span <= 0 {
			return float64(c.Left+c.Right) / 2
		}
		return float64(c.Left) + float64(c.Right-c.Left)*float64(t.Sub(t0))/float64(span)
	}
	y := func(v float64) float64 {
		return float64(c.Bottom) - float64(c.Bottom-c.Top)*(v-yMin)/(yMax-yMin)
	}

	c.CapacityPath = linePath(series, x, y, func(p domain.AggregatedPoint) domain.NullFloat { return p.CapacitySum })
	c.UsedPath = linePath(series, x, y, func(p domain.AggregatedPoint) domain.NullFloat { return p.UsedSum })

	for i := 0; i < chartYTicks; i++ {
		v := yMin + (yMax-yMin)*float64(i)/float64(chartYTicks-1)
		c.YTicks = append(c.YTicks, chartTick{Pos: y(v), Label: humanize.FormatFloat("#,###.##", v)})
	}

	layout := "2006-01-02 15:04"
	c.XTicks = append(c.XTicks, chartTick{Pos: x(t0), Label: t0.Format(layout)})
	if t1.After(t0) {
		mid := t0.Add(t1.Sub(t0) / 2)
		c.XTicks = append(c.XTicks,
			chartTick{Pos: x(mid), Label: mid.Format(layout)},
			chartTick{Pos: x(t1), Label: t1.Format(layout)})
	}
	return c
}

// linePath renders an SVG path, starting a new segment after each gap.
// A lone point between gaps is drawn as a zero-length segment so round
// line caps show it.
func linePath(series domain.AggregatedSeries, x func(time.Time) float64, y func(float64) float64, value func(domain.AggregatedPoint) domain.NullFloat) string {
	var b strings.Builder
	pen := false
	for _, p := range series {
		v := value(p)
		if !v.Valid {
			pen = false
			continue
		}
		px, py := coord(x(p.Time)), coord(y(v.Value))
		if pen {
			b.WriteString(" L")
		} else {
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteString("M")
			b.WriteString(px + " " + py + " L")
		}
		b.WriteString(px + " " + py)
		pen = true
	}
	return b.String()
}

func coord(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}
