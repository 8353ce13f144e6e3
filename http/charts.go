package http

import (
	"fmt"
	"math"
	"strings"

	"cvrisk/risk"
)

// SVG geometry shared by both charts.
const (
	chartWidth   = 440.0
	chartHeight  = 280.0
	chartLeft    = 48.0
	chartRight   = 16.0
	chartTop     = 24.0
	chartBottom  = 44.0
	plotWidth    = chartWidth - chartLeft - chartRight
	plotHeight   = chartHeight - chartTop - chartBottom
	barGapFactor = 0.35
)

type tick struct {
	Pos   float64
	Label string
}

type barView struct {
	Label   string
	Value   string
	Color   string
	X, Y    float64
	Width   float64
	Height  float64
	CenterX float64
}

type barChart struct {
	Width, Height float64
	Left, Bottom  float64
	Right         float64
	Bars          []barView
	YTicks        []tick
}

type curveChart struct {
	Width, Height  float64
	Left, Bottom   float64
	Top, Right     float64
	Line           string
	Area           string
	XTicks, YTicks []tick
	MarkerX        float64
	MarkerY        float64
	MarkerLabel    string
	ShowMarker     bool
}

func newBarChart(bars []risk.Bar) barChart {
	top := 0.0
	for _, b := range bars {
		top = math.Max(top, b.Value)
	}
	top = niceCeil(top * 1.15)

	slot := plotWidth / float64(len(bars))
	width := slot * (1 - barGapFactor)
	chart := barChart{
		Width: chartWidth, Height: chartHeight,
		Left: chartLeft, Right: chartWidth - chartRight, Bottom: chartHeight - chartBottom,
		YTicks: yTicks(top),
	}
	for i, b := range bars {
		h := math.Max(b.Value, 0) / top * plotHeight
		x := chartLeft + float64(i)*slot + (slot-width)/2
		chart.Bars = append(chart.Bars, barView{
			Label:   b.Label,
			Value:   fmt.Sprintf("%.1f%%", b.Value),
			Color:   b.Color,
			X:       round2(x),
			Y:       round2(chart.Bottom - h),
			Width:   round2(width),
			Height:  round2(h),
			CenterX: round2(x + width/2),
		})
	}
	return chart
}

func newCurveChart(points []risk.CurvePoint, horizonYears, riskPct float64, label string) curveChart {
	maxX, maxY := horizonYears, riskPct
	for _, p := range points {
		maxX = math.Max(maxX, p.Years)
		maxY = math.Max(maxY, p.EventProbability)
	}
	maxX = math.Ceil(maxX)
	maxY = niceCeil(maxY * 1.15)

	chart := curveChart{
		Width: chartWidth, Height: chartHeight,
		Left: chartLeft, Right: chartWidth - chartRight,
		Top: chartTop, Bottom: chartHeight - chartBottom,
		YTicks: yTicks(maxY),
	}
	sx := func(x float64) float64 { return round2(chartLeft + x/maxX*plotWidth) }
	sy := func(y float64) float64 { return round2(chart.Bottom - y/maxY*plotHeight) }

	step := math.Max(1, math.Ceil(maxX/6))
	for x := 0.0; x <= maxX; x += step {
		chart.XTicks = append(chart.XTicks, tick{Pos: sx(x), Label: fmt.Sprintf("%g", x)})
	}

	var line strings.Builder
	for i, p := range points {
		if i > 0 {
			line.WriteByte(' ')
		}
		fmt.Fprintf(&line, "%g,%g", sx(p.Years), sy(p.EventProbability))
	}
	chart.Line = line.String()
	if len(points) > 0 {
		chart.Area = fmt.Sprintf("%g,%g %s %g,%g",
			sx(points[0].Years), chart.Bottom, chart.Line, sx(points[len(points)-1].Years), chart.Bottom)
	}

	chart.ShowMarker = true
	chart.MarkerX = sx(horizonYears)
	chart.MarkerY = sy(riskPct)
	chart.MarkerLabel = label
	return chart
}

// yTicks returns five evenly spaced ticks from 0 to top.
func yTicks(top float64) []tick {
	ticks := make([]tick, 0, 5)
	for i := 0; i <= 4; i++ {
		v := top * float64(i) / 4
		ticks = append(ticks, tick{
			Pos:   round2(chartHeight - chartBottom - v/top*plotHeight),
			Label: fmt.Sprintf("%g%%", math.Round(v*10)/10),
		})
	}
	return ticks
}

// niceCeil rounds v up to 1, 2, 2.5 or 5 times a power of ten.
func niceCeil(v float64) float64 {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 10
	}
	exp := math.Pow(10, math.Floor(math.Log10(v)))
	for _, m := range []float64{1, 2, 2.5, 5, 10} {
		if v <= m*exp {
			return m * exp
		}
	}
	return 10 * exp
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
