package http

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"cvrisk/risk"
)

func TestNiceCeil(t *testing.T) {
	assert.Equal(t, 10.0, niceCeil(0))
	assert.Equal(t, 10.0, niceCeil(6.6))
	assert.Equal(t, 20.0, niceCeil(11.5))
	assert.Equal(t, 25.0, niceCeil(21))
	assert.Equal(t, 50.0, niceCeil(30))
	assert.Equal(t, 1.0, niceCeil(0.9))
}

func TestBarChartScales(t *testing.T) {
	chart := newBarChart(risk.ComparisonBars(10))
	if assert.Len(t, chart.Bars, 3) {
		assert.Equal(t, "10.0%", chart.Bars[0].Value)
		assert.Equal(t, "#dc3545", chart.Bars[0].Color)
		assert.Greater(t, chart.Bars[0].Height, chart.Bars[1].Height)
		assert.Greater(t, chart.Bars[1].Height, chart.Bars[2].Height)
		for _, b := range chart.Bars {
			assert.InDelta(t, chart.Bottom, b.Y+b.Height, 0.02)
		}
	}
}

func TestCurveChartMarker(t *testing.T) {
	points := []risk.CurvePoint{{Years: 0, EventProbability: 0}, {Years: 5, EventProbability: 10}, {Years: 10, EventProbability: 20}}
	chart := newCurveChart(points, 5, 10, "5y: 10.0%")

	assert.Equal(t, 3, len(strings.Fields(chart.Line)))
	assert.True(t, chart.ShowMarker)
	assert.Equal(t, "5y: 10.0%", chart.MarkerLabel)
	assert.InDelta(t, chartLeft+plotWidth/2, chart.MarkerX, 0.01)
	assert.Less(t, chart.MarkerY, chart.Bottom)
}
