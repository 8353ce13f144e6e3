package risk

import (
	"fmt"

	"cvrisk/ml"
)

// Reference 5-year event rates shown next to the patient's risk.
const (
	AverageSLERisk        = 5.7
	GeneralPopulationRisk = 2.7
)

const (
	DaysPerYear  = 365.25
	HorizonYears = 5
)

type Bar struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Color string  `json:"color"`
}

func ComparisonBars(riskPercentage float64) []Bar {
	return []Bar{
		{Label: "Your Patient", Value: riskPercentage, Color: "#dc3545"},
		{Label: "Average SLE", Value: AverageSLERisk, Color: "#ffc107"},
		{Label: "General Population", Value: GeneralPopulationRisk, Color: "#28a745"},
	}
}

type CurvePoint struct {
	Years            float64 `json:"years"`
	EventProbability float64 `json:"event_probability"`
}

// EventCurve converts a survival function into cumulative event
// probability (percent) over years.
func EventCurve(sf ml.SurvivalFunction) []CurvePoint {
	events := sf.EventProbabilities()
	points := make([]CurvePoint, len(events))
	for i, p := range events {
		points[i] = CurvePoint{Years: sf.Times[i] / DaysPerYear, EventProbability: p}
	}
	return points
}

func HorizonLabel(riskPercentage float64) string {
	return fmt.Sprintf("%dy: %.1f%%", HorizonYears, riskPercentage)
}

// Charts bundles the series rendered on the result page.
type Charts struct {
	Comparison   []Bar        `json:"comparison"`
	Curve        []CurvePoint `json:"curve"`
	HorizonYears float64      `json:"horizon_years"`
	HorizonLabel string       `json:"horizon_label"`
}

func (a *Assessment) Charts() Charts {
	return Charts{
		Comparison:   ComparisonBars(a.RiskPercentage),
		Curve:        EventCurve(a.Survival),
		HorizonYears: a.HorizonDays / DaysPerYear,
		HorizonLabel: HorizonLabel(a.RiskPercentage),
	}
}
