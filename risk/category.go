package risk

// Category is the risk tier of a 5-year event probability.
type Category string

const (
	Low    Category = "LOW"
	Medium Category = "MEDIUM"
	High   Category = "HIGH"
)

const (
	MediumThreshold = 5.0
	HighThreshold   = 10.0
)

// Classify maps a risk percentage to its tier. Lower bounds are inclusive:
// 5.0 is MEDIUM and 10.0 is HIGH.
func Classify(riskPercentage float64) Category {
	switch {
	case riskPercentage < MediumThreshold:
		return Low
	case riskPercentage < HighThreshold:
		return Medium
	default:
		return High
	}
}
