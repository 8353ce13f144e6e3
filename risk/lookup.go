package risk

import (
	"math"
	"sort"
)

// NearestIndex returns the index of the time closest to target by absolute
// difference. times must be sorted ascending. When two times are equally
// close the lower index wins, and within a run of equal times the first
// one is returned. It returns -1 for an empty slice.
func NearestIndex(times []float64, target float64) int {
	if len(times) == 0 {
		return -1
	}
	// First index with times[i] >= target.
	i := sort.SearchFloat64s(times, target)
	if i == 0 {
		return 0
	}
	if i == len(times) {
		return firstOf(times, len(times)-1)
	}
	below := firstOf(times, i-1)
	if math.Abs(times[i]-target) < math.Abs(target-times[i-1]) {
		return i
	}
	return below
}

// firstOf walks back to the first index holding the same value as times[i].
func firstOf(times []float64, i int) int {
	for i > 0 && times[i-1] == times[i] {
		i--
	}
	return i
}
