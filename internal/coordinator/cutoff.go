package coordinator

import (
	"sort"
	"strconv"

	"github.com/dreamware/exelixi/internal/uow"
)

// FitnessCutoff computes §4.5.1: sort histogram bins in descending order,
// accumulate counts, and return the first (highest) bin at which the
// cumulative fraction of total candidates meets or exceeds selectionRate.
// This is the lower bound of the top selectionRate quantile; ties within a
// bin are all admitted.
//
// Equivalently (the testable property in §8 item 8): the returned bin is
// the lowest bin such that the count of candidates in strictly-higher
// bins is < selectionRate*total, and the count in bins >= the returned bin
// is >= selectionRate*total.
func FitnessCutoff(hist uow.Histogram, selectionRate float64) float64 {
	if len(hist) == 0 {
		return 0
	}
	type bin struct {
		value float64
		count int
	}
	bins := make([]bin, 0, len(hist))
	total := 0
	for k, c := range hist {
		v, err := strconv.ParseFloat(k, 64)
		if err != nil {
			continue
		}
		bins = append(bins, bin{value: v, count: c})
		total += c
	}
	sort.Slice(bins, func(i, j int) bool { return bins[i].value > bins[j].value })

	if total == 0 {
		return 0
	}
	running := 0
	for _, b := range bins {
		running += b.count
		frac := float64(running) / float64(total)
		if frac >= selectionRate {
			return b.value
		}
	}
	return bins[len(bins)-1].value
}

// MergeHistograms returns a new histogram holding the key-wise sum of a
// and b, together with totalA + totalB. Neither input is modified.
func MergeHistograms(a uow.Histogram, totalA int, b uow.Histogram, totalB int) (uow.Histogram, int) {
	out := uow.Histogram{}
	for k, v := range a {
		out[k] += v
	}
	for k, v := range b {
		out[k] += v
	}
	return out, totalA + totalB
}
