package coordinator

import (
	"strconv"

	"golang.org/x/exp/slices"

	"github.com/dreamware/exelixi/internal/uow"
)

// sortedBins decodes a histogram into ascending-by-value (value, count)
// pairs, dropping any key that doesn't parse as a float (malformed
// responses are handled upstream; this is defensive only).
func sortedBins(hist uow.Histogram) ([]float64, []int) {
	type bin struct {
		value float64
		count int
	}
	bins := make([]bin, 0, len(hist))
	for k, c := range hist {
		v, err := strconv.ParseFloat(k, 64)
		if err != nil {
			continue
		}
		bins = append(bins, bin{value: v, count: c})
	}
	slices.SortFunc(bins, func(a, b bin) int {
		switch {
		case a.value < b.value:
			return -1
		case a.value > b.value:
			return 1
		default:
			return 0
		}
	})
	values := make([]float64, len(bins))
	counts := make([]int, len(bins))
	for i, b := range bins {
		values[i] = b.value
		counts[i] = b.count
	}
	return values, counts
}

// meanSquaredErrorReport mirrors ga.UoW.ShouldTerminate's MSE computation,
// exposed here so the orchestrator can log it every generation regardless
// of which UoW is configured (report.go has no dependency on package ga).
func meanSquaredErrorReport(hist uow.Histogram) (mse float64, n int) {
	values, counts := sortedBins(hist)
	var sumSq float64
	for i, v := range values {
		diff := 1.0 - v
		sumSq += diff * diff * float64(counts[i])
		n += counts[i]
	}
	if n == 0 {
		return 0, 0
	}
	return sumSq / float64(n), n
}

// histMax returns the highest bin value present in the histogram.
func histMax(hist uow.Histogram) float64 {
	values, _ := sortedBins(hist)
	if len(values) == 0 {
		return 0
	}
	return values[len(values)-1]
}

// histMean returns the count-weighted mean fitness over the histogram.
func histMean(hist uow.Histogram) float64 {
	values, counts := sortedBins(hist)
	var sum float64
	var n int
	for i, v := range values {
		sum += v * float64(counts[i])
		n += counts[i]
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// histMedian returns the median fitness over the histogram via linear
// interpolation between bin centers, ported from uow.py's test_termination
// (which computes the median over the expanded per-candidate fitness list;
// interpolating over sorted bins is equivalent since every candidate in a
// bin shares its value).
func histMedian(hist uow.Histogram, total int) float64 {
	if total == 0 {
		return 0
	}
	values, counts := sortedBins(hist)
	mid := float64(total-1) / 2.0
	lo := int(mid)
	frac := mid - float64(lo)

	at := func(idx int) float64 {
		running := 0
		for i, c := range counts {
			running += c
			if idx < running {
				return values[i]
			}
		}
		if len(values) == 0 {
			return 0
		}
		return values[len(values)-1]
	}

	v0 := at(lo)
	if frac == 0 {
		return v0
	}
	v1 := at(lo + 1)
	return v0 + (v1-v0)*frac
}
