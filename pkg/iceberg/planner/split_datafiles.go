package planner

import (
	"sort"

	"github.com/TFMV/icecore/pkg/iceberg/manifest"
	"github.com/TFMV/icecore/pkg/iceberg/types"
)

// SplitDataFiles partitions entries into 2^nSplits groups by recursively
// bisecting on the widest partition axis at each level (the axis with the
// largest lo/hi spread among entries still in that group), splitting at
// the median and breaking ties in the comparison by sending the tied
// entries left. When more than one axis is tied for widest, selection
// continues round-robin from the axis used one level up. nSplits of 0
// returns entries as a single group.
func SplitDataFiles(entries []manifest.ManifestEntry, nSplits int) [][]manifest.ManifestEntry {
	if nSplits <= 0 || len(entries) <= 1 {
		return [][]manifest.ManifestEntry{entries}
	}
	return bisect(entries, nSplits, 0)
}

func bisect(entries []manifest.ManifestEntry, depth int, startAxis int) [][]manifest.ManifestEntry {
	if depth <= 0 || len(entries) <= 1 {
		return [][]manifest.ManifestEntry{entries}
	}

	nAxes := partitionArity(entries)
	if nAxes == 0 {
		// Unpartitioned: fall back to splitting by insertion order.
		mid := len(entries) / 2
		left := bisect(entries[:mid], depth-1, startAxis)
		right := bisect(entries[mid:], depth-1, startAxis)
		return append(left, right...)
	}

	a := widestAxis(entries, nAxes, startAxis%nAxes)
	sorted := make([]manifest.ManifestEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return axisValue(sorted[i], a).Compare(axisValue(sorted[j], a)) < 0
	})

	mid := len(sorted) / 2
	// Ties at the boundary go left: extend the left half over any entries
	// equal to the median's value.
	for mid < len(sorted) && axisValue(sorted[mid-1], a).Compare(axisValue(sorted[mid], a)) == 0 {
		mid++
	}
	if mid == 0 || mid == len(sorted) {
		mid = len(sorted) / 2
	}

	left := bisect(sorted[:mid], depth-1, a+1)
	right := bisect(sorted[mid:], depth-1, a+1)
	return append(left, right...)
}

// widestAxis returns the axis (of nAxes) with the largest lo/hi spread
// among entries. Ties favor the axis closest to preferFrom in round-robin
// order, so repeated widest-axis ties (e.g. every entry identical on every
// axis but one) still cycle predictably instead of always picking axis 0.
func widestAxis(entries []manifest.ManifestEntry, nAxes int, preferFrom int) int {
	best := preferFrom % nAxes
	bestWidth := -1.0
	for i := 0; i < nAxes; i++ {
		axis := (preferFrom + i) % nAxes
		lo := axisValue(entries[0], axis)
		hi := lo
		for _, e := range entries[1:] {
			v := axisValue(e, axis)
			if v.Compare(lo) < 0 {
				lo = v
			}
			if v.Compare(hi) > 0 {
				hi = v
			}
		}
		width := axisDistance(lo, hi)
		if width > bestWidth {
			bestWidth = width
			best = axis
		}
	}
	return best
}

func partitionArity(entries []manifest.ManifestEntry) int {
	for _, e := range entries {
		if n := len(e.DataFile.Partition.Values); n > 0 {
			return n
		}
	}
	return 0
}

func axisValue(e manifest.ManifestEntry, axis int) types.Value {
	vals := e.DataFile.Partition.Values
	if axis < len(vals) {
		return vals[axis]
	}
	return types.Int64(0)
}
