package planner

import (
	"math"
	"sort"

	"github.com/TFMV/icecore/pkg/iceberg/manifest"
	"github.com/TFMV/icecore/pkg/iceberg/types"
)

// Rectangle is the bounding box over a partition tuple's axes, the same
// shape a manifest-list entry's per-column summary carries. It's used both
// to score manifest selection and to drive the k-d split's widest-axis
// choice.
type Rectangle struct {
	Lo, Hi []types.Value
	Set    []bool
}

func RectangleFromSummaries(summaries []manifest.PartitionFieldSummary) Rectangle {
	r := Rectangle{Lo: make([]types.Value, len(summaries)), Hi: make([]types.Value, len(summaries)), Set: make([]bool, len(summaries))}
	for i, s := range summaries {
		if s.HasBounds {
			r.Lo[i], r.Hi[i], r.Set[i] = s.LowerBound, s.UpperBound, true
		}
	}
	return r
}

func RectangleFromTuple(t types.Tuple) Rectangle {
	r := Rectangle{Lo: make([]types.Value, len(t.Values)), Hi: make([]types.Value, len(t.Values)), Set: make([]bool, len(t.Values))}
	for i, v := range t.Values {
		r.Lo[i], r.Hi[i], r.Set[i] = v, v, true
	}
	return r
}

// Union returns the smallest rectangle covering both r and other, expanding
// per axis. Used to fold a batch of new data files' individual partition
// tuples into one aggregate bounding rectangle before manifest selection.
func (r Rectangle) Union(other Rectangle) Rectangle {
	n := len(r.Lo)
	if len(other.Lo) > n {
		n = len(other.Lo)
	}
	out := Rectangle{Lo: make([]types.Value, n), Hi: make([]types.Value, n), Set: make([]bool, n)}
	for i := 0; i < n; i++ {
		rSet := i < len(r.Set) && r.Set[i]
		oSet := i < len(other.Set) && other.Set[i]
		switch {
		case rSet && oSet:
			lo, hi := r.Lo[i], r.Hi[i]
			if other.Lo[i].Compare(lo) < 0 {
				lo = other.Lo[i]
			}
			if other.Hi[i].Compare(hi) > 0 {
				hi = other.Hi[i]
			}
			out.Lo[i], out.Hi[i], out.Set[i] = lo, hi, true
		case rSet:
			out.Lo[i], out.Hi[i], out.Set[i] = r.Lo[i], r.Hi[i], true
		case oSet:
			out.Lo[i], out.Hi[i], out.Set[i] = other.Lo[i], other.Hi[i], true
		}
	}
	return out
}

// BoundingRectangle folds tuples into their aggregate bounding rectangle. It
// reports false if tuples is empty, mirroring the original engine's
// bounding_partition_values fold over an empty file set, which yields no
// rectangle at all rather than an empty one.
func BoundingRectangle(tuples []types.Tuple) (Rectangle, bool) {
	if len(tuples) == 0 {
		return Rectangle{}, false
	}
	r := RectangleFromTuple(tuples[0])
	for _, t := range tuples[1:] {
		r = r.Union(RectangleFromTuple(t))
	}
	return r, true
}

// Contains reports whether other lies entirely within r on every axis both
// have bounds for.
func (r Rectangle) Contains(other Rectangle) bool {
	for i := range r.Lo {
		if !r.Set[i] || !other.Set[i] {
			continue
		}
		if other.Lo[i].Compare(r.Lo[i]) < 0 || other.Hi[i].Compare(r.Hi[i]) > 0 {
			return false
		}
	}
	return true
}

// ExpansionCost estimates how much r's volume would grow (per-axis range
// sum, not true volume, since Value ranges aren't numeric for every kind)
// to also cover other. Used to pick the manifest needing the least growth
// when no manifest already contains the new file's partition.
func (r Rectangle) ExpansionCost(other Rectangle) float64 {
	cost := 0.0
	for i := range r.Lo {
		if !other.Set[i] {
			continue
		}
		if !r.Set[i] {
			cost += 1
			continue
		}
		if other.Lo[i].Compare(r.Lo[i]) < 0 {
			cost += axisDistance(other.Lo[i], r.Lo[i])
		}
		if other.Hi[i].Compare(r.Hi[i]) > 0 {
			cost += axisDistance(r.Hi[i], other.Hi[i])
		}
	}
	return cost
}

func axisDistance(a, b types.Value) float64 {
	switch a.Kind {
	case types.KindInt32, types.KindInt64, types.KindDate:
		return math.Abs(float64(b.AsInt64() - a.AsInt64()))
	case types.KindFloat32, types.KindFloat64:
		return math.Abs(b.AsFloat64() - a.AsFloat64())
	default:
		return 1
	}
}

// ManifestCandidate pairs a manifest-list entry with its bounding rectangle
// for selection scoring.
type ManifestCandidate struct {
	Manifest manifest.ManifestFile
	Rect     Rectangle
}

// SelectManifest picks the single existing manifest that an entire batch of
// new data files should join, scored against target — the aggregate
// bounding rectangle over every new file in the batch (see
// BoundingRectangle), not any one file's own partition. Unpartitioned
// tables always pick the manifest with the fewest files. Partitioned
// tables prefer a manifest whose rectangle already contains target,
// breaking ties by file count; absent containment, the manifest needing
// the least expansion wins, again breaking ties by file count. As long as
// candidates is non-empty this always selects one manifest to extend — it
// never reports "no good fit."
func SelectManifest(candidates []ManifestCandidate, target Rectangle, unpartitioned bool) (manifest.ManifestFile, bool) {
	if len(candidates) == 0 {
		return manifest.ManifestFile{}, false
	}
	if unpartitioned {
		best := candidates[0]
		for _, c := range candidates[1:] {
			if c.Manifest.TotalFiles() < best.Manifest.TotalFiles() {
				best = c
			}
		}
		return best.Manifest, true
	}

	var containing []ManifestCandidate
	for _, c := range candidates {
		if c.Rect.Contains(target) {
			containing = append(containing, c)
		}
	}
	if len(containing) > 0 {
		sort.Slice(containing, func(i, j int) bool {
			return containing[i].Manifest.TotalFiles() < containing[j].Manifest.TotalFiles()
		})
		return containing[0].Manifest, true
	}

	best := candidates[0]
	bestCost := best.Rect.ExpansionCost(target)
	for _, c := range candidates[1:] {
		cost := c.Rect.ExpansionCost(target)
		if cost < bestCost || (cost == bestCost && c.Manifest.TotalFiles() < best.Manifest.TotalFiles()) {
			best, bestCost = c, cost
		}
	}
	return best.Manifest, true
}
