// Package planner implements the Manifest Tree Manager (spec C6): which
// manifest a new data file should join, and when a manifest has grown
// large enough that it should be split via recursive bisection.
package planner

import "math"

// MinDataFilesPerManifest is the floor on how many files a manifest should
// hold before splitting is considered, matching the original engine's
// MIN_DATAFILES_PER_MANIFEST constant.
const MinDataFilesPerManifest = 4

// ComputeNSplits returns how many times the manifest selected to receive
// newFiles should be bisected. The two counts feeding the formula are
// deliberately different: limit grows with the square root of the file
// count across the *whole table's* manifest list (existingAcrossTable),
// so the threshold reflects overall table size, while the ratio that
// decides whether the selected manifest crossed that threshold is taken
// from that one manifest's own file count (selectedManifestFiles) plus
// the new files it's about to receive.
func ComputeNSplits(existingAcrossTable, selectedManifestFiles, newFiles int, minDataFilesPerManifest int) int {
	if minDataFilesPerManifest <= 0 {
		minDataFilesPerManifest = MinDataFilesPerManifest
	}
	limit := minDataFilesPerManifest + int(math.Floor(math.Sqrt(float64(existingAcrossTable+newFiles))))
	if limit <= 0 {
		return 0
	}
	t := selectedManifestFiles + newFiles
	ratio := t / limit // integer division, matching the original's u32/u32
	if ratio == 0 {
		return 0
	}
	return ilog2(ratio) + 1
}

func ilog2(n int) int {
	if n <= 0 {
		return 0
	}
	l := 0
	for n > 1 {
		n >>= 1
		l++
	}
	return l
}
