package planner

import (
	"strconv"
	"testing"

	"github.com/TFMV/icecore/pkg/iceberg/manifest"
	"github.com/TFMV/icecore/pkg/iceberg/types"
)

func entryWithPartition(path string, v int64) manifest.ManifestEntry {
	return manifest.ManifestEntry{
		Status: manifest.StatusAdded,
		DataFile: manifest.DataFile{
			Path:      path,
			Partition: types.Tuple{Values: []types.Value{types.Int64(v)}},
		},
	}
}

func TestSplitDataFiles_ZeroSplitsIsOneGroup(t *testing.T) {
	entries := []manifest.ManifestEntry{entryWithPartition("a", 1), entryWithPartition("b", 2)}
	groups := SplitDataFiles(entries, 0)
	if len(groups) != 1 || len(groups[0]) != 2 {
		t.Fatalf("expected a single group of 2, got %v", groups)
	}
}

func TestSplitDataFiles_PreservesAllEntries(t *testing.T) {
	var entries []manifest.ManifestEntry
	for i := int64(0); i < 16; i++ {
		entries = append(entries, entryWithPartition("f", i))
	}
	groups := SplitDataFiles(entries, 2)

	total := 0
	seen := make(map[string]bool)
	for _, g := range groups {
		total += len(g)
		for _, e := range g {
			seen[e.DataFile.Path+strconv.FormatInt(e.DataFile.Partition.Values[0].AsInt64(), 10)] = true
		}
	}
	if total != len(entries) {
		t.Fatalf("split lost entries: got %d want %d", total, len(entries))
	}
	if len(groups) > 4 {
		t.Fatalf("nSplits=2 should yield at most 4 groups, got %d", len(groups))
	}
}
