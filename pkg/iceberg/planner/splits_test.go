package planner

import "testing"

func TestComputeNSplits_BelowLimitIsZero(t *testing.T) {
	if n := ComputeNSplits(0, 0, 3, MinDataFilesPerManifest); n != 0 {
		t.Fatalf("expected 0 splits for a small manifest, got %d", n)
	}
}

func TestComputeNSplits_GrowsWithFileCount(t *testing.T) {
	cases := []struct {
		new         int
		wantAtLeast int
	}{
		{4, 0},
		{100, 1},
		{1000, 2},
		{100000, 4},
	}
	for _, c := range cases {
		got := ComputeNSplits(0, 0, c.new, MinDataFilesPerManifest)
		if got < c.wantAtLeast {
			t.Errorf("ComputeNSplits(0,0,%d) = %d, want >= %d", c.new, got, c.wantAtLeast)
		}
	}
}

func TestComputeNSplits_MonotoneInTotalFiles(t *testing.T) {
	prev := ComputeNSplits(0, 0, 1, MinDataFilesPerManifest)
	for total := 2; total < 50000; total *= 2 {
		n := ComputeNSplits(0, 0, total, MinDataFilesPerManifest)
		if n < prev {
			t.Fatalf("ComputeNSplits should be monotone in total file count: total=%d got %d < prev %d", total, n, prev)
		}
		prev = n
	}
}

func TestComputeNSplits_TableWideCountDrivesLimitIndependentlyOfSelectedManifest(t *testing.T) {
	// A manifest selected to receive new files may itself be small (or brand
	// new), but if the table overall already holds many files the sqrt-based
	// limit should reflect that larger denominator, not the selected
	// manifest's own (possibly tiny) file count.
	smallTableSplits := ComputeNSplits(0, 0, 20, MinDataFilesPerManifest)
	largeTableSplits := ComputeNSplits(100000, 0, 20, MinDataFilesPerManifest)
	if largeTableSplits > smallTableSplits {
		t.Fatalf("a larger table-wide existing count should raise the limit and not increase splits for the same selected+new count: small=%d large=%d", smallTableSplits, largeTableSplits)
	}
}

func TestIlog2(t *testing.T) {
	cases := map[int]int{1: 0, 2: 1, 3: 1, 4: 2, 7: 2, 8: 3, 1023: 9, 1024: 10}
	for n, want := range cases {
		if got := ilog2(n); got != want {
			t.Errorf("ilog2(%d) = %d, want %d", n, got, want)
		}
	}
}
