package manifest

import "github.com/TFMV/icecore/pkg/iceberg/types"

// PartitionFieldSummary is the per-partition-column bounding rectangle
// carried in a manifest-list entry, used by the planner to decide which
// manifest should receive a newly written data file without opening it.
type PartitionFieldSummary struct {
	ContainsNull bool
	ContainsNaN  bool
	LowerBound   types.Value
	UpperBound   types.Value
	HasBounds    bool
}

// Expand widens the summary to also cover v.
func (s *PartitionFieldSummary) Expand(v types.Value) {
	if !s.HasBounds {
		s.LowerBound, s.UpperBound, s.HasBounds = v, v, true
		return
	}
	if v.Compare(s.LowerBound) < 0 {
		s.LowerBound = v
	}
	if v.Compare(s.UpperBound) > 0 {
		s.UpperBound = v
	}
}

// ManifestFile is a manifest-list entry: metadata about one manifest
// without requiring it to be opened.
type ManifestFile struct {
	Path               string
	Length             int64
	PartitionSpecID    int
	SequenceNumber     int64
	MinSequenceNumber  int64
	SnapshotID         int64
	AddedFilesCount    int
	ExistingFilesCount int
	DeletedFilesCount  int
	AddedRows          int64
	ExistingRows       int64
	DeletedRows        int64
	Partitions         []PartitionFieldSummary
}

// TotalFiles is the manifest's file count across all statuses, the count
// the planner uses when deciding whether a manifest needs to be split.
func (m *ManifestFile) TotalFiles() int {
	return m.AddedFilesCount + m.ExistingFilesCount + m.DeletedFilesCount
}

// Summarize recomputes a ManifestFile's partition summaries and counts from
// a set of entries. spec is used to size the per-field summary slice.
func Summarize(entries []ManifestEntry, spec *types.PartitionSpec) ManifestFile {
	mf := ManifestFile{Partitions: make([]PartitionFieldSummary, len(spec.Fields))}
	for _, e := range entries {
		switch e.Status {
		case StatusAdded:
			mf.AddedFilesCount++
			mf.AddedRows += e.DataFile.RecordCount
		case StatusExisting:
			mf.ExistingFilesCount++
			mf.ExistingRows += e.DataFile.RecordCount
		case StatusDeleted:
			mf.DeletedFilesCount++
			mf.DeletedRows += e.DataFile.RecordCount
		}
		for i, v := range e.DataFile.Partition.Values {
			if i < len(mf.Partitions) {
				mf.Partitions[i].Expand(v)
			}
		}
	}
	return mf
}
