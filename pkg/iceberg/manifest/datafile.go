// Package manifest implements manifest and manifest-list I/O (spec C2):
// the ManifestEntry/ManifestFile row types and an Avro-backed codec for
// reading and writing them.
package manifest

import "github.com/TFMV/icecore/pkg/iceberg/types"

// FileFormat is a data file's on-disk encoding. icecore does not decode
// file contents itself (spec Non-goals); this tag only routes metadata.
type FileFormat string

const (
	FormatParquet FileFormat = "PARQUET"
	FormatAvro    FileFormat = "AVRO"
	FormatORC     FileFormat = "ORC"
)

// Content distinguishes data files from delete files.
type Content int

const (
	ContentData Content = iota
	ContentPositionDeletes
	ContentEqualityDeletes
)

// ColumnStats carries the per-column bounds and counts a DataFile tracks.
type ColumnStats struct {
	FieldID      int
	NullCount    int64
	NaNCount     int64
	DistinctCount int64
	LowerBound   types.Value
	UpperBound   types.Value
	HasBounds    bool
}

// DataFile describes one physical file referenced by a manifest entry.
type DataFile struct {
	Path            string
	Format          FileFormat
	Content         Content
	Partition       types.Tuple
	RecordCount     int64
	FileSizeBytes   int64
	ColumnStats     []ColumnStats
	EqualityFieldIDs []int
}

// EntryStatus is a manifest entry's lifecycle tag.
type EntryStatus int

const (
	StatusExisting EntryStatus = iota
	StatusAdded
	StatusDeleted
)

func (s EntryStatus) String() string {
	switch s {
	case StatusExisting:
		return "EXISTING"
	case StatusAdded:
		return "ADDED"
	case StatusDeleted:
		return "DELETED"
	default:
		return "UNKNOWN"
	}
}

// ManifestEntry is one row of a manifest file.
type ManifestEntry struct {
	Status         EntryStatus
	SnapshotID     int64
	SequenceNumber int64
	DataFile       DataFile
}

// Inherit fills an entry's snapshot id and sequence number from the
// manifest it lives in wherever the entry's own value is 0, whatever the
// entry's status; non-zero values are left as they are.
func (e *ManifestEntry) Inherit(snapshotID, sequenceNumber int64) {
	if e.SnapshotID == 0 {
		e.SnapshotID = snapshotID
	}
	if e.SequenceNumber == 0 {
		e.SequenceNumber = sequenceNumber
	}
}
