package manifest

import (
	"bytes"
	"fmt"

	icerrors "github.com/TFMV/icecore/pkg/errors"
	"github.com/TFMV/icecore/pkg/iceberg/types"
	"github.com/google/uuid"
)

// Writer accumulates manifest entries for a single manifest file and emits
// both the encoded manifest bytes and its manifest-list summary.
type Writer struct {
	spec           *types.PartitionSpec
	snapshotID     int64
	sequenceNumber int64
	entries        []ManifestEntry
}

// New starts a manifest writer for a fresh manifest belonging to snapshotID.
func New(spec *types.PartitionSpec, snapshotID, sequenceNumber int64) *Writer {
	return &Writer{spec: spec, snapshotID: snapshotID, sequenceNumber: sequenceNumber}
}

// FromExisting seeds a writer with a prior manifest's entries, re-stamped
// as StatusExisting, so a rewrite can fold old and new entries into one
// manifest file.
func FromExisting(spec *types.PartitionSpec, snapshotID, sequenceNumber int64, prior []ManifestEntry) *Writer {
	w := New(spec, snapshotID, sequenceNumber)
	for _, e := range prior {
		e.Status = StatusExisting
		w.entries = append(w.entries, e)
	}
	return w
}

func (w *Writer) Add(df DataFile) {
	w.entries = append(w.entries, ManifestEntry{
		Status:         StatusAdded,
		SnapshotID:     w.snapshotID,
		SequenceNumber: w.sequenceNumber,
		DataFile:       df,
	})
}

func (w *Writer) AddDeleted(df DataFile) {
	w.entries = append(w.entries, ManifestEntry{
		Status:         StatusDeleted,
		SnapshotID:     w.snapshotID,
		SequenceNumber: w.sequenceNumber,
		DataFile:       df,
	})
}

func (w *Writer) AddExisting(e ManifestEntry) {
	e.Status = StatusExisting
	w.entries = append(w.entries, e)
}

// AddEntry appends e verbatim, preserving its existing status — used when
// regrouping entries across a manifest split, where a file's Added/Existing
// status must survive the regrouping untouched.
func (w *Writer) AddEntry(e ManifestEntry) {
	w.entries = append(w.entries, e)
}

func (w *Writer) Entries() []ManifestEntry { return w.entries }

func (w *Writer) IsEmpty() bool { return len(w.entries) == 0 }

func (w *Writer) SnapshotID() int64     { return w.snapshotID }
func (w *Writer) SequenceNumber() int64 { return w.sequenceNumber }

// Close encodes the manifest and returns its bytes plus the manifest-list
// entry describing it. path is the manifest's logical path in the table's
// metadata directory.
func (w *Writer) Close(path string) ([]byte, ManifestFile, error) {
	var buf bytes.Buffer
	if err := WriteEntries(&buf, w.entries); err != nil {
		return nil, ManifestFile{}, err
	}
	mf := Summarize(w.entries, w.spec)
	mf.Path = path
	mf.Length = int64(buf.Len())
	mf.PartitionSpecID = w.spec.ID
	mf.SequenceNumber = w.sequenceNumber
	mf.SnapshotID = w.snapshotID
	mf.MinSequenceNumber = minSequenceNumber(w.entries, w.sequenceNumber)
	return buf.Bytes(), mf, nil
}

func minSequenceNumber(entries []ManifestEntry, fallback int64) int64 {
	min := fallback
	seen := false
	for _, e := range entries {
		if !seen || e.SequenceNumber < min {
			min = e.SequenceNumber
			seen = true
		}
	}
	return min
}

// NewManifestPath generates a manifest file name in the Iceberg convention:
// <uuid>-m<counter>.avro.
func NewManifestPath(counter int) string {
	return fmt.Sprintf("%s-m%d.avro", uuid.NewString(), counter)
}

// Read decodes a manifest's entries given its raw bytes.
func Read(data []byte, spec *types.PartitionSpec) ([]ManifestEntry, error) {
	entries, err := ReadEntries(bytes.NewReader(data), spec)
	if err != nil {
		return nil, icerrors.AddContext(err, "bytes", len(data))
	}
	return entries, nil
}
