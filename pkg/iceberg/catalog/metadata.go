// Package catalog defines the catalog contract (spec C3): table/namespace
// lifecycle and the atomic requirement-check-then-apply commit protocol
// every Transaction goes through.
package catalog

import (
	"time"

	"github.com/TFMV/icecore/pkg/iceberg/manifest"
	"github.com/TFMV/icecore/pkg/iceberg/types"
)

// Identifier is a namespace-qualified name, e.g. {"db"}, "orders".
type Identifier struct {
	Namespace []string
	Name      string
}

// Ref is a named pointer to a snapshot. "main" is mandatory on every table.
type Ref struct {
	Name       string
	SnapshotID int64
}

const MainBranch = "main"

// SnapshotLogEntry records a historical (timestamp, snapshot) pair for a ref.
type SnapshotLogEntry struct {
	SnapshotID int64
	Timestamp  time.Time
}

// Snapshot is one committed state of a table: a manifest-list pointer plus
// bookkeeping. SnapshotID is a random 63-bit value; SequenceNumber
// increases with each Append or Filter commit, while a Rewrite snapshot
// carries sequence number 0.
type Snapshot struct {
	SnapshotID       int64
	ParentSnapshotID int64 // 0 means no parent
	SequenceNumber   int64
	TimestampMS      int64
	ManifestList     string
	Summary          map[string]string
	SchemaID         int
}

// TableMetadata is a table's full durable state, the document a Catalog's
// UpdateTable persists atomically.
type TableMetadata struct {
	UUID              string
	Location          string
	FormatVersion     int
	LastSequenceNumber int64
	LastColumnID      int
	LastPartitionID   int
	Schemas           []*types.Schema
	CurrentSchemaID   int
	Specs             []*types.PartitionSpec
	DefaultSpecID     int
	Snapshots         []Snapshot
	Refs              map[string]Ref
	SnapshotLog       []SnapshotLogEntry
	Properties        map[string]string
}

func (m *TableMetadata) CurrentSchema() *types.Schema {
	for _, s := range m.Schemas {
		if s.ID == m.CurrentSchemaID {
			return s
		}
	}
	if len(m.Schemas) > 0 {
		return m.Schemas[0]
	}
	return &types.Schema{}
}

func (m *TableMetadata) DefaultSpec() *types.PartitionSpec {
	for _, s := range m.Specs {
		if s.ID == m.DefaultSpecID {
			return s
		}
	}
	return types.Unpartitioned()
}

// SnapshotByID looks up a snapshot by id, returning false if absent.
func (m *TableMetadata) SnapshotByID(id int64) (Snapshot, bool) {
	for _, s := range m.Snapshots {
		if s.SnapshotID == id {
			return s, true
		}
	}
	return Snapshot{}, false
}

// RefSnapshotID resolves a ref name to its current snapshot id, returning
// false if the ref doesn't exist.
func (m *TableMetadata) RefSnapshotID(name string) (int64, bool) {
	r, ok := m.Refs[name]
	if !ok {
		return 0, false
	}
	return r.SnapshotID, true
}

// Clone copies metadata's slices and maps so an in-flight Transaction can
// mutate a private copy before the Catalog compares-and-swaps it in. The
// *Schema and *PartitionSpec pointers and each Snapshot's Summary map are
// shared with the original, not copied.
func (m *TableMetadata) Clone() *TableMetadata {
	cp := *m
	cp.Schemas = append([]*types.Schema(nil), m.Schemas...)
	cp.Specs = append([]*types.PartitionSpec(nil), m.Specs...)
	cp.Snapshots = append([]Snapshot(nil), m.Snapshots...)
	cp.SnapshotLog = append([]SnapshotLogEntry(nil), m.SnapshotLog...)
	cp.Refs = make(map[string]Ref, len(m.Refs))
	for k, v := range m.Refs {
		cp.Refs[k] = v
	}
	cp.Properties = make(map[string]string, len(m.Properties))
	for k, v := range m.Properties {
		cp.Properties[k] = v
	}
	return &cp
}

// ManifestListEntries is a convenience alias used by table.Table when
// resolving a snapshot's manifest-list contents.
type ManifestListEntries = []manifest.ManifestFile
