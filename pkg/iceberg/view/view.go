// Package view implements View and Materialized View bookkeeping (spec
// C7): version history, the storage-table pointer a materialized view
// keeps, and freshness tracking against its source tables.
package view

import (
	"time"

	"github.com/TFMV/icecore/pkg/iceberg/catalog"
	"github.com/TFMV/icecore/pkg/iceberg/types"
)

// Representation is one SQL dialect's rendering of a view's query.
type Representation struct {
	Dialect string
	SQL     string
}

// Version is one historical definition of a view.
type Version struct {
	VersionID       int
	TimestampMS     int64
	SchemaID        int
	Representations []Representation
	DefaultNamespace []string
}

// View is a named, versioned SQL query with no storage of its own.
type View struct {
	UUID            string
	Location        string
	CurrentVersionID int
	Versions        []Version
	Schemas         []*types.Schema
	Properties      map[string]string
}

func (v *View) CurrentVersion() (Version, bool) {
	for _, ver := range v.Versions {
		if ver.VersionID == v.CurrentVersionID {
			return ver, true
		}
	}
	return Version{}, false
}

// SQL returns the current version's representation for dialect, or the
// first representation if dialect is unmatched ("" or unknown).
func (v *View) SQL(dialect string) (string, bool) {
	cur, ok := v.CurrentVersion()
	if !ok {
		return "", false
	}
	for _, r := range cur.Representations {
		if r.Dialect == dialect {
			return r.SQL, true
		}
	}
	if len(cur.Representations) > 0 {
		return cur.Representations[0].SQL, true
	}
	return "", false
}

// AddVersion appends a new version and makes it current.
func (v *View) AddVersion(schemaID int, reps []Representation, defaultNamespace []string) Version {
	next := Version{
		VersionID:        len(v.Versions) + 1,
		TimestampMS:      time.Now().UnixMilli(),
		SchemaID:         schemaID,
		Representations:  reps,
		DefaultNamespace: defaultNamespace,
	}
	v.Versions = append(v.Versions, next)
	v.CurrentVersionID = next.VersionID
	return next
}

// StorageTableState is a materialized view's freshness relative to its
// sources.
type StorageTableState int

const (
	StateFresh StorageTableState = iota
	StateOutdated
	StateInvalid
)

func (s StorageTableState) String() string {
	switch s {
	case StateFresh:
		return "fresh"
	case StateOutdated:
		return "outdated"
	case StateInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// SourceTable records the snapshot id a materialized view last refreshed
// against for one upstream table, so Refresh can detect new commits.
type SourceTable struct {
	Identifier     catalog.Identifier
	LastSnapshotID int64
}

// MaterializedView pairs a View with a pointer to the table storing its
// materialized results, plus the source bookkeeping used to decide
// freshness.
type MaterializedView struct {
	View
	StorageTable catalog.Identifier
	Sources      []SourceTable
}

// State computes freshness by comparing each recorded source snapshot id
// against the table's actual current snapshot id on branch, supplied by
// the caller since View does not itself hold catalog access.
func (mv *MaterializedView) State(currentSnapshotIDs map[string]int64) StorageTableState {
	if len(mv.Sources) == 0 {
		return StateInvalid
	}
	for _, src := range mv.Sources {
		cur, ok := currentSnapshotIDs[src.Identifier.Name]
		if !ok {
			return StateInvalid
		}
		if cur != src.LastSnapshotID {
			return StateOutdated
		}
	}
	return StateFresh
}
