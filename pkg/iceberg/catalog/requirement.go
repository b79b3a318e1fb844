package catalog

import (
	icerrors "github.com/TFMV/icecore/pkg/errors"
	"github.com/TFMV/icecore/pkg/iceberg/types"
)

var ErrRequirementFailed = icerrors.MustNewCode("catalog.requirement_failed")

// Requirement is a precondition checked against the table's current
// metadata immediately before a commit's Updates are applied. If any
// requirement fails, the whole commit is rejected with a Conflict error
// and nothing is applied.
type Requirement interface {
	Check(m *TableMetadata) error
}

// AssertRefSnapshotID is the optimistic-concurrency requirement every
// Transaction attaches: the branch must still point at the snapshot the
// transaction was built against.
type AssertRefSnapshotID struct {
	Ref        string
	SnapshotID int64 // 0 means the ref must not exist yet
}

func (r AssertRefSnapshotID) Check(m *TableMetadata) error {
	current, ok := m.RefSnapshotID(r.Ref)
	if r.SnapshotID == 0 {
		if ok {
			return icerrors.New(icerrors.KindConflict, "ref must not exist", nil).
				AddContext("ref", r.Ref)
		}
		return nil
	}
	if !ok || current != r.SnapshotID {
		return icerrors.New(icerrors.KindConflict, "ref snapshot id does not match", nil).
			AddContext("ref", r.Ref).
			AddContext("expected", r.SnapshotID).
			AddContext("actual", current)
	}
	return nil
}

// AssertTableUUID requires the table's uuid to still match, guarding
// against committing to a table that was dropped and recreated.
type AssertTableUUID struct {
	UUID string
}

func (r AssertTableUUID) Check(m *TableMetadata) error {
	if m.UUID != r.UUID {
		return icerrors.New(icerrors.KindConflict, "table uuid does not match", nil).
			AddContext("expected", r.UUID).
			AddContext("actual", m.UUID)
	}
	return nil
}

// Update is one mutation to TableMetadata. Updates are applied in order
// after every Requirement has passed.
type Update interface {
	Apply(m *TableMetadata)
}

type UpdateAddSnapshot struct{ Snapshot Snapshot }

func (u UpdateAddSnapshot) Apply(m *TableMetadata) {
	m.Snapshots = append(m.Snapshots, u.Snapshot)
	if u.Snapshot.SequenceNumber > m.LastSequenceNumber {
		m.LastSequenceNumber = u.Snapshot.SequenceNumber
	}
}

type UpdateSetSnapshotRef struct {
	Name       string
	SnapshotID int64
}

func (u UpdateSetSnapshotRef) Apply(m *TableMetadata) {
	if m.Refs == nil {
		m.Refs = make(map[string]Ref)
	}
	m.Refs[u.Name] = Ref{Name: u.Name, SnapshotID: u.SnapshotID}
	m.SnapshotLog = append(m.SnapshotLog, SnapshotLogEntry{SnapshotID: u.SnapshotID})
}

type UpdateProperties struct {
	Set    map[string]string
	Remove []string
}

func (u UpdateProperties) Apply(m *TableMetadata) {
	if m.Properties == nil {
		m.Properties = make(map[string]string)
	}
	for k, v := range u.Set {
		m.Properties[k] = v
	}
	for _, k := range u.Remove {
		delete(m.Properties, k)
	}
}

// UpdateAddSchema registers a new schema version without activating it;
// pair with UpdateSetCurrentSchema to make it current in the same commit.
type UpdateAddSchema struct{ Schema *types.Schema }

func (u UpdateAddSchema) Apply(m *TableMetadata) {
	m.Schemas = append(m.Schemas, u.Schema)
	if u.Schema.HighestFieldID() > m.LastColumnID {
		m.LastColumnID = u.Schema.HighestFieldID()
	}
}

type UpdateSetDefaultSpec struct{ SpecID int }

func (u UpdateSetDefaultSpec) Apply(m *TableMetadata) {
	m.DefaultSpecID = u.SpecID
}

// UpdateAddPartitionSpec registers a new partition spec without changing
// which spec is the table's default, mirroring UpdateAddSchema's
// register-without-activate shape for schemas.
type UpdateAddPartitionSpec struct{ Spec *types.PartitionSpec }

func (u UpdateAddPartitionSpec) Apply(m *TableMetadata) {
	m.Specs = append(m.Specs, u.Spec)
	if u.Spec.ID > m.LastPartitionID {
		m.LastPartitionID = u.Spec.ID
	}
}

// UpdateSetCurrentSchema switches the table's active schema among schemas
// already registered via UpdateAddSchema, without registering a new one.
type UpdateSetCurrentSchema struct{ SchemaID int }

func (u UpdateSetCurrentSchema) Apply(m *TableMetadata) {
	m.CurrentSchemaID = u.SchemaID
}

// UpdateRemoveSnapshots drops the named snapshots from the table's live
// history, used by Rewrite to retire every snapshot that existed before it
// replaced the table's files wholesale. SnapshotLog entries are left
// alone: they're a ref-history audit trail, not a membership index, and
// real readers tolerate a log entry pointing at a since-removed snapshot.
type UpdateRemoveSnapshots struct{ SnapshotIDs []int64 }

func (u UpdateRemoveSnapshots) Apply(m *TableMetadata) {
	if len(u.SnapshotIDs) == 0 {
		return
	}
	remove := make(map[int64]bool, len(u.SnapshotIDs))
	for _, id := range u.SnapshotIDs {
		remove[id] = true
	}
	kept := m.Snapshots[:0]
	for _, s := range m.Snapshots {
		if !remove[s.SnapshotID] {
			kept = append(kept, s)
		}
	}
	m.Snapshots = kept
}
