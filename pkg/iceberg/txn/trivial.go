package txn

import (
	"context"

	"github.com/TFMV/icecore/pkg/iceberg/catalog"
	"github.com/TFMV/icecore/pkg/iceberg/types"
)

// Trivial operations translate directly to a (requirement?, updates[])
// pair per spec §4.5.4: ref updates assert the prior snapshot id of that
// ref; property/schema/spec updates carry no requirement.

type setRefOp struct {
	name       string
	snapshotID int64
}

// SetSnapshotRef repoints a branch at an existing snapshot id, e.g. for
// rollback or cherry-pick. It asserts name's prior snapshot id as its
// requirement, independent of whatever branch this Transaction itself is
// open against.
func (t *Transaction) SetSnapshotRef(name string, snapshotID int64) {
	t.stage(&setRefOp{name: name, snapshotID: snapshotID})
}

func (o *setRefOp) compile(ctx context.Context, t *Transaction, st *commitState) ([]catalog.Requirement, []catalog.Update, error) {
	id, _ := t.tbl.Meta.RefSnapshotID(o.name)
	reqs := []catalog.Requirement{catalog.AssertRefSnapshotID{Ref: o.name, SnapshotID: id}}
	updates := []catalog.Update{catalog.UpdateSetSnapshotRef{Name: o.name, SnapshotID: o.snapshotID}}
	return reqs, updates, nil
}

type propertiesOp struct {
	set    map[string]string
	remove []string
}

// UpdateProperties sets and/or removes table properties in one commit.
func (t *Transaction) UpdateProperties(set map[string]string, remove []string) {
	t.stage(&propertiesOp{set: set, remove: remove})
}

func (o *propertiesOp) compile(ctx context.Context, t *Transaction, st *commitState) ([]catalog.Requirement, []catalog.Update, error) {
	return nil, []catalog.Update{catalog.UpdateProperties{Set: o.set, Remove: o.remove}}, nil
}

type addSchemaOp struct {
	schema *types.Schema
}

// AddSchema registers a new schema version and makes it the table's
// current schema once committed.
func (t *Transaction) AddSchema(schema *types.Schema) {
	t.stage(&addSchemaOp{schema: schema})
	t.stage(&setCurrentSchemaOp{schemaID: schema.ID})
}

func (o *addSchemaOp) compile(ctx context.Context, t *Transaction, st *commitState) ([]catalog.Requirement, []catalog.Update, error) {
	return nil, []catalog.Update{catalog.UpdateAddSchema{Schema: o.schema}}, nil
}

type setCurrentSchemaOp struct {
	schemaID int
}

// SetCurrentSchema switches the table's active schema to one already
// registered via AddSchema, without registering a new one.
func (t *Transaction) SetCurrentSchema(schemaID int) {
	t.stage(&setCurrentSchemaOp{schemaID: schemaID})
}

func (o *setCurrentSchemaOp) compile(ctx context.Context, t *Transaction, st *commitState) ([]catalog.Requirement, []catalog.Update, error) {
	return nil, []catalog.Update{catalog.UpdateSetCurrentSchema{SchemaID: o.schemaID}}, nil
}

type setDefaultSpecOp struct {
	specID int
}

// SetDefaultSpec changes which already-registered partition spec new
// writes use.
func (t *Transaction) SetDefaultSpec(specID int) {
	t.stage(&setDefaultSpecOp{specID: specID})
}

func (o *setDefaultSpecOp) compile(ctx context.Context, t *Transaction, st *commitState) ([]catalog.Requirement, []catalog.Update, error) {
	return nil, []catalog.Update{catalog.UpdateSetDefaultSpec{SpecID: o.specID}}, nil
}

type addPartitionSpecOp struct {
	spec *types.PartitionSpec
}

// AddPartitionSpec registers a new partition spec the table can later be
// switched to via SetDefaultSpec. It does not itself change which spec
// new writes use.
func (t *Transaction) AddPartitionSpec(spec *types.PartitionSpec) {
	t.stage(&addPartitionSpecOp{spec: spec})
}

func (o *addPartitionSpecOp) compile(ctx context.Context, t *Transaction, st *commitState) ([]catalog.Requirement, []catalog.Update, error) {
	return nil, []catalog.Update{catalog.UpdateAddPartitionSpec{Spec: o.spec}}, nil
}
