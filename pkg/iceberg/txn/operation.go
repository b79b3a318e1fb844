package txn

import (
	"context"

	"github.com/TFMV/icecore/pkg/iceberg/catalog"
	"github.com/TFMV/icecore/pkg/iceberg/manifest"
)

// operation is one logical, not-yet-compiled step a Transaction has staged.
// compile performs whatever IO the step needs (reading/writing manifests)
// against the in-flight commitState and returns the (requirement, update)
// pairs it contributes to the final commit.
type operation interface {
	compile(ctx context.Context, t *Transaction, st *commitState) ([]catalog.Requirement, []catalog.Update, error)
}

// commitState threads the table's chain-local, not-yet-persisted state
// through a sequence of staged operations at Commit time, so that e.g. a
// Filter staged after an Append sees the manifests and snapshot id the
// Append produced rather than the table's pre-transaction state.
type commitState struct {
	seq             int64
	snapshotID      int64
	manifests       []manifest.ManifestFile
	manifestsLoaded bool
	refAsserted     bool
}

func (st *commitState) nextSequenceNumber() int64 {
	st.seq++
	return st.seq
}

// ensureRefRequirement returns the branch's optimistic-concurrency
// requirement the first time it's called during a Commit, and nil on every
// subsequent call, so a transaction staging several file-producing
// operations (Append, Filter, Rewrite) still emits exactly one
// AssertRefSnapshotID for its branch, asserting the branch's state as it
// was before any of them ran. SetSnapshotRef adds its own assertion for
// the ref it moves.
func (st *commitState) ensureRefRequirement(t *Transaction) catalog.Requirement {
	if st.refAsserted {
		return nil
	}
	st.refAsserted = true
	id, _ := t.currentRefSnapshotID()
	return catalog.AssertRefSnapshotID{Ref: t.branch, SnapshotID: id}
}

// loadManifests returns the chain-local manifest list, reading it from the
// table's pre-transaction state on first use and caching it thereafter so
// later staged operations see prior staged operations' output.
func (t *Transaction) loadManifests(ctx context.Context, st *commitState) ([]manifest.ManifestFile, error) {
	if st.manifestsLoaded {
		return st.manifests, nil
	}
	mfs, err := t.existingManifests(ctx)
	if err != nil {
		return nil, err
	}
	st.manifests = mfs
	st.manifestsLoaded = true
	return mfs, nil
}

// stage appends op to the transaction's operation list, applying the
// merge/fold policy: consecutive Appends concatenate their file lists,
// consecutive UpdateProperties union their maps, a Rewrite discards any
// prior Append/Rewrite already staged, and schema/spec/ref operations are
// idempotent by id (a later call with the same id replaces the earlier
// one rather than producing two updates).
func (t *Transaction) stage(op operation) {
	switch o := op.(type) {
	case *appendOp:
		if len(t.ops) > 0 {
			if last, ok := t.ops[len(t.ops)-1].(*appendOp); ok {
				last.dataFiles = append(last.dataFiles, o.dataFiles...)
				for k, v := range o.summary {
					if last.summary == nil {
						last.summary = map[string]string{}
					}
					last.summary[k] = v
				}
				return
			}
		}
		t.ops = append(t.ops, o)

	case *rewriteOp:
		t.ops = dropMatching(t.ops, func(existing operation) bool {
			switch existing.(type) {
			case *appendOp, *rewriteOp:
				return true
			default:
				return false
			}
		})
		t.ops = append(t.ops, o)

	case *propertiesOp:
		if len(t.ops) > 0 {
			if last, ok := t.ops[len(t.ops)-1].(*propertiesOp); ok {
				if last.set == nil {
					last.set = map[string]string{}
				}
				for k, v := range o.set {
					last.set[k] = v
				}
				last.remove = append(last.remove, o.remove...)
				return
			}
		}
		t.ops = append(t.ops, o)

	case *addSchemaOp:
		t.ops = dropMatching(t.ops, func(existing operation) bool {
			p, ok := existing.(*addSchemaOp)
			return ok && p.schema.ID == o.schema.ID
		})
		t.ops = append(t.ops, o)

	case *setCurrentSchemaOp:
		t.ops = dropMatching(t.ops, func(existing operation) bool {
			_, ok := existing.(*setCurrentSchemaOp)
			return ok
		})
		t.ops = append(t.ops, o)

	case *addPartitionSpecOp:
		t.ops = dropMatching(t.ops, func(existing operation) bool {
			p, ok := existing.(*addPartitionSpecOp)
			return ok && p.spec.ID == o.spec.ID
		})
		t.ops = append(t.ops, o)

	case *setDefaultSpecOp:
		t.ops = dropMatching(t.ops, func(existing operation) bool {
			_, ok := existing.(*setDefaultSpecOp)
			return ok
		})
		t.ops = append(t.ops, o)

	case *setRefOp:
		t.ops = dropMatching(t.ops, func(existing operation) bool {
			p, ok := existing.(*setRefOp)
			return ok && p.name == o.name
		})
		t.ops = append(t.ops, o)

	default:
		t.ops = append(t.ops, op)
	}
}

func dropMatching(ops []operation, match func(operation) bool) []operation {
	kept := ops[:0]
	for _, op := range ops {
		if !match(op) {
			kept = append(kept, op)
		}
	}
	return kept
}
