package txn

import (
	"context"
	"strconv"

	"github.com/TFMV/icecore/pkg/iceberg/catalog"
	"github.com/TFMV/icecore/pkg/iceberg/manifest"
)

// rewriteOp is the staged form of a Rewrite call. Staging a Rewrite
// discards any prior same-transaction Append/Rewrite (see
// (*Transaction).stage), since a rewrite replaces the whole live file set
// and makes whatever those operations would have contributed moot.
type rewriteOp struct {
	replaced []manifest.DataFile
	added    []manifest.DataFile
	summary  map[string]string
}

// Rewrite replaces every prior snapshot's files with added, used for
// compaction and for materialized-view full refreshes. replaced is
// carried only for the commit summary's replaced-data-files count — the
// rewrite always starts from empty regardless of which files the caller
// names, since it retires every snapshot that existed before it rather
// than selectively diffing their entries.
func (t *Transaction) Rewrite(ctx context.Context, replaced []manifest.DataFile, added []manifest.DataFile, extraSummary map[string]string) error {
	t.stage(&rewriteOp{
		replaced: append([]manifest.DataFile(nil), replaced...),
		added:    append([]manifest.DataFile(nil), added...),
		summary:  extraSummary,
	})
	return nil
}

// compile writes added as a fresh manifest list with no inherited
// entries, commits it as a snapshot with sequence_number=0 (a rewrite is
// not a new data event in the sequence-number stream, unlike Append and
// Filter), and emits RemoveSnapshots naming every snapshot the table had
// before this rewrite, retiring them all rather than leaving them to
// accumulate.
func (o *rewriteOp) compile(ctx context.Context, t *Transaction, st *commitState) ([]catalog.Requirement, []catalog.Update, error) {
	priorIDs := make([]int64, 0, len(t.tbl.Meta.Snapshots))
	for _, s := range t.tbl.Meta.Snapshots {
		priorIDs = append(priorIDs, s.SnapshotID)
	}

	snapshotID := randomSnapshotID()
	spec := t.tbl.Meta.DefaultSpec()
	w := manifest.New(spec, snapshotID, 0)
	for _, df := range o.added {
		w.Add(df)
	}
	counter := 0
	newManifests, err := t.writeSplitManifests(ctx, w, 0, 0, len(o.added), &counter)
	if err != nil {
		return nil, nil, err
	}

	listPath, err := t.writeManifestList(ctx, snapshotID, newManifests)
	if err != nil {
		return nil, nil, err
	}

	summary := map[string]string{
		"operation":           "rewrite",
		"replaced-data-files": strconv.Itoa(len(o.replaced)),
		"added-data-files":    strconv.Itoa(len(o.added)),
	}
	for k, v := range o.summary {
		summary[k] = v
	}

	snap := t.newSnapshotFrom(st, listPath, 0, summary)
	snap.SnapshotID = snapshotID

	st.snapshotID = snapshotID
	st.manifests = newManifests
	st.manifestsLoaded = true

	var reqs []catalog.Requirement
	if req := st.ensureRefRequirement(t); req != nil {
		reqs = append(reqs, req)
	}
	updates := []catalog.Update{
		catalog.UpdateRemoveSnapshots{SnapshotIDs: priorIDs},
		catalog.UpdateAddSnapshot{Snapshot: snap},
		catalog.UpdateSetSnapshotRef{Name: t.branch, SnapshotID: snap.SnapshotID},
	}
	return reqs, updates, nil
}
