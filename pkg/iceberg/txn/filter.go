package txn

import (
	"context"
	"strconv"

	"github.com/TFMV/icecore/pkg/iceberg/catalog"
	"github.com/TFMV/icecore/pkg/iceberg/manifest"
)

// filterOp is the staged form of a Filter call.
type filterOp struct {
	predicate func(manifest.DataFile) bool
}

// Filter stages a logical delete of every live data file matching
// predicate: it does not rewrite any file's contents, it stamps the
// matching entries Deleted in a fresh manifest and commits a new
// snapshot, the same whole-file tombstone semantics DELETE-by-partition
// uses elsewhere in the format.
func (t *Transaction) Filter(ctx context.Context, predicate func(manifest.DataFile) bool) error {
	t.stage(&filterOp{predicate: predicate})
	return nil
}

// compile re-emits every matching entry with StatusDeleted in its
// manifest, rewrites every manifest touched into the new manifest list,
// and commits a new snapshot pointing at it. A predicate matching nothing
// produces no updates at all, so staging just a Filter that matches
// nothing commits nothing.
func (o *filterOp) compile(ctx context.Context, t *Transaction, st *commitState) ([]catalog.Requirement, []catalog.Update, error) {
	existing, err := t.loadManifests(ctx, st)
	if err != nil {
		return nil, nil, err
	}

	seq := st.nextSequenceNumber()
	snapshotID := randomSnapshotID()

	var newManifests []manifest.ManifestFile
	counter := 0
	anyDeleted := false
	deletedCount := 0

	for _, mf := range existing {
		entries, err := t.readManifestEntries(ctx, mf)
		if err != nil {
			return nil, nil, err
		}
		w := manifest.New(t.tbl.Meta.DefaultSpec(), snapshotID, seq)
		changed := false
		for _, e := range entries {
			if e.Status != manifest.StatusDeleted && o.predicate(e.DataFile) {
				w.AddDeleted(e.DataFile)
				changed = true
				anyDeleted = true
				deletedCount++
				continue
			}
			w.AddEntry(e)
		}
		if !changed {
			newManifests = append(newManifests, mf)
			continue
		}
		counter++
		nmf, err := t.writeManifest(ctx, w, counter)
		if err != nil {
			return nil, nil, err
		}
		newManifests = append(newManifests, nmf)
	}

	if !anyDeleted {
		return nil, nil, nil
	}

	listPath, err := t.writeManifestList(ctx, snapshotID, newManifests)
	if err != nil {
		return nil, nil, err
	}

	snap := t.newSnapshotFrom(st, listPath, seq, map[string]string{
		"operation":          "delete",
		"deleted-data-files": strconv.Itoa(deletedCount),
	})
	snap.SnapshotID = snapshotID

	st.snapshotID = snapshotID
	st.manifests = newManifests
	st.manifestsLoaded = true

	var reqs []catalog.Requirement
	if req := st.ensureRefRequirement(t); req != nil {
		reqs = append(reqs, req)
	}
	updates := []catalog.Update{
		catalog.UpdateAddSnapshot{Snapshot: snap},
		catalog.UpdateSetSnapshotRef{Name: t.branch, SnapshotID: snap.SnapshotID},
	}
	return reqs, updates, nil
}
