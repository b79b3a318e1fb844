package txn

import (
	"context"
	"strconv"

	icerrors "github.com/TFMV/icecore/pkg/errors"
	"github.com/TFMV/icecore/pkg/iceberg/catalog"
	"github.com/TFMV/icecore/pkg/iceberg/manifest"
	"github.com/TFMV/icecore/pkg/iceberg/planner"
	"github.com/TFMV/icecore/pkg/iceberg/types"
)

var ErrBoundingRectangle = icerrors.MustNewCode("txn.bounding_rectangle_not_found")

// appendOp is the staged form of an Append call. Consecutive Append calls
// on the same Transaction fold into one appendOp (see (*Transaction).stage)
// by concatenating dataFiles, so a single compile at Commit time sees the
// whole batch and picks exactly one manifest to extend for it.
type appendOp struct {
	dataFiles []manifest.DataFile
	summary   map[string]string
}

// Append stages dataFiles as new, Added-status entries. An empty
// dataFiles has no partition values to fold into a bounding rectangle,
// mirroring the original engine's bounding_partition_values fold over an
// empty file set: it is rejected rather than silently treated as a no-op.
func (t *Transaction) Append(ctx context.Context, dataFiles []manifest.DataFile) error {
	if len(dataFiles) == 0 {
		return icerrors.New(icerrors.KindNotFound, "Bounding", nil).AddContext("name", "rectangle")
	}
	t.stage(&appendOp{dataFiles: append([]manifest.DataFile(nil), dataFiles...)})
	return nil
}

// compile folds every staged file's partition tuple into one aggregate
// bounding rectangle, uses that rectangle to choose a single existing
// manifest to extend (or starts a fresh manifest if the table has none
// yet), and splits only that manifest if it grew past the threshold.
// Every other existing manifest is carried into the new manifest list
// untouched. Append bumps the chain's sequence number by exactly one,
// regardless of how many files were folded into this op.
func (o *appendOp) compile(ctx context.Context, t *Transaction, st *commitState) ([]catalog.Requirement, []catalog.Update, error) {
	tuples := make([]types.Tuple, len(o.dataFiles))
	for i, df := range o.dataFiles {
		tuples[i] = df.Partition
	}
	rect, ok := planner.BoundingRectangle(tuples)
	if !ok {
		return nil, nil, icerrors.New(icerrors.KindNotFound, "Bounding", nil).AddContext("name", "rectangle")
	}

	existing, err := t.loadManifests(ctx, st)
	if err != nil {
		return nil, nil, err
	}
	unpartitioned := t.tbl.Meta.DefaultSpec().IsUnpartitioned()
	spec := t.tbl.Meta.DefaultSpec()
	seq := st.nextSequenceNumber()
	snapID := randomSnapshotID()

	existingAcrossTable := 0
	var candidates []planner.ManifestCandidate
	for _, mf := range existing {
		existingAcrossTable += mf.TotalFiles()
		candidates = append(candidates, planner.ManifestCandidate{Manifest: mf, Rect: planner.RectangleFromSummaries(mf.Partitions)})
	}

	var newManifests []manifest.ManifestFile
	counter := 0

	selected, ok := planner.SelectManifest(candidates, rect, unpartitioned)
	if !ok {
		// No manifests exist yet: all new files go into one fresh manifest.
		w := manifest.New(spec, snapID, seq)
		for _, df := range o.dataFiles {
			w.Add(df)
		}
		split, err := t.writeSplitManifests(ctx, w, existingAcrossTable, 0, len(o.dataFiles), &counter)
		if err != nil {
			return nil, nil, err
		}
		newManifests = append(newManifests, split...)
	} else {
		entries, err := t.readManifestEntries(ctx, selected)
		if err != nil {
			return nil, nil, err
		}
		w := manifest.FromExisting(spec, snapID, seq, entries)
		for _, df := range o.dataFiles {
			w.Add(df)
		}
		split, err := t.writeSplitManifests(ctx, w, existingAcrossTable, selected.TotalFiles(), len(o.dataFiles), &counter)
		if err != nil {
			return nil, nil, err
		}
		newManifests = append(newManifests, split...)

		for _, mf := range existing {
			if mf.Path != selected.Path {
				newManifests = append(newManifests, mf)
			}
		}
	}

	snapshotID := snapID
	listPath, err := t.writeManifestList(ctx, snapshotID, newManifests)
	if err != nil {
		return nil, nil, err
	}

	summary := map[string]string{
		"operation":        "append",
		"added-data-files": strconv.Itoa(len(o.dataFiles)),
	}
	for k, v := range o.summary {
		summary[k] = v
	}

	snap := t.newSnapshotFrom(st, listPath, seq, summary)
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
