// Package txn implements the Transaction Engine (spec C5): Append,
// Rewrite, Filter and the trivial metadata operations, each compiling to a
// (requirements, updates) commit applied atomically by a catalog.Catalog.
package txn

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"time"

	icerrors "github.com/TFMV/icecore/pkg/errors"
	"github.com/TFMV/icecore/pkg/iceberg/catalog"
	"github.com/TFMV/icecore/pkg/iceberg/manifest"
	"github.com/TFMV/icecore/pkg/iceberg/planner"
	"github.com/TFMV/icecore/pkg/iceberg/table"
	"github.com/rs/zerolog"
)

var (
	ErrNoBranch     = icerrors.MustNewCode("txn.no_branch")
	ErrWriteFailed  = icerrors.MustNewCode("txn.write_failed")
	ErrCommitFailed = icerrors.MustNewCode("txn.commit_failed")
)

// Transaction accumulates an ordered list of operations against a single
// table branch and compiles them into one atomic catalog commit at Commit
// time. Operations fold as they're staged (see (*Transaction).stage) so
// that, e.g., two Append calls before Commit behave like one Append of
// the concatenated file list, per the spec's append-associativity law.
type Transaction struct {
	tbl    *table.Table
	branch string
	logger zerolog.Logger

	minDataFilesPerManifest int

	ops          []operation
	requirements []catalog.Requirement
	updates      []catalog.Update
}

// New starts a transaction against branch ("main" if branch is empty). A
// branch with no ref yet starts from no snapshot, and the first commit
// creates its ref.
func New(tbl *table.Table, branch string, logger zerolog.Logger) *Transaction {
	if branch == "" {
		branch = catalog.MainBranch
	}
	return &Transaction{
		tbl:                     tbl,
		branch:                  branch,
		logger:                  logger.With().Str("component", "txn").Str("table", tbl.ID.Name).Logger(),
		minDataFilesPerManifest: planner.MinDataFilesPerManifest,
	}
}

func (t *Transaction) WithMinDataFilesPerManifest(n int) *Transaction {
	if n > 0 {
		t.minDataFilesPerManifest = n
	}
	return t
}

func randomSnapshotID() int64 {
	var b [8]byte
	_, _ = rand.Read(b[:])
	id := int64(binary.BigEndian.Uint64(b[:]) & 0x7fffffffffffffff)
	if id == 0 {
		id = 1
	}
	return id
}

// currentRefSnapshotID resolves the transaction's branch against the
// table's pre-transaction metadata, returning (id, true) if it exists, or
// (0, false) if it's a brand-new branch. It stays stable across an entire
// Commit call, since t.tbl.Meta is only swapped in after the catalog
// round-trip succeeds.
func (t *Transaction) currentRefSnapshotID() (int64, bool) {
	return t.tbl.Meta.RefSnapshotID(t.branch)
}

// newSnapshotFrom builds the catalog.Snapshot record for a commit that
// writes manifestListPath, chaining its parent off the in-flight
// commitState rather than the table's pre-transaction metadata, so a
// snapshot produced by one staged operation correctly parents the next.
func (t *Transaction) newSnapshotFrom(st *commitState, manifestListPath string, sequenceNumber int64, summary map[string]string) catalog.Snapshot {
	return catalog.Snapshot{
		SnapshotID:       randomSnapshotID(),
		ParentSnapshotID: st.snapshotID,
		SequenceNumber:   sequenceNumber,
		TimestampMS:      time.Now().UnixMilli(),
		ManifestList:     manifestListPath,
		Summary:          summary,
		SchemaID:         t.tbl.Meta.CurrentSchemaID,
	}
}

// Commit compiles every staged operation, in order, against a shared
// commitState and submits the resulting requirements and updates to the
// catalog as one atomic compare-and-swap.
func (t *Transaction) Commit(ctx context.Context) (*catalog.TableMetadata, error) {
	st := &commitState{seq: t.tbl.Meta.LastSequenceNumber}
	if id, ok := t.currentRefSnapshotID(); ok {
		st.snapshotID = id
	}

	for _, op := range t.ops {
		reqs, updates, err := op.compile(ctx, t, st)
		if err != nil {
			return nil, err
		}
		t.requirements = append(t.requirements, reqs...)
		t.updates = append(t.updates, updates...)
	}

	commit := catalog.Commit{Requirements: t.requirements, Updates: t.updates}
	meta, err := t.tbl.Catalog.UpdateTable(ctx, t.tbl.ID, commit)
	if err != nil {
		return nil, icerrors.New(ErrCommitFailed, "commit transaction", err).AddContext("table", t.tbl.ID.Name)
	}
	t.tbl.Meta = meta
	t.ops = nil
	t.requirements = nil
	t.updates = nil
	return meta, nil
}

func (t *Transaction) existingManifests(ctx context.Context) ([]manifest.ManifestFile, error) {
	id, ok := t.currentRefSnapshotID()
	if !ok {
		return nil, nil
	}
	return t.tbl.Manifests(ctx, id)
}

func (t *Transaction) readManifestEntries(ctx context.Context, mf manifest.ManifestFile) ([]manifest.ManifestEntry, error) {
	data, err := t.tbl.Catalog.ObjectStore(t.tbl.Bucket).Get(ctx, mf.Path)
	if err != nil {
		return nil, icerrors.New(ErrWriteFailed, "read manifest", err).AddContext("path", mf.Path)
	}
	entries, err := manifest.Read(data, t.tbl.Meta.DefaultSpec())
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].Inherit(mf.SnapshotID, mf.SequenceNumber)
	}
	return entries, nil
}

func (t *Transaction) writeManifest(ctx context.Context, w *manifest.Writer, counter int) (manifest.ManifestFile, error) {
	path := manifest.NewManifestPath(counter)
	data, mf, err := w.Close(path)
	if err != nil {
		return manifest.ManifestFile{}, err
	}
	if err := t.tbl.Catalog.ObjectStore(t.tbl.Bucket).Put(ctx, path, data); err != nil {
		return manifest.ManifestFile{}, icerrors.New(ErrWriteFailed, "write manifest", err).AddContext("path", path)
	}
	return mf, nil
}

func (t *Transaction) writeManifestList(ctx context.Context, snapshotID int64, manifests []manifest.ManifestFile) (string, error) {
	path := manifest.NewManifestListPath(snapshotID)
	data, err := manifest.EncodeManifestList(manifests)
	if err != nil {
		return "", err
	}
	if err := t.tbl.Catalog.ObjectStore(t.tbl.Bucket).Put(ctx, path, data); err != nil {
		return "", icerrors.New(ErrWriteFailed, "write manifest list", err).AddContext("path", path)
	}
	return path, nil
}

// writeSplitManifests decides (via planner.ComputeNSplits) whether w's
// combined entry count warrants bisection, and writes one manifest per
// resulting group. existingAcrossTable is the file count across every
// manifest the table currently has (the sqrt term's denominator);
// selectedManifestFiles is w's own pre-append file count (the ratio's
// numerator alongside newFiles) — the two are only equal when the table
// has exactly one manifest.
func (t *Transaction) writeSplitManifests(ctx context.Context, w *manifest.Writer, existingAcrossTable, selectedManifestFiles, newFiles int, counter *int) ([]manifest.ManifestFile, error) {
	n := planner.ComputeNSplits(existingAcrossTable, selectedManifestFiles, newFiles, t.minDataFilesPerManifest)
	if n == 0 {
		*counter++
		mf, err := t.writeManifest(ctx, w, *counter)
		if err != nil {
			return nil, err
		}
		return []manifest.ManifestFile{mf}, nil
	}

	groups := planner.SplitDataFiles(w.Entries(), n)
	var out []manifest.ManifestFile
	for _, g := range groups {
		if len(g) == 0 {
			continue
		}
		gw := manifest.New(t.tbl.Meta.DefaultSpec(), w.SnapshotID(), w.SequenceNumber())
		for _, e := range g {
			gw.AddEntry(e)
		}
		*counter++
		mf, err := t.writeManifest(ctx, gw, *counter)
		if err != nil {
			return nil, err
		}
		out = append(out, mf)
	}
	return out, nil
}
