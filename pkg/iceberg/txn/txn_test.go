package txn_test

import (
	"context"
	"os"
	"testing"

	"github.com/TFMV/icecore/pkg/iceberg/catalog"
	"github.com/TFMV/icecore/pkg/iceberg/catalog/memcatalog"
	"github.com/TFMV/icecore/pkg/iceberg/manifest"
	"github.com/TFMV/icecore/pkg/iceberg/table"
	"github.com/TFMV/icecore/pkg/iceberg/txn"
	"github.com/TFMV/icecore/pkg/iceberg/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func testLogger() zerolog.Logger {
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func newOrdersTable(t *testing.T) (catalog.Catalog, *table.Table) {
	t.Helper()
	cat := memcatalog.New(testLogger())
	schema := &types.Schema{ID: 0, Fields: []types.Field{
		{ID: 1, Name: "id", Type: types.KindInt64, Required: true},
		{ID: 2, Name: "amount", Type: types.KindFloat64},
	}}
	spec := types.Unpartitioned()
	meta := &catalog.TableMetadata{
		UUID:            "test-uuid",
		Location:        "mem://orders",
		FormatVersion:   2,
		Schemas:         []*types.Schema{schema},
		CurrentSchemaID: 0,
		Specs:           []*types.PartitionSpec{spec},
		DefaultSpecID:   0,
		Refs:            map[string]catalog.Ref{},
		Properties:      map[string]string{},
	}
	id := catalog.Identifier{Namespace: []string{"db"}, Name: "orders"}
	require.NoError(t, cat.CreateTable(context.Background(), id, meta))

	tbl, err := table.Open(context.Background(), cat, id, "data")
	require.NoError(t, err)
	return cat, tbl
}

func TestAppend_CreatesSnapshotAndMainRef(t *testing.T) {
	ctx := context.Background()
	cat, tbl := newOrdersTable(t)

	tx := txn.New(tbl, catalog.MainBranch, testLogger())
	require.NoError(t, tx.Append(ctx, []manifest.DataFile{
		{Path: "d1.parquet", Format: manifest.FormatParquet, RecordCount: 10, FileSizeBytes: 100},
	}))
	meta, err := tx.Commit(ctx)
	require.NoError(t, err)

	require.Len(t, meta.Snapshots, 1)
	mainID, ok := meta.RefSnapshotID(catalog.MainBranch)
	require.True(t, ok)
	require.Equal(t, meta.Snapshots[0].SnapshotID, mainID)
	require.Equal(t, int64(1), meta.LastSequenceNumber)

	tbl2, err := table.Open(ctx, cat, tbl.ID, "data")
	require.NoError(t, err)
	files, err := tbl2.DataFiles(ctx, mustManifests(t, ctx, tbl2, mainID), nil)
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Equal(t, "d1.parquet", files[0].Path)
}

func TestAppend_SecondCommitBumpsSequence(t *testing.T) {
	ctx := context.Background()
	_, tbl := newOrdersTable(t)

	tx1 := txn.New(tbl, catalog.MainBranch, testLogger())
	require.NoError(t, tx1.Append(ctx, []manifest.DataFile{{Path: "d1.parquet", RecordCount: 1}}))
	meta1, err := tx1.Commit(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), meta1.LastSequenceNumber)

	tx2 := txn.New(tbl, catalog.MainBranch, testLogger())
	require.NoError(t, tx2.Append(ctx, []manifest.DataFile{{Path: "d2.parquet", RecordCount: 1}}))
	meta2, err := tx2.Commit(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), meta2.LastSequenceNumber)
	require.Len(t, meta2.Snapshots, 2)
}

func TestFilter_DeletesMatchingFiles(t *testing.T) {
	ctx := context.Background()
	_, tbl := newOrdersTable(t)

	tx1 := txn.New(tbl, catalog.MainBranch, testLogger())
	require.NoError(t, tx1.Append(ctx, []manifest.DataFile{
		{Path: "keep.parquet", RecordCount: 1},
		{Path: "drop.parquet", RecordCount: 1},
	}))
	_, err := tx1.Commit(ctx)
	require.NoError(t, err)

	tx2 := txn.New(tbl, catalog.MainBranch, testLogger())
	require.NoError(t, tx2.Filter(ctx, func(df manifest.DataFile) bool {
		return df.Path == "drop.parquet"
	}))
	meta, err := tx2.Commit(ctx)
	require.NoError(t, err)
	require.Len(t, meta.Snapshots, 2)

	mainID, _ := meta.RefSnapshotID(catalog.MainBranch)
	files, err := tbl.DataFiles(ctx, mustManifests(t, ctx, tbl, mainID), nil)
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Equal(t, "keep.parquet", files[0].Path)
}

func TestFilter_NoMatchCommitsNothing(t *testing.T) {
	ctx := context.Background()
	_, tbl := newOrdersTable(t)

	tx1 := txn.New(tbl, catalog.MainBranch, testLogger())
	require.NoError(t, tx1.Append(ctx, []manifest.DataFile{{Path: "a.parquet", RecordCount: 1}}))
	meta1, err := tx1.Commit(ctx)
	require.NoError(t, err)

	tx2 := txn.New(tbl, catalog.MainBranch, testLogger())
	require.NoError(t, tx2.Filter(ctx, func(df manifest.DataFile) bool { return false }))
	meta2, err := tx2.Commit(ctx)
	require.NoError(t, err)
	require.Len(t, meta2.Snapshots, len(meta1.Snapshots))
}

func TestAppend_EmptyFileListRejected(t *testing.T) {
	ctx := context.Background()
	_, tbl := newOrdersTable(t)

	tx := txn.New(tbl, catalog.MainBranch, testLogger())
	err := tx.Append(ctx, nil)
	require.Error(t, err)
}

func TestAppend_FoldsConsecutiveCallsBeforeCommit(t *testing.T) {
	ctx := context.Background()
	_, tbl := newOrdersTable(t)

	// Two Append calls on the same Transaction before Commit must observe
	// the same live set as one Append of the concatenated file list.
	tx := txn.New(tbl, catalog.MainBranch, testLogger())
	require.NoError(t, tx.Append(ctx, []manifest.DataFile{{Path: "a.parquet", RecordCount: 1}}))
	require.NoError(t, tx.Append(ctx, []manifest.DataFile{{Path: "b.parquet", RecordCount: 1}}))
	meta, err := tx.Commit(ctx)
	require.NoError(t, err)

	// Folding two Appends into one staged operation must still only
	// produce a single snapshot and a single sequence-number bump.
	require.Len(t, meta.Snapshots, 1)
	require.Equal(t, int64(1), meta.LastSequenceNumber)

	mainID, _ := meta.RefSnapshotID(catalog.MainBranch)
	files, err := tbl.DataFiles(ctx, mustManifests(t, ctx, tbl, mainID), nil)
	require.NoError(t, err)
	require.Len(t, files, 2)
}

func TestRewrite_RemovesAllPriorSnapshots(t *testing.T) {
	ctx := context.Background()
	_, tbl := newOrdersTable(t)

	tx1 := txn.New(tbl, catalog.MainBranch, testLogger())
	require.NoError(t, tx1.Append(ctx, []manifest.DataFile{{Path: "old.parquet", RecordCount: 1}}))
	meta1, err := tx1.Commit(ctx)
	require.NoError(t, err)
	require.Len(t, meta1.Snapshots, 1)
	priorID := meta1.Snapshots[0].SnapshotID

	tx2 := txn.New(tbl, catalog.MainBranch, testLogger())
	require.NoError(t, tx2.Rewrite(ctx, nil, []manifest.DataFile{{Path: "new.parquet", RecordCount: 1}}, nil))
	meta2, err := tx2.Commit(ctx)
	require.NoError(t, err)

	require.Len(t, meta2.Snapshots, 1)
	require.NotEqual(t, priorID, meta2.Snapshots[0].SnapshotID)
	require.Equal(t, int64(0), meta2.Snapshots[0].SequenceNumber)
	_, stillThere := meta2.SnapshotByID(priorID)
	require.False(t, stillThere)

	mainID, _ := meta2.RefSnapshotID(catalog.MainBranch)
	files, err := tbl.DataFiles(ctx, mustManifests(t, ctx, tbl, mainID), nil)
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Equal(t, "new.parquet", files[0].Path)
}

func TestAddPartitionSpec_RegistersWithoutActivating(t *testing.T) {
	ctx := context.Background()
	_, tbl := newOrdersTable(t)

	newSpec := &types.PartitionSpec{ID: 1, Fields: []types.PartitionField{
		{SourceFieldID: 2, PartitionFieldID: 1000, Name: "amount_bucket", Transform: types.Bucket(4)},
	}}

	tx := txn.New(tbl, catalog.MainBranch, testLogger())
	tx.AddPartitionSpec(newSpec)
	meta, err := tx.Commit(ctx)
	require.NoError(t, err)

	require.Len(t, meta.Specs, 2)
	require.Equal(t, 0, meta.DefaultSpecID)

	tx2 := txn.New(tbl, catalog.MainBranch, testLogger())
	tx2.SetDefaultSpec(1)
	meta2, err := tx2.Commit(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, meta2.DefaultSpecID)
}

func mustManifests(t *testing.T, ctx context.Context, tbl *table.Table, snapshotID int64) []manifest.ManifestFile {
	t.Helper()
	mfs, err := tbl.Manifests(ctx, snapshotID)
	require.NoError(t, err)
	return mfs
}
