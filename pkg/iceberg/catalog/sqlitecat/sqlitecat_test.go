package sqlitecat_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/TFMV/icecore/pkg/iceberg/catalog"
	"github.com/TFMV/icecore/pkg/iceberg/catalog/sqlitecat"
	icerrors "github.com/TFMV/icecore/pkg/errors"
	"github.com/TFMV/icecore/pkg/iceberg/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func openCatalog(t *testing.T) *sqlitecat.Catalog {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.db")
	cat, err := sqlitecat.New(path, zerolog.New(os.Stdout))
	require.NoError(t, err)
	t.Cleanup(func() { cat.Close() })
	return cat
}

func sampleMeta() *catalog.TableMetadata {
	return &catalog.TableMetadata{
		UUID:       "u1",
		Schemas:    []*types.Schema{{ID: 0}},
		Specs:      []*types.PartitionSpec{types.Unpartitioned()},
		Refs:       map[string]catalog.Ref{catalog.MainBranch: {Name: catalog.MainBranch, SnapshotID: 1}},
		Properties: map[string]string{},
	}
}

func TestCreateAndLoadTable_RoundTrips(t *testing.T) {
	ctx := context.Background()
	cat := openCatalog(t)
	id := catalog.Identifier{Namespace: []string{"db"}, Name: "orders"}

	require.NoError(t, cat.CreateTable(ctx, id, sampleMeta()))

	meta, err := cat.LoadTable(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "u1", meta.UUID)

	exists, err := cat.TableExists(ctx, id)
	require.NoError(t, err)
	require.True(t, exists)
}

func TestUpdateTable_ConflictOnConcurrentCommit(t *testing.T) {
	ctx := context.Background()
	cat := openCatalog(t)
	id := catalog.Identifier{Namespace: []string{"db"}, Name: "orders"}
	require.NoError(t, cat.CreateTable(ctx, id, sampleMeta()))

	_, err := cat.UpdateTable(ctx, id, catalog.Commit{
		Requirements: []catalog.Requirement{catalog.AssertRefSnapshotID{Ref: catalog.MainBranch, SnapshotID: 1}},
		Updates:      []catalog.Update{catalog.UpdateSetSnapshotRef{Name: catalog.MainBranch, SnapshotID: 2}},
	})
	require.NoError(t, err)

	// Retrying the same stale requirement must fail: the live ref is now 2, not 1.
	_, err = cat.UpdateTable(ctx, id, catalog.Commit{
		Requirements: []catalog.Requirement{catalog.AssertRefSnapshotID{Ref: catalog.MainBranch, SnapshotID: 1}},
		Updates:      []catalog.Update{catalog.UpdateSetSnapshotRef{Name: catalog.MainBranch, SnapshotID: 3}},
	})
	require.Error(t, err)
	require.True(t, icerrors.IsKind(err, icerrors.KindConflict))
}

func TestDropTable_RemovesRow(t *testing.T) {
	ctx := context.Background()
	cat := openCatalog(t)
	id := catalog.Identifier{Namespace: []string{"db"}, Name: "orders"}
	require.NoError(t, cat.CreateTable(ctx, id, sampleMeta()))
	require.NoError(t, cat.DropTable(ctx, id))

	exists, err := cat.TableExists(ctx, id)
	require.NoError(t, err)
	require.False(t, exists)
}
