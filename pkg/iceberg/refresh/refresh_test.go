package refresh_test

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/TFMV/icecore/pkg/iceberg/catalog"
	"github.com/TFMV/icecore/pkg/iceberg/catalog/memcatalog"
	"github.com/TFMV/icecore/pkg/iceberg/manifest"
	"github.com/TFMV/icecore/pkg/iceberg/refresh"
	"github.com/TFMV/icecore/pkg/iceberg/table"
	"github.com/TFMV/icecore/pkg/iceberg/txn"
	"github.com/TFMV/icecore/pkg/iceberg/types"
	"github.com/TFMV/icecore/pkg/iceberg/view"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func logger() zerolog.Logger { return zerolog.New(os.Stdout).With().Timestamp().Logger() }

func createTable(t *testing.T, cat catalog.Catalog, name string) *table.Table {
	t.Helper()
	ctx := context.Background()
	schema := &types.Schema{ID: 0, Fields: []types.Field{
		{ID: 1, Name: "id", Type: types.KindInt64, Required: true},
		{ID: 2, Name: "product_id", Type: types.KindInt64},
		{ID: 3, Name: "amount", Type: types.KindInt64},
	}}
	meta := &catalog.TableMetadata{
		UUID:            name + "-uuid",
		Location:        "mem://" + name,
		FormatVersion:   2,
		Schemas:         []*types.Schema{schema},
		CurrentSchemaID: 0,
		Specs:           []*types.PartitionSpec{types.Unpartitioned()},
		Refs:            map[string]catalog.Ref{},
		Properties:      map[string]string{},
	}
	id := catalog.Identifier{Name: name}
	require.NoError(t, cat.CreateTable(ctx, id, meta))
	tbl, err := table.Open(ctx, cat, id, "data")
	require.NoError(t, err)
	return tbl
}

// fakeEngine is a QueryEngine stub that always recomputes the sum of
// "amount" grouped by product_id for product_id < 3 over the orders
// table's current live data files, mirroring the spec's worked example.
type fakeEngine struct {
	cat     catalog.Catalog
	bucket  string
	orders  catalog.Identifier
	registered map[string]bool
}

func (f *fakeEngine) FindRelations(ctx context.Context, sql string) ([]catalog.Identifier, error) {
	return []catalog.Identifier{f.orders}, nil
}

func (f *fakeEngine) RegisterTable(ctx context.Context, name string, id catalog.Identifier) error {
	if f.registered == nil {
		f.registered = make(map[string]bool)
	}
	f.registered[name] = true
	return nil
}

func (f *fakeEngine) Execute(ctx context.Context, sql string) ([]manifest.DataFile, error) {
	tbl, err := table.Open(ctx, f.cat, f.orders, f.bucket)
	if err != nil {
		return nil, err
	}
	id, ok := tbl.CurrentSnapshotID(catalog.MainBranch)
	if !ok {
		return nil, nil
	}
	mfs, err := tbl.Manifests(ctx, id)
	if err != nil {
		return nil, err
	}
	files, err := tbl.DataFiles(ctx, mfs, nil)
	if err != nil {
		return nil, err
	}

	sums := map[int64]int64{}
	for _, df := range files {
		pid, amt := decodeFakeRow(df.Path)
		if pid < 3 {
			sums[pid] += amt
		}
	}

	var out []manifest.DataFile
	for pid, sum := range sums {
		out = append(out, manifest.DataFile{
			Path:        encodeFakeRow(pid, sum),
			Format:      manifest.FormatParquet,
			RecordCount: 1,
		})
	}
	return out, nil
}

// The fake engine encodes each "row" as a data file path so the test
// doesn't need a real columnar reader to assert on content.
func encodeFakeRow(productID, amount int64) string {
	return fmt.Sprintf("row-%d-%d.parquet", productID, amount)
}

func decodeFakeRow(path string) (productID, amount int64) {
	fmt.Sscanf(path, "row-%d-%d.parquet", &productID, &amount)
	return productID, amount
}

func TestRefresh_MatchesWorkedExample(t *testing.T) {
	ctx := context.Background()
	cat := memcatalog.New(logger())

	orders := createTable(t, cat, "orders")
	ordersID := catalog.Identifier{Name: "orders"}
	storage := createTable(t, cat, "orders_view_storage")

	appendOrders(t, ctx, orders, []orderRow{
		{productID: 1, amount: 3},
		{productID: 1, amount: 4},
		{productID: 2, amount: 1},
		{productID: 3, amount: 99}, // filtered out by product_id < 3
	})

	mv := &view.MaterializedView{
		View:         view.View{UUID: "mv-uuid"},
		StorageTable: catalog.Identifier{Name: "orders_view_storage"},
	}
	mv.AddVersion(0, []view.Representation{{Dialect: "generic", SQL: "SELECT product_id, sum(amount) FROM orders WHERE product_id < 3 GROUP BY product_id"}}, nil)

	engine := &fakeEngine{cat: cat, bucket: "data", orders: ordersID}
	eng := refresh.New(cat, "data", engine, logger())

	res, err := eng.Refresh(ctx, mv, catalog.MainBranch)
	require.NoError(t, err)
	require.True(t, res.Refreshed)

	sums := readFakeSums(t, ctx, storage)
	require.Equal(t, int64(7), sums[1])
	require.Equal(t, int64(1), sums[2])

	// Idempotence: refreshing again with no new upstream commits commits nothing.
	res2, err := eng.Refresh(ctx, mv, catalog.MainBranch)
	require.NoError(t, err)
	require.False(t, res2.Refreshed)

	// A second insert into orders changes the sums after another refresh.
	appendOrders(t, ctx, orders, []orderRow{{productID: 1, amount: 2}, {productID: 2, amount: 1}})
	res3, err := eng.Refresh(ctx, mv, catalog.MainBranch)
	require.NoError(t, err)
	require.True(t, res3.Refreshed)

	sums2 := readFakeSums(t, ctx, storage)
	require.Equal(t, int64(9), sums2[1])
	require.Equal(t, int64(2), sums2[2])
}

type orderRow struct {
	productID int64
	amount    int64
}

func appendOrders(t *testing.T, ctx context.Context, tbl *table.Table, rows []orderRow) {
	t.Helper()
	tx := txn.New(tbl, catalog.MainBranch, logger())
	var files []manifest.DataFile
	for _, r := range rows {
		files = append(files, manifest.DataFile{
			Path:        encodeFakeRow(r.productID, r.amount),
			Format:      manifest.FormatParquet,
			RecordCount: 1,
		})
	}
	require.NoError(t, tx.Append(ctx, files))
	meta, err := tx.Commit(ctx)
	require.NoError(t, err)
	tbl.Meta = meta
}

func readFakeSums(t *testing.T, ctx context.Context, tbl *table.Table) map[int64]int64 {
	t.Helper()
	fresh, err := table.Open(ctx, tbl.Catalog, tbl.ID, tbl.Bucket)
	require.NoError(t, err)
	id, ok := fresh.CurrentSnapshotID(catalog.MainBranch)
	require.True(t, ok)
	mfs, err := fresh.Manifests(ctx, id)
	require.NoError(t, err)
	files, err := fresh.DataFiles(ctx, mfs, nil)
	require.NoError(t, err)

	out := map[int64]int64{}
	for _, df := range files {
		pid, amt := decodeFakeRow(df.Path)
		out[pid] = amt
	}
	return out
}
