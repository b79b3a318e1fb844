// Package sqlitecat is a durable catalog.Catalog backed by SQLite. Its
// UpdateTable does the atomic requirement-check-then-apply with a single
// `UPDATE ... WHERE version = ?` inside a transaction, the concrete
// instance of a catalog whose CAS is a transactional row in SQL, modelled
// on the teacher's server/metadata/registry/sqlite.go store.
package sqlitecat

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/TFMV/icecore/internal/objstore"
	"github.com/TFMV/icecore/internal/objstore/memstore"
	icerrors "github.com/TFMV/icecore/pkg/errors"
	"github.com/TFMV/icecore/pkg/iceberg/catalog"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

var (
	ErrOpenFailed      = icerrors.MustNewCode("sqlitecat.open_failed")
	ErrMigrateFailed   = icerrors.MustNewCode("sqlitecat.migrate_failed")
	ErrTableNotFound   = icerrors.MustNewCode("sqlitecat.table_not_found")
	ErrTableExists     = icerrors.MustNewCode("sqlitecat.table_exists")
	ErrNamespaceExists = icerrors.MustNewCode("sqlitecat.namespace_exists")
	ErrSerialization   = icerrors.MustNewCode("sqlitecat.serialization_failed")
)

const schema = `
CREATE TABLE IF NOT EXISTS namespaces (
	name TEXT PRIMARY KEY,
	properties TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS tables (
	namespace TEXT NOT NULL,
	name TEXT NOT NULL,
	version INTEGER NOT NULL,
	metadata TEXT NOT NULL,
	PRIMARY KEY (namespace, name)
);
`

// Catalog is a SQLite-backed catalog.Catalog. The object store defaults to
// an in-process memstore; callers that need durable blobs should wrap a
// miniostore.Store instead via WithObjectStore.
type Catalog struct {
	db     *sql.DB
	store  objstore.Store
	logger zerolog.Logger
}

func New(path string, logger zerolog.Logger) (*Catalog, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, icerrors.New(ErrOpenFailed, "open sqlite database", err).AddContext("path", path)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, icerrors.New(ErrMigrateFailed, "apply schema", err)
	}
	return &Catalog{db: db, store: memstore.New(), logger: logger.With().Str("component", "sqlitecat").Logger()}, nil
}

// WithObjectStore swaps in a durable blob store (e.g. miniostore.Store).
func (c *Catalog) WithObjectStore(s objstore.Store) *Catalog {
	c.store = s
	return c
}

func (c *Catalog) Close() error { return c.db.Close() }

func (c *Catalog) CreateNamespace(ctx context.Context, namespace []string, props map[string]string) error {
	data, err := json.Marshal(props)
	if err != nil {
		return icerrors.New(ErrSerialization, "marshal namespace properties", err)
	}
	_, err = c.db.ExecContext(ctx, `INSERT INTO namespaces(name, properties) VALUES (?, ?)`, nsKey(namespace), data)
	if err != nil {
		return icerrors.New(ErrNamespaceExists, "create namespace", err).AddContext("namespace", nsKey(namespace))
	}
	return nil
}

func (c *Catalog) DropNamespace(ctx context.Context, namespace []string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM namespaces WHERE name = ?`, nsKey(namespace))
	if err != nil {
		return icerrors.New(ErrOpenFailed, "drop namespace", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return icerrors.New(icerrors.KindNotFound, "namespace not found", nil).AddContext("namespace", nsKey(namespace))
	}
	return nil
}

func (c *Catalog) NamespaceExists(ctx context.Context, namespace []string) (bool, error) {
	var name string
	err := c.db.QueryRowContext(ctx, `SELECT name FROM namespaces WHERE name = ?`, nsKey(namespace)).Scan(&name)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, icerrors.New(ErrOpenFailed, "check namespace", err)
	}
	return true, nil
}

func (c *Catalog) ListNamespaces(ctx context.Context, parent []string) ([][]string, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT name FROM namespaces`)
	if err != nil {
		return nil, icerrors.New(ErrOpenFailed, "list namespaces", err)
	}
	defer rows.Close()
	var out [][]string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, icerrors.New(ErrOpenFailed, "scan namespace row", err)
		}
		out = append(out, splitNsKey(name))
	}
	return out, nil
}

func (c *Catalog) CreateTable(ctx context.Context, id catalog.Identifier, meta *catalog.TableMetadata) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return icerrors.New(ErrSerialization, "marshal table metadata", err)
	}
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO tables(namespace, name, version, metadata) VALUES (?, ?, 1, ?)`,
		nsKey(id.Namespace), id.Name, data)
	if err != nil {
		return icerrors.New(ErrTableExists, "create table", err).AddContext("table", id.Name)
	}
	return nil
}

func (c *Catalog) LoadTable(ctx context.Context, id catalog.Identifier) (*catalog.TableMetadata, error) {
	meta, _, err := c.loadWithVersion(ctx, id)
	return meta, err
}

func (c *Catalog) loadWithVersion(ctx context.Context, id catalog.Identifier) (*catalog.TableMetadata, int64, error) {
	var data []byte
	var version int64
	err := c.db.QueryRowContext(ctx, `SELECT metadata, version FROM tables WHERE namespace = ? AND name = ?`,
		nsKey(id.Namespace), id.Name).Scan(&data, &version)
	if err == sql.ErrNoRows {
		return nil, 0, icerrors.New(ErrTableNotFound, "table not found", nil).AddContext("table", id.Name)
	}
	if err != nil {
		return nil, 0, icerrors.New(ErrOpenFailed, "load table", err)
	}
	var meta catalog.TableMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, 0, icerrors.New(ErrSerialization, "unmarshal table metadata", err)
	}
	return &meta, version, nil
}

func (c *Catalog) DropTable(ctx context.Context, id catalog.Identifier) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM tables WHERE namespace = ? AND name = ?`, nsKey(id.Namespace), id.Name)
	if err != nil {
		return icerrors.New(ErrOpenFailed, "drop table", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return icerrors.New(ErrTableNotFound, "table not found", nil).AddContext("table", id.Name)
	}
	return nil
}

func (c *Catalog) TableExists(ctx context.Context, id catalog.Identifier) (bool, error) {
	var name string
	err := c.db.QueryRowContext(ctx, `SELECT name FROM tables WHERE namespace = ? AND name = ?`,
		nsKey(id.Namespace), id.Name).Scan(&name)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, icerrors.New(ErrOpenFailed, "check table", err)
	}
	return true, nil
}

func (c *Catalog) ListTables(ctx context.Context, namespace []string) ([]catalog.Identifier, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT name FROM tables WHERE namespace = ?`, nsKey(namespace))
	if err != nil {
		return nil, icerrors.New(ErrOpenFailed, "list tables", err)
	}
	defer rows.Close()
	var out []catalog.Identifier
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, icerrors.New(ErrOpenFailed, "scan table row", err)
		}
		out = append(out, catalog.Identifier{Namespace: namespace, Name: name})
	}
	return out, nil
}

// UpdateTable runs the requirement checks against a freshly loaded copy of
// the row, then applies updates and persists with an UPDATE guarded by the
// row's version, inside a single transaction — if a concurrent commit won
// the race, the UPDATE affects zero rows and the commit reports a Conflict.
func (c *Catalog) UpdateTable(ctx context.Context, id catalog.Identifier, commit catalog.Commit) (*catalog.TableMetadata, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, icerrors.New(ErrOpenFailed, "begin transaction", err)
	}
	defer tx.Rollback()

	var data []byte
	var version int64
	err = tx.QueryRowContext(ctx, `SELECT metadata, version FROM tables WHERE namespace = ? AND name = ?`,
		nsKey(id.Namespace), id.Name).Scan(&data, &version)
	if err == sql.ErrNoRows {
		return nil, icerrors.New(ErrTableNotFound, "table not found", nil).AddContext("table", id.Name)
	}
	if err != nil {
		return nil, icerrors.New(ErrOpenFailed, "load table for update", err)
	}

	var meta catalog.TableMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, icerrors.New(ErrSerialization, "unmarshal table metadata", err)
	}

	for _, req := range commit.Requirements {
		if err := req.Check(&meta); err != nil {
			return nil, err
		}
	}

	next := meta.Clone()
	for _, u := range commit.Updates {
		u.Apply(next)
	}

	newData, err := json.Marshal(next)
	if err != nil {
		return nil, icerrors.New(ErrSerialization, "marshal updated table metadata", err)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE tables SET metadata = ?, version = version + 1 WHERE namespace = ? AND name = ? AND version = ?`,
		newData, nsKey(id.Namespace), id.Name, version)
	if err != nil {
		return nil, icerrors.New(ErrOpenFailed, "persist table update", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return nil, icerrors.New(icerrors.KindConflict, "concurrent commit won the race", nil).
			AddContext("table", id.Name)
	}

	if err := tx.Commit(); err != nil {
		return nil, icerrors.New(ErrOpenFailed, "commit transaction", err)
	}

	c.logger.Debug().Str("table", id.Name).Int64("version", version+1).Msg("table committed")
	return next, nil
}

func (c *Catalog) ObjectStore(bucket string) objstore.Store {
	return c.store
}

func nsKey(ns []string) string {
	out := ""
	for i, s := range ns {
		if i > 0 {
			out += "."
		}
		out += s
	}
	return out
}

func splitNsKey(s string) []string {
	var out []string
	cur := ""
	for _, r := range s {
		if r == '.' {
			out = append(out, cur)
			cur = ""
			continue
		}
		cur += string(r)
	}
	out = append(out, cur)
	return out
}

var _ fmt.Stringer = (*Catalog)(nil)

func (c *Catalog) String() string { return "sqlitecat.Catalog" }
