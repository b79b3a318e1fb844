// Package memcatalog is an in-process catalog.Catalog, compare-and-swapping
// a versioned pointer under a mutex instead of the teacher's
// read-ETag/write-if-unchanged loop over a JSON file — the same optimistic
// idea, minus the filesystem, for tests and single-process embedding.
package memcatalog

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/TFMV/icecore/internal/objstore"
	"github.com/TFMV/icecore/internal/objstore/memstore"
	icerrors "github.com/TFMV/icecore/pkg/errors"
	"github.com/TFMV/icecore/pkg/iceberg/catalog"
	"github.com/rs/zerolog"
)

var (
	ErrTableNotFound      = icerrors.MustNewCode("memcatalog.table_not_found")
	ErrTableExists        = icerrors.MustNewCode("memcatalog.table_exists")
	ErrNamespaceNotFound  = icerrors.MustNewCode("memcatalog.namespace_not_found")
	ErrNamespaceExists    = icerrors.MustNewCode("memcatalog.namespace_exists")
)

type tableEntry struct {
	meta    *catalog.TableMetadata
	version int64
}

// Catalog is a mutex-guarded, compare-and-swap in-process catalog.
type Catalog struct {
	mu         sync.Mutex
	tables     map[string]*tableEntry
	namespaces map[string]map[string]string
	store      objstore.Store
	logger     zerolog.Logger
}

func New(logger zerolog.Logger) *Catalog {
	return &Catalog{
		tables:     make(map[string]*tableEntry),
		namespaces: make(map[string]map[string]string),
		store:      memstore.New(),
		logger:     logger.With().Str("component", "memcatalog").Logger(),
	}
}

func key(id catalog.Identifier) string {
	return strings.Join(id.Namespace, ".") + "/" + id.Name
}

func nsKey(ns []string) string { return strings.Join(ns, ".") }

func (c *Catalog) CreateNamespace(_ context.Context, namespace []string, props map[string]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := nsKey(namespace)
	if _, ok := c.namespaces[k]; ok {
		return icerrors.New(ErrNamespaceExists, "namespace already exists", nil).AddContext("namespace", k)
	}
	cp := make(map[string]string, len(props))
	for pk, pv := range props {
		cp[pk] = pv
	}
	c.namespaces[k] = cp
	return nil
}

func (c *Catalog) DropNamespace(_ context.Context, namespace []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := nsKey(namespace)
	if _, ok := c.namespaces[k]; !ok {
		return icerrors.New(ErrNamespaceNotFound, "namespace not found", nil).AddContext("namespace", k)
	}
	delete(c.namespaces, k)
	return nil
}

func (c *Catalog) NamespaceExists(_ context.Context, namespace []string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.namespaces[nsKey(namespace)]
	return ok, nil
}

func (c *Catalog) ListNamespaces(_ context.Context, parent []string) ([][]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix := nsKey(parent)
	var out [][]string
	for k := range c.namespaces {
		if parent == nil {
			out = append(out, strings.Split(k, "."))
			continue
		}
		if strings.HasPrefix(k, prefix+".") || k == prefix {
			out = append(out, strings.Split(k, "."))
		}
	}
	return out, nil
}

func (c *Catalog) CreateTable(_ context.Context, id catalog.Identifier, meta *catalog.TableMetadata) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := key(id)
	if _, ok := c.tables[k]; ok {
		return icerrors.New(ErrTableExists, "table already exists", nil).AddContext("table", k)
	}
	c.tables[k] = &tableEntry{meta: meta.Clone(), version: 1}
	return nil
}

func (c *Catalog) LoadTable(_ context.Context, id catalog.Identifier) (*catalog.TableMetadata, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.tables[key(id)]
	if !ok {
		return nil, icerrors.New(ErrTableNotFound, "table not found", nil).AddContext("table", key(id))
	}
	return e.meta.Clone(), nil
}

func (c *Catalog) DropTable(_ context.Context, id catalog.Identifier) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := key(id)
	if _, ok := c.tables[k]; !ok {
		return icerrors.New(ErrTableNotFound, "table not found", nil).AddContext("table", k)
	}
	delete(c.tables, k)
	return nil
}

func (c *Catalog) TableExists(_ context.Context, id catalog.Identifier) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.tables[key(id)]
	return ok, nil
}

func (c *Catalog) ListTables(_ context.Context, namespace []string) ([]catalog.Identifier, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix := nsKey(namespace) + "/"
	var out []catalog.Identifier
	for k := range c.tables {
		if strings.HasPrefix(k, prefix) {
			out = append(out, catalog.Identifier{Namespace: namespace, Name: strings.TrimPrefix(k, prefix)})
		}
	}
	return out, nil
}

// UpdateTable applies commit under the catalog mutex: every Requirement is
// checked against the live metadata, and only if all pass are Updates
// applied and the version bumped. No lock is ever held across I/O, mirroring
// the teacher's read-check-write-if-unchanged loop but without retries,
// since the mutex makes the critical section uncontended by construction.
func (c *Catalog) UpdateTable(_ context.Context, id catalog.Identifier, commit catalog.Commit) (*catalog.TableMetadata, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := key(id)
	e, ok := c.tables[k]
	if !ok {
		return nil, icerrors.New(ErrTableNotFound, "table not found", nil).AddContext("table", k)
	}

	for _, req := range commit.Requirements {
		if err := req.Check(e.meta); err != nil {
			return nil, err
		}
	}

	next := e.meta.Clone()
	for _, u := range commit.Updates {
		u.Apply(next)
	}
	e.meta = next
	e.version++

	c.logger.Debug().Str("table", k).Int64("version", e.version).Msg("table committed")
	return next.Clone(), nil
}

func (c *Catalog) ObjectStore(bucket string) objstore.Store {
	return c.store
}

var _ fmt.Stringer = (*Catalog)(nil)

func (c *Catalog) String() string { return "memcatalog.Catalog" }
