package catalog

import (
	"context"

	"github.com/TFMV/icecore/internal/objstore"
)

// Commit is the atomic unit a Transaction submits to UpdateTable: every
// Requirement must pass against the table's current metadata before any
// Update is applied, and either all Updates apply or none do.
type Commit struct {
	Requirements []Requirement
	Updates      []Update
}

// Catalog is the persistence contract every table/view operation goes
// through. Implementations provide compare-and-swap semantics for
// UpdateTable: concurrent commits never interleave, and a failed
// Requirement surfaces as a Conflict error with nothing applied.
type Catalog interface {
	CreateNamespace(ctx context.Context, namespace []string, props map[string]string) error
	DropNamespace(ctx context.Context, namespace []string) error
	NamespaceExists(ctx context.Context, namespace []string) (bool, error)
	ListNamespaces(ctx context.Context, parent []string) ([][]string, error)

	CreateTable(ctx context.Context, id Identifier, meta *TableMetadata) error
	LoadTable(ctx context.Context, id Identifier) (*TableMetadata, error)
	DropTable(ctx context.Context, id Identifier) error
	TableExists(ctx context.Context, id Identifier) (bool, error)
	ListTables(ctx context.Context, namespace []string) ([]Identifier, error)

	// UpdateTable atomically checks commit.Requirements against the
	// table's current metadata and, if all pass, applies commit.Updates
	// and persists the result. It returns the committed metadata.
	UpdateTable(ctx context.Context, id Identifier, commit Commit) (*TableMetadata, error)

	// ObjectStore returns the blob store backing bucket, used to read and
	// write manifests, manifest lists and metadata documents.
	ObjectStore(bucket string) objstore.Store
}
