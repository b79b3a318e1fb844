// Package objstore is the blob-storage side of a catalog.Catalog's
// ObjectStore(bucket) contract: put/get/delete/list over object keys,
// independent of the backend (in-memory for tests, MinIO for production).
package objstore

import "context"

// Store is the minimal blob operations the CORE needs to read and write
// manifests, manifest lists and table/view metadata documents.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]string, error)
	Exists(ctx context.Context, key string) (bool, error)
}
