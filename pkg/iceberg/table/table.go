// Package table implements the Table handle (spec C4): read access to a
// table's current state and its manifest/data-file closure.
package table

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	icerrors "github.com/TFMV/icecore/pkg/errors"
	"github.com/TFMV/icecore/pkg/iceberg/catalog"
	"github.com/TFMV/icecore/pkg/iceberg/manifest"
)

var (
	ErrNoSnapshot  = icerrors.MustNewCode("table.no_snapshot")
	ErrReadFailed  = icerrors.MustNewCode("table.read_failed")
	ErrDropFailed  = icerrors.MustNewCode("table.drop_failed")
)

// Table is a handle bound to a catalog entry and its backing object store.
type Table struct {
	ID      catalog.Identifier
	Meta    *catalog.TableMetadata
	Catalog catalog.Catalog
	Bucket  string
}

func Open(ctx context.Context, cat catalog.Catalog, id catalog.Identifier, bucket string) (*Table, error) {
	meta, err := cat.LoadTable(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Table{ID: id, Meta: meta, Catalog: cat, Bucket: bucket}, nil
}

// CurrentSnapshotID resolves branch's snapshot id, falling back to "main"
// if branch has no ref of its own yet.
func (t *Table) CurrentSnapshotID(branch string) (int64, bool) {
	if branch != "" && branch != catalog.MainBranch {
		if id, ok := t.Meta.RefSnapshotID(branch); ok {
			return id, true
		}
	}
	return t.Meta.RefSnapshotID(catalog.MainBranch)
}

// Manifests returns the manifest-list entries for the given snapshot id.
func (t *Table) Manifests(ctx context.Context, snapshotID int64) ([]manifest.ManifestFile, error) {
	snap, ok := t.Meta.SnapshotByID(snapshotID)
	if !ok {
		return nil, icerrors.New(ErrNoSnapshot, "snapshot not found", nil).AddContext("snapshot_id", snapshotID)
	}
	data, err := t.Catalog.ObjectStore(t.Bucket).Get(ctx, snap.ManifestList)
	if err != nil {
		return nil, icerrors.New(ErrReadFailed, "read manifest list", err).AddContext("path", snap.ManifestList)
	}
	return manifest.ReadManifestList(bytes.NewReader(data), t.Meta.DefaultSpec())
}

// DataFiles returns the live (non-deleted) data files reachable from the
// given manifest list, optionally filtered by a predicate over each file's
// DataFile. A nil filter returns every live file.
func (t *Table) DataFiles(ctx context.Context, manifests []manifest.ManifestFile, filter func(manifest.DataFile) bool) ([]manifest.DataFile, error) {
	var out []manifest.DataFile
	for _, mf := range manifests {
		entries, err := t.readManifest(ctx, mf)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.Status == manifest.StatusDeleted {
				continue
			}
			if filter != nil && !filter(e.DataFile) {
				continue
			}
			out = append(out, e.DataFile)
		}
	}
	return out, nil
}

// DataFilesContainsDelete reports whether any entry of the given manifests
// refers to a position- or equality-delete file rather than a data file.
func (t *Table) DataFilesContainsDelete(ctx context.Context, manifests []manifest.ManifestFile) (bool, error) {
	for _, mf := range manifests {
		entries, err := t.readManifest(ctx, mf)
		if err != nil {
			return false, err
		}
		for _, e := range entries {
			if e.DataFile.Content != manifest.ContentData {
				return true, nil
			}
		}
	}
	return false, nil
}

func (t *Table) readManifest(ctx context.Context, mf manifest.ManifestFile) ([]manifest.ManifestEntry, error) {
	data, err := t.Catalog.ObjectStore(t.Bucket).Get(ctx, mf.Path)
	if err != nil {
		return nil, icerrors.New(ErrReadFailed, "read manifest", err).AddContext("path", mf.Path)
	}
	entries, err := manifest.Read(data, t.Meta.DefaultSpec())
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].Inherit(mf.SnapshotID, mf.SequenceNumber)
	}
	return entries, nil
}

// Drop removes every data file, manifest, manifest list and then the
// catalog entry itself. It is best-effort and concurrent: a failure to
// delete one object does not abort the others, matching the behavior of
// iceberg-rust's Table::drop, which is not wrapped in any atomic guarantee.
func (t *Table) Drop(ctx context.Context, workers int) error {
	if workers < 1 {
		workers = 1
	}
	store := t.Catalog.ObjectStore(t.Bucket)

	var allManifests []manifest.ManifestFile
	var allManifestLists []string
	var allDataFiles []string
	for _, snap := range t.Meta.Snapshots {
		allManifestLists = append(allManifestLists, snap.ManifestList)
		mfs, err := t.Manifests(ctx, snap.SnapshotID)
		if err != nil {
			continue
		}
		allManifests = append(allManifests, mfs...)
		for _, mf := range mfs {
			entries, err := t.readManifest(ctx, mf)
			if err != nil {
				continue
			}
			for _, e := range entries {
				allDataFiles = append(allDataFiles, e.DataFile.Path)
			}
		}
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var errs []error
	sem := make(chan struct{}, workers)
	del := func(key string) {
		defer wg.Done()
		sem <- struct{}{}
		defer func() { <-sem }()
		if err := store.Delete(ctx, key); err != nil {
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}
	}

	for _, p := range allDataFiles {
		wg.Add(1)
		go del(p)
	}
	wg.Wait()
	for _, mf := range allManifests {
		wg.Add(1)
		go del(mf.Path)
	}
	wg.Wait()
	for _, ml := range allManifestLists {
		wg.Add(1)
		go del(ml)
	}
	wg.Wait()

	if err := t.Catalog.DropTable(ctx, t.ID); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return icerrors.New(ErrDropFailed, fmt.Sprintf("%d object(s) failed to delete", len(errs)), errs[0])
	}
	return nil
}
