package miniostore_test

import (
	"context"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/TFMV/icecore/internal/objstore/miniostore"
	"github.com/johannesboyne/gofakes3"
	"github.com/johannesboyne/gofakes3/backend/s3mem"
	"github.com/stretchr/testify/require"
)

// newFakeServer spins up an in-process S3-compatible server so the minio
// client path gets exercised without a real bucket.
func newFakeServer(t *testing.T) string {
	t.Helper()
	backend := s3mem.New()
	faker := gofakes3.New(backend)
	srv := httptest.NewServer(faker.Server())
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	return u.Host
}

func TestStore_PutGetDeleteRoundTrip(t *testing.T) {
	ctx := context.Background()
	endpoint := newFakeServer(t)

	store, err := miniostore.New(miniostore.Config{
		Endpoint:  endpoint,
		AccessKey: "fake",
		SecretKey: "fake",
		Bucket:    "icecore-test",
		UseSSL:    false,
	})
	require.NoError(t, err)
	require.NoError(t, store.EnsureBucket(ctx))

	require.NoError(t, store.Put(ctx, "manifests/m1.avro", []byte("hello manifest")))

	exists, err := store.Exists(ctx, "manifests/m1.avro")
	require.NoError(t, err)
	require.True(t, exists)

	got, err := store.Get(ctx, "manifests/m1.avro")
	require.NoError(t, err)
	require.Equal(t, "hello manifest", string(got))

	keys, err := store.List(ctx, "manifests/")
	require.NoError(t, err)
	require.Contains(t, keys, "manifests/m1.avro")

	require.NoError(t, store.Delete(ctx, "manifests/m1.avro"))
	exists, err = store.Exists(ctx, "manifests/m1.avro")
	require.NoError(t, err)
	require.False(t, exists)
}
