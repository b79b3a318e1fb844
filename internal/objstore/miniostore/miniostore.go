// Package miniostore is the production objstore.Store backend, writing
// manifests, manifest lists and metadata documents to an S3-compatible
// bucket via minio-go.
package miniostore

import (
	"bytes"
	"context"
	"io"

	icerrors "github.com/TFMV/icecore/pkg/errors"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var (
	ErrPutFailed    = icerrors.MustNewCode("miniostore.put_failed")
	ErrGetFailed    = icerrors.MustNewCode("miniostore.get_failed")
	ErrDeleteFailed = icerrors.MustNewCode("miniostore.delete_failed")
	ErrListFailed   = icerrors.MustNewCode("miniostore.list_failed")
)

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type Store struct {
	client *minio.Client
	bucket string
}

func New(cfg Config) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, icerrors.New(ErrPutFailed, "create minio client", err)
	}
	return &Store{client: client, bucket: cfg.Bucket}, nil
}

// EnsureBucket creates the configured bucket if it does not already exist.
func (s *Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return icerrors.New(ErrPutFailed, "check bucket existence", err).AddContext("bucket", s.bucket)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return icerrors.New(ErrPutFailed, "create bucket", err).AddContext("bucket", s.bucket)
	}
	return nil
}

func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return icerrors.New(ErrPutFailed, "put object", err).AddContext("key", key)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, icerrors.New(ErrGetFailed, "get object", err).AddContext("key", key)
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, icerrors.New(ErrGetFailed, "read object", err).AddContext("key", key)
	}
	return data, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return icerrors.New(ErrDeleteFailed, "delete object", err).AddContext("key", key)
	}
	return nil
}

func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, icerrors.New(ErrListFailed, "list objects", obj.Err).AddContext("prefix", prefix)
		}
		keys = append(keys, obj.Key)
	}
	return keys, nil
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" || errResp.Code == "NotFound" {
			return false, nil
		}
		return false, icerrors.New(ErrGetFailed, "stat object", err).AddContext("key", key)
	}
	return true, nil
}
