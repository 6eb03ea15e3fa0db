// Package minio persists shard files to S3-compatible object storage so a
// sharding run on one machine can feed featurization jobs elsewhere.
package minio

import (
	"context"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/turtacn/ChemPrep/internal/config"
	"github.com/turtacn/ChemPrep/internal/logging"
	"github.com/turtacn/ChemPrep/pkg/errors"
)

// MinIOAPI is the slice of the minio-go client the shard store uses, kept as
// an interface so tests can substitute a fake without a live server.
type MinIOAPI interface {
	ListBuckets(ctx context.Context) ([]minio.BucketInfo, error)
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	FPutObject(ctx context.Context, bucketName, objectName, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	FGetObject(ctx context.Context, bucketName, objectName, filePath string, opts minio.GetObjectOptions) error
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

// ShardStore uploads and retrieves shard files in a single bucket.  It
// satisfies the sharder's Uploader contract.
type ShardStore struct {
	client MinIOAPI
	bucket string
	logger logging.Logger
}

// NewShardStore connects to the configured endpoint, verifies reachability,
// and ensures the shard bucket exists.
func NewShardStore(cfg config.StorageConfig, log logging.Logger) (*ShardStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "failed to create object storage client")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := client.ListBuckets(ctx); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeExternalService, "failed to connect to object storage").
			WithDetail(cfg.Endpoint)
	}

	store := &ShardStore{client: client, bucket: cfg.Bucket, logger: log.Named("shardstore")}
	if err := store.ensureBucket(ctx); err != nil {
		return nil, err
	}

	log.Info("object storage connected",
		logging.String("endpoint", cfg.Endpoint),
		logging.String("bucket", cfg.Bucket),
		logging.Bool("ssl", cfg.UseSSL))
	return store, nil
}

// NewShardStoreWithClient wires a store around an existing API client.
// Tests use this to inject fakes.
func NewShardStoreWithClient(client MinIOAPI, bucket string, log logging.Logger) *ShardStore {
	return &ShardStore{client: client, bucket: bucket, logger: log.Named("shardstore")}
}

func (s *ShardStore) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService, "failed to check shard bucket").WithDetail(s.bucket)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService, "failed to create shard bucket").WithDetail(s.bucket)
	}
	s.logger.Info("created shard bucket", logging.String("bucket", s.bucket))
	return nil
}

// contentTypeFor maps a shard filename to an upload content type.
func contentTypeFor(objectName string) string {
	if strings.HasSuffix(objectName, ".gz") {
		return "application/gzip"
	}
	if strings.HasSuffix(objectName, ".sdf") {
		return "chemical/x-mdl-sdfile"
	}
	return "application/octet-stream"
}

// UploadFile pushes a local shard file into the bucket under objectName.
func (s *ShardStore) UploadFile(ctx context.Context, localPath, objectName string) error {
	info, err := s.client.FPutObject(ctx, s.bucket, objectName, localPath, minio.PutObjectOptions{
		ContentType: contentTypeFor(objectName),
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeShardUploadFailed, "failed to upload shard object").
			WithDetail(objectName)
	}
	s.logger.Debug("uploaded shard",
		logging.String("object", objectName),
		logging.Int64("bytes", info.Size))
	return nil
}

// Download fetches a shard object into localPath.
func (s *ShardStore) Download(ctx context.Context, objectName, localPath string) error {
	if err := s.client.FGetObject(ctx, s.bucket, objectName, localPath, minio.GetObjectOptions{}); err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService, "failed to download shard object").
			WithDetail(objectName)
	}
	return nil
}

// ListShards returns the object names in the bucket that carry the given
// shard prefix.
func (s *ShardStore) ListShards(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, errors.Wrap(obj.Err, errors.ErrCodeExternalService, "failed to list shard objects")
		}
		names = append(names, obj.Key)
	}
	return names, nil
}

// Remove deletes a shard object.
func (s *ShardStore) Remove(ctx context.Context, objectName string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, objectName, minio.RemoveObjectOptions{}); err != nil {
		return errors.Wrap(err, errors.ErrCodeExternalService, "failed to remove shard object").
			WithDetail(objectName)
	}
	return nil
}

// HealthCheck reports reachability and round-trip latency.
func (s *ShardStore) HealthCheck(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	_, err := s.client.ListBuckets(ctx)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeExternalService, "object storage unreachable")
	}
	return time.Since(start), nil
}
