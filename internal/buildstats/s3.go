package buildstats

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"

	"github.com/fluxbase-eu/buildtrace/internal/config"
)

// S3Store keeps the snapshot as an object in S3-compatible storage (AWS S3, MinIO, etc.)
type S3Store struct {
	client *minio.Client
	bucket string
	key    string
	region string
}

// NewS3Store creates an S3-compatible snapshot store. The object key is the
// configured prefix joined with file.
func NewS3Store(cfg config.S3Config, file string) (*S3Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}

	log.Debug().
		Str("endpoint", cfg.Endpoint).
		Str("bucket", cfg.Bucket).
		Bool("ssl", cfg.UseSSL).
		Msg("S3 build stats store initialized")

	return &S3Store{
		client: client,
		bucket: cfg.Bucket,
		key:    objectKey(cfg.Prefix, file),
		region: cfg.Region,
	}, nil
}

func objectKey(prefix, file string) string {
	if prefix == "" {
		return file
	}
	return path.Join(prefix, file)
}

// Read implements Store
func (s *S3Store) Read(ctx context.Context) (*Snapshot, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.key, minio.GetObjectOptions{})
	if err != nil {
		return nil, s.readError(err)
	}
	defer func() { _ = obj.Close() }()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, s.readError(err)
	}
	return Decode(data)
}

func (s *S3Store) readError(err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return fmt.Errorf("%w: %s", ErrNotFound, s.Location())
	}
	return fmt.Errorf("failed to read build stats from S3: %w", err)
}

// Write implements Store. The bucket is created when it does not exist.
func (s *S3Store) Write(ctx context.Context, snap *Snapshot) error {
	data, err := Encode(snap)
	if err != nil {
		return err
	}

	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
		log.Info().Str("bucket", s.bucket).Msg("Build stats bucket created")
	}

	_, err = s.client.PutObject(ctx, s.bucket, s.key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("failed to upload build stats to S3: %w", err)
	}

	log.Debug().Str("bucket", s.bucket).Str("key", s.key).Msg("Build stats uploaded to S3")
	return nil
}

// Delete implements Store
func (s *S3Store) Delete(ctx context.Context) error {
	err := s.client.RemoveObject(ctx, s.bucket, s.key, minio.RemoveObjectOptions{})
	if err != nil && minio.ToErrorResponse(err).Code != "NoSuchBucket" {
		return fmt.Errorf("failed to delete build stats from S3: %w", err)
	}
	return nil
}

// Location implements Store
func (s *S3Store) Location() string {
	return "s3://" + s.bucket + "/" + s.key
}

// Close implements Store
func (s *S3Store) Close() error {
	return nil
}
