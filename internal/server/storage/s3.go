package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/djamrezki/storage-stream-api/internal/common"
)

// S3Config holds connection settings for an S3-compatible backend
// (AWS or MinIO).
type S3Config struct {
	User         string // MINIO_ROOT_USER / access key id
	Password     string // MINIO_ROOT_PASSWORD / secret access key
	Bucket       string
	Region       string
	BaseEndpoint string
}

// S3Store implements Store against an S3-compatible object store. Uploads
// stream through the SDK's upload manager, so payloads of unknown length
// are written without buffering them in full.
type S3Store struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
}

// loadDefaultAWSConfig is a seam for testing.
var loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

// NewS3Store builds a client for the configured endpoint and bucket.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	awsCfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.User,
			cfg.Password,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   cfg.Bucket,
	}, nil
}

func (s *S3Store) Save(ctx context.Context, r io.Reader, hints SaveHints) (SaveResult, error) {
	key := NewKey(hints.OwnerID)

	input := &s3.PutObjectInput{
		Bucket:   aws.String(s.bucket),
		Key:      aws.String(key),
		Body:     r,
		Metadata: hints.Metadata,
	}
	if hints.ContentTypeHint != "" {
		input.ContentType = aws.String(hints.ContentTypeHint)
	}

	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return SaveResult{}, fmt.Errorf("s3 upload: %w", err)
	}

	// The upload manager does not report a byte count; the pipeline uses
	// its own tee-observed size instead.
	return SaveResult{Key: key, Size: -1}, nil
}

func (s *S3Store) Open(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, 0, common.ErrNotFound
		}
		return nil, 0, fmt.Errorf("s3 get: %w", err)
	}
	return out.Body, aws.ToInt64(out.ContentLength), nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	// S3 DeleteObject succeeds for absent keys, which gives us idempotency
	// for free.
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 delete: %w", err)
	}
	return nil
}
