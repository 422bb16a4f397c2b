package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/platinummonkey/docvault/pkg/storage")

// maxDeleteBatch is the DeleteObjects per-request key limit.
const maxDeleteBatch = 1000

// s3API is the subset of the S3 client the blob store calls.
type s3API interface {
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3BlobStore removes document objects from an S3 compatible bucket.
type S3BlobStore struct {
	client s3API
	bucket string
}

// NewS3BlobStore creates an S3 blob store from cfg. Static credentials are
// used when both keys are set, otherwise the default AWS credential chain.
func NewS3BlobStore(ctx context.Context, cfg Config) (*S3BlobStore, error) {
	if cfg.S3Bucket == "" {
		return nil, errors.New("storage: s3 bucket is required")
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.S3Region)}
	if cfg.S3AccessKey != "" && cfg.S3SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		}
		o.UsePathStyle = cfg.S3UsePathStyle
	})

	return newS3BlobStore(client, cfg.S3Bucket), nil
}

func newS3BlobStore(client s3API, bucket string) *S3BlobStore {
	return &S3BlobStore{client: client, bucket: bucket}
}

// Backend implements BlobStore
func (s *S3BlobStore) Backend() string { return BackendS3 }

// Remove deletes the given keys in batches. S3 treats missing keys as
// deleted, so only per-key errors reported by the service fail the call.
func (s *S3BlobStore) Remove(ctx context.Context, paths ...string) error {
	ctx, span := tracer.Start(ctx, "S3.DeleteObjects",
		trace.WithAttributes(
			attribute.String("s3.operation", "DeleteObjects"),
			attribute.String("s3.bucket", s.bucket),
			attribute.Int("s3.key_count", len(paths)),
		),
	)
	defer span.End()

	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			span.SetStatus(codes.Error, "empty key")
			return ErrInvalidPath
		}
	}

	var errs []error
	for start := 0; start < len(paths); start += maxDeleteBatch {
		end := min(start+maxDeleteBatch, len(paths))
		objects := make([]types.ObjectIdentifier, 0, end-start)
		for _, p := range paths[start:end] {
			objects = append(objects, types.ObjectIdentifier{Key: aws.String(p)})
		}

		out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{Objects: objects, Quiet: aws.Bool(true)},
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to delete objects")
			return fmt.Errorf("failed to delete objects from s3: %w", err)
		}
		for _, e := range out.Errors {
			errs = append(errs, fmt.Errorf("s3 delete %s: %s %s",
				aws.ToString(e.Key), aws.ToString(e.Code), aws.ToString(e.Message)))
		}
	}

	if err := errors.Join(errs...); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "some objects were not deleted")
		return err
	}
	span.SetStatus(codes.Ok, "objects deleted")
	return nil
}

// HealthCheck verifies S3 connectivity
func (s *S3BlobStore) HealthCheck(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return fmt.Errorf("s3 health check failed: %w", err)
	}
	return nil
}
