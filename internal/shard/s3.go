package shard

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ppiankov/cxrsect/internal/model"
)

// Uploader is the subset of manager.Uploader used by S3Sink
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// Waiter throttles uploads per bucket; *worker.Limiter satisfies it
type Waiter interface {
	Wait(ctx context.Context, key string) error
}

// S3Sink uploads shards to an S3-compatible bucket
type S3Sink struct {
	uploader Uploader
	bucket   string
	prefix   string
	limiter  Waiter
}

// NewS3Sink creates a sink from configuration. limiter may be nil.
func NewS3Sink(ctx context.Context, cfg model.S3Config, limiter Waiter) (*S3Sink, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(awsCfg, s3Opts...)
	return NewS3SinkWithUploader(manager.NewUploader(client), cfg.Bucket, cfg.Prefix, limiter), nil
}

// NewS3SinkWithUploader creates a sink around an existing uploader
func NewS3SinkWithUploader(uploader Uploader, bucket, prefix string, limiter Waiter) *S3Sink {
	return &S3Sink{
		uploader: uploader,
		bucket:   bucket,
		prefix:   prefix,
		limiter:  limiter,
	}
}

// Key returns the object key for a shard name
func (s *S3Sink) Key(name string) string {
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

// Put uploads data as bucket/prefix/name
func (s *S3Sink) Put(ctx context.Context, name string, data []byte) error {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx, s.bucket); err != nil {
			return fmt.Errorf("s3 rate limit: %w", err)
		}
	}

	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.Key(name)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		return fmt.Errorf("s3 upload: %w", err)
	}
	return nil
}
