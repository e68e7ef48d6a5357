package blob

import (
	"bytes"
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Client is the subset of the AWS S3 API used by S3Storage. Narrowed for
// mockability in tests.
type S3Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Storage stores payloads in an S3 or S3-compatible bucket.
type S3Storage struct {
	client S3Client
	bucket string
}

// S3Option configures S3Storage construction.
type S3Option func(*s3Options)

type s3Options struct {
	client S3Client
}

// WithS3Client injects a pre-configured client, mainly for tests.
func WithS3Client(client S3Client) S3Option {
	return func(o *s3Options) { o.client = client }
}

// NewS3Storage creates an S3-backed storage for the configured bucket.
func NewS3Storage(ctx context.Context, cfg Config, opts ...S3Option) (*S3Storage, error) {
	if cfg.Bucket == "" || cfg.Region == "" {
		return nil, ErrInvalidConfig
	}

	var o s3Options
	for _, opt := range opts {
		opt(&o)
	}
	if o.client != nil {
		return &S3Storage{client: o.client, bucket: cfg.Bucket}, nil
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Storage{client: client, bucket: cfg.Bucket}, nil
}

func (s *S3Storage) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if key == "" {
		return ErrInvalidKey
	}
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return errors.Join(ErrFailedToPut, err)
	}
	return nil
}
