// Package s3 binds the blob.Store gateway to an S3-compatible object store
// using the AWS SDK v2. Presigned URLs are minted with [s3.PresignClient].
//
// A custom Endpoint switches the client to path-style addressing, which makes
// the gateway usable against MinIO and other S3-compatible stores in
// development.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/voxhire/voxhire/pkg/blob"
)

// Config holds the connection parameters for the object store.
type Config struct {
	// Region is the bucket's region. Required.
	Region string

	// Bucket is the bucket every object lives in. Required.
	Bucket string

	// Endpoint optionally overrides the S3 endpoint (MinIO etc.). When set,
	// the client uses path-style addressing.
	Endpoint string

	// AccessKeyID and SecretAccessKey select static credentials. When both
	// are empty the ambient chain (env, shared config, instance role) is
	// used instead.
	AccessKeyID     string
	SecretAccessKey string
}

// Store implements blob.Store on top of S3.
type Store struct {
	client    *awss3.Client
	presigner *awss3.PresignClient
	bucket    string
	log       *slog.Logger
}

// Option customises a Store.
type Option func(*Store)

// WithLogger sets the logger used for best-effort delete failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// New builds a Store from cfg. It loads the ambient AWS configuration, so it
// must only be called at startup.
func New(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	if cfg.Region == "" {
		return nil, errors.New("s3: region must not be empty")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("s3: bucket must not be empty")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("s3: load aws config: %w", err)
	}

	client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	s := &Store{
		client:    client,
		presigner: awss3.NewPresignClient(client),
		bucket:    cfg.Bucket,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// PutObject uploads data under key.
func (s *Store) PutObject(ctx context.Context, key string, data []byte, contentType string) error {
	return s.PutObjectStream(ctx, key, bytes.NewReader(data), int64(len(data)), contentType)
}

// PutObjectStream uploads size bytes read from r under key.
func (s *Store) PutObjectStream(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          r,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("s3: put %s: %w", key, err)
	}
	return nil
}

// PresignPut mints a URL authorizing one PUT of contentType under key.
func (s *Store) PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = blob.DefaultPutTTL
	}
	req, err := s.presigner.PresignPutObject(ctx, &awss3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, awss3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("s3: presign put %s: %w", key, err)
	}
	return req.URL, nil
}

// PresignGet mints a URL authorizing GETs of key.
func (s *Store) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = blob.DefaultGetTTL
	}
	req, err := s.presigner.PresignGetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, awss3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("s3: presign get %s: %w", key, err)
	}
	return req.URL, nil
}

// Head reports whether an object exists under key. A 404 is not an error.
func (s *Store) Head(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("s3: head %s: %w", key, err)
	}
	return true, nil
}

// Delete removes the object under key. Deletes are janitorial: failures are
// logged and swallowed.
func (s *Store) Delete(ctx context.Context, key string) {
	_, err := s.client.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		s.log.Warn("best-effort object delete failed",
			"key", key,
			"error", err)
	}
}

// Ensure Store implements blob.Store at compile time.
var _ blob.Store = (*Store)(nil)
