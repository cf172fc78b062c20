package docstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"
)

// S3API is the subset of the S3 client used by the store.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// s3Store keeps one object per document. The object ETag is the version and
// writes use conditional PUT (If-Match / If-None-Match).
type s3Store struct {
	client S3API
	bucket string
	prefix string
	logger zerolog.Logger
}

// NewS3Client loads the default AWS configuration for region.
func NewS3Client(ctx context.Context, region string) (*s3.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	return s3.NewFromConfig(cfg), nil
}

// NewS3Store creates an S3-backed store. Object keys are prefix + key + ".json".
func NewS3Store(client S3API, bucket, prefix string, logger zerolog.Logger) Store {
	logger = logger.With().Str("component", "s3-store").Logger()
	logger.Info().
		Str("bucket", bucket).
		Str("prefix", prefix).
		Msg("S3 store initialised")

	return &s3Store{
		client: client,
		bucket: bucket,
		prefix: prefix,
		logger: logger,
	}
}

func (s *s3Store) objectKey(key string) string {
	return s.prefix + key + ".json"
}

// Get downloads the object and returns its ETag as version.
func (s *s3Store) Get(ctx context.Context, key string) (Document, error) {
	objectKey := s.objectKey(key)

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return Document{}, ErrNotFound
		}
		s.logger.Error().
			Err(err).
			Str("bucket", s.bucket).
			Str("key", objectKey).
			Msg("failed to get object from S3")
		return Document{}, fmt.Errorf("failed to get object from S3 (bucket=%s, key=%s): %w", s.bucket, objectKey, err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return Document{}, fmt.Errorf("failed to read S3 object %s: %w", objectKey, err)
	}

	return Document{Value: data, Version: aws.ToString(result.ETag)}, nil
}

// PutIfVersion uploads the object conditionally on the ETag read earlier.
func (s *s3Store) PutIfVersion(ctx context.Context, key string, value []byte, version string) (string, error) {
	objectKey := s.objectKey(key)

	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader(value),
		ContentType: aws.String("application/json"),
	}
	if version == "" {
		input.IfNoneMatch = aws.String("*")
	} else {
		input.IfMatch = aws.String(version)
	}

	out, err := s.client.PutObject(ctx, input)
	if err != nil {
		if isPreconditionFailure(err) {
			s.logger.Debug().Str("key", objectKey).Str("version", version).Msg("document version conflict")
			return "", ErrVersionConflict
		}
		s.logger.Error().
			Err(err).
			Str("bucket", s.bucket).
			Str("key", objectKey).
			Msg("failed to put object to S3")
		return "", fmt.Errorf("failed to put object to S3 (bucket=%s, key=%s): %w", s.bucket, objectKey, err)
	}

	return aws.ToString(out.ETag), nil
}

// Close is a no-op.
func (s *s3Store) Close() error {
	return nil
}

// isPreconditionFailure reports whether S3 rejected a conditional write.
func isPreconditionFailure(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.ErrorCode() {
	case "PreconditionFailed", "ConditionalRequestConflict":
		return true
	}
	return false
}
