package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog/log"
)

// S3API is the part of the S3 client the sink needs.
type S3API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// ObjectUploader uploads a single object. *manager.Uploader satisfies it.
type ObjectUploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Sink stores assembled PDFs in S3 under s3://bucket/key destinations.
type S3Sink struct {
	client   S3API
	uploader ObjectUploader
}

// NewS3Sink builds a sink from the default AWS credential chain. An empty
// region keeps whatever the chain resolves.
func NewS3Sink(ctx context.Context, region string) (*S3Sink, error) {
	var opts []func(*awscfg.LoadOptions) error
	if region != "" {
		opts = append(opts, awscfg.WithRegion(region))
	}
	cfg, err := awscfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	cli := s3.NewFromConfig(cfg)
	return NewS3SinkWithClient(cli, manager.NewUploader(cli)), nil
}

// NewS3SinkWithClient wires explicit clients, mainly for tests.
func NewS3SinkWithClient(client S3API, uploader ObjectUploader) *S3Sink {
	return &S3Sink{client: client, uploader: uploader}
}

// ParseURL splits s3://bucket/key.
func ParseURL(s3url string) (bucket, key string, err error) {
	path := strings.TrimPrefix(s3url, "s3://")
	if path == s3url {
		return "", "", fmt.Errorf("invalid s3 url: %s", s3url)
	}
	slash := strings.Index(path, "/")
	if slash <= 0 || slash == len(path)-1 {
		return "", "", fmt.Errorf("invalid s3 url: %s", s3url)
	}
	return path[:slash], path[slash+1:], nil
}

// Exists reports whether the object behind dest is present.
func (s *S3Sink) Exists(ctx context.Context, dest string) (bool, error) {
	bucket, key, err := ParseURL(dest)
	if err != nil {
		return false, err
	}
	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	var nf *s3types.NotFound
	if errors.As(err, &nf) {
		return false, nil
	}
	return false, fmt.Errorf("failed to check S3 object: %w", err)
}

// Put uploads r to dest as application/pdf.
func (s *S3Sink) Put(ctx context.Context, dest string, r io.Reader, size int64) error {
	bucket, key, err := ParseURL(dest)
	if err != nil {
		return err
	}
	out, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        r,
		ContentType: aws.String("application/pdf"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}
	log.Info().
		Str("bucket", bucket).
		Str("key", key).
		Int64("size", size).
		Str("location", out.Location).
		Msg("uploaded PDF to S3")
	return nil
}
