package ingest

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// objectGetter is the subset of the S3 client used by S3Source.
type objectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source reads a corridor CSV stored as an S3 object.
type S3Source struct {
	client objectGetter
	bucket string
	key    string
}

// NewS3Source loads the default AWS configuration (environment, shared
// config, instance role) and creates a source for s3://bucket/key.
func NewS3Source(ctx context.Context, bucket, key string) (*S3Source, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return newS3Source(s3.NewFromConfig(cfg), bucket, key), nil
}

func newS3Source(client objectGetter, bucket, key string) *S3Source {
	return &S3Source{client: client, bucket: bucket, key: key}
}

// Name returns the object URI.
func (s *S3Source) Name() string {
	return "s3://" + s.bucket + "/" + s.key
}

// Rows downloads and parses the object.
func (s *S3Source) Rows(ctx context.Context) ([]Row, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", s.Name(), err)
	}
	defer out.Body.Close()
	return readCSV(ctx, out.Body)
}

// Close is a no-op; the S3 client holds no long-lived connections of its own.
func (s *S3Source) Close() error { return nil }
