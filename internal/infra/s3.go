package infra

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/chrisconley/couponfeat/specs"
)

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

func newS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// UploadingSink copies every file written by a file sink to an S3 bucket
// under Prefix and records the object URL in the receipt.
type UploadingSink struct {
	sink   Sink
	client s3Client
	bucket string
	prefix string
}

func NewUploadingSink(sink Sink, client s3Client, bucket, prefix string) *UploadingSink {
	return &UploadingSink{sink: sink, client: client, bucket: bucket, prefix: prefix}
}

func (u *UploadingSink) Write(ctx context.Context, table specs.FeatureTableSpec) (specs.WriteReceiptSpec, error) {
	r, err := u.sink.Write(ctx, table)
	if err != nil {
		return specs.WriteReceiptSpec{}, err
	}

	f, err := os.Open(r.Location)
	if err != nil {
		return specs.WriteReceiptSpec{}, fmt.Errorf("open for upload: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return specs.WriteReceiptSpec{}, fmt.Errorf("stat for upload: %w", err)
	}

	key := path.Join(u.prefix, filepath.Base(r.Location))
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(stat.Size()),
	})
	if err != nil {
		return specs.WriteReceiptSpec{}, fmt.Errorf("upload to s3: %w", err)
	}

	r.RemoteLocation = fmt.Sprintf("s3://%s/%s", u.bucket, key)
	return r, nil
}
