// Package storage presigns object-storage requests for uploaded files.
// Clients move file contents directly to and from the bucket; the server only
// hands out short-lived URLs.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignDeleteObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignDeleteObject(ctx, in, optFns...)
	}
)

// Presigner hands out URLs for one object.
type Presigner interface {
	PresignPut(ctx context.Context, key, contentType string, size int64) (string, error)
	PresignDelete(ctx context.Context, key string) (string, error)
}

// S3Options describe an S3-compatible endpoint.
type S3Options struct {
	User     string
	Password string
	Bucket   string
	Region   string
	Endpoint string
	Expiry   time.Duration
}

type S3Storage struct {
	bucket  string
	expiry  time.Duration
	presign *s3.PresignClient
}

var _ Presigner = (*S3Storage)(nil)

// NewS3Storage builds a presigner with static credentials and path-style
// addressing, which S3-compatible servers such as MinIO expect.
func NewS3Storage(ctx context.Context, o S3Options) (*S3Storage, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(o.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(o.User, o.Password, "")),
	)
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(so *s3.Options) {
		if o.Endpoint != "" {
			so.BaseEndpoint = aws.String(o.Endpoint)
		}
		so.UsePathStyle = true
	})

	expiry := o.Expiry
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}

	return &S3Storage{bucket: o.Bucket, expiry: expiry, presign: newS3PresignClient(client)}, nil
}

// NewStorageKey returns a fresh object key, bucketed by day.
func NewStorageKey(now time.Time) string {
	return fmt.Sprintf("uploads/%d/%02d/%02d/%s", now.Year(), now.Month(), now.Day(), uuid.NewString())
}

func (s *S3Storage) PresignPut(ctx context.Context, key, contentType string, size int64) (string, error) {
	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	if size > 0 {
		in.ContentLength = aws.Int64(size)
	}

	req, err := presignPutObject(s.presign, ctx, in, s3.WithPresignExpires(s.expiry))
	if err != nil {
		return "", fmt.Errorf("presign put %s: %w", key, err)
	}
	return req.URL, nil
}

func (s *S3Storage) PresignDelete(ctx context.Context, key string) (string, error) {
	req, err := presignDeleteObject(s.presign, ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.expiry))
	if err != nil {
		return "", fmt.Errorf("presign delete %s: %w", key, err)
	}
	return req.URL, nil
}
