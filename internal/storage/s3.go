package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/mkravets/digital-store/internal/config"
)

// Signer issues time-limited URLs against object storage. Raw object keys are
// never handed to clients; every signed URL carries its own expiry.
type Signer interface {
	PresignDownload(ctx context.Context, key, filename string, expires time.Duration) (string, error)
	PresignUpload(ctx context.Context, key, contentType string, expires time.Duration) (string, error)
}

// S3 talks to any S3-compatible store (AWS, MinIO, Cloudflare R2).
type S3 struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
}

func NewS3(ctx context.Context, cfg *config.Config) (*S3, error) {
	if cfg.S3_BUCKET == "" {
		return nil, fmt.Errorf("storage: S3_BUCKET is not configured")
	}

	opts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.S3_REGION),
	}
	if cfg.S3_KEY != "" && cfg.S3_SECRET != "" {
		opts = append(opts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3_KEY, cfg.S3_SECRET, ""),
		))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage: load aws config: %w", err)
	}

	clientOpts := []func(*s3.Options){}
	if cfg.S3_ENDPOINT != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.S3_ENDPOINT)
			o.UsePathStyle = true // required for MinIO
		})
	}

	client := s3.NewFromConfig(awsCfg, clientOpts...)
	return &S3{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  cfg.S3_BUCKET,
	}, nil
}

func (s *S3) PresignDownload(ctx context.Context, key, filename string, expires time.Duration) (string, error) {
	out, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket:                     aws.String(s.bucket),
		Key:                        aws.String(key),
		ResponseContentDisposition: aws.String(fmt.Sprintf("attachment; filename=%q", filename)),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", fmt.Errorf("storage: presign get %s: %w", key, err)
	}
	return out.URL, nil
}

func (s *S3) PresignUpload(ctx context.Context, key, contentType string, expires time.Duration) (string, error) {
	out, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", fmt.Errorf("storage: presign put %s: %w", key, err)
	}
	return out.URL, nil
}
