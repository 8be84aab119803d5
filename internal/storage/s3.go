package storage

import (
	"bytes"
	"context"
	"fmt"

	"skyrating/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"
)

// Uploader stores an object under key.
type Uploader interface {
	Upload(ctx context.Context, key string, body []byte) error
}

type S3Uploader struct {
	client *s3.Client
	bucket string
	logger zerolog.Logger
}

// NewUploader returns an S3 uploader, or nil when no bucket is configured.
func NewUploader(cfg *config.Config, logger zerolog.Logger) Uploader {
	if cfg.HistoryBucket == "" {
		logger.Info().Msg("history bucket not set, history upload disabled")
		return nil
	}

	awsCfg := aws.Config{
		Region: cfg.HistoryBucketRegion,
		Credentials: aws.NewCredentialsCache(
			credentials.NewStaticCredentialsProvider(
				cfg.HistoryBucketKey,
				cfg.HistoryBucketSecret,
				"",
			),
		),
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.HistoryBucketEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.HistoryBucketEndpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Uploader{client: client, bucket: cfg.HistoryBucket, logger: logger}
}

func (u *S3Uploader) Upload(ctx context.Context, key string, body []byte) error {
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("text/plain; charset=utf-8"),
		ACL:         types.ObjectCannedACLPrivate,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s to S3 bucket: %w", key, err)
	}
	u.logger.Debug().Str("key", key).Int("bytes", len(body)).Msg("object uploaded")
	return nil
}
