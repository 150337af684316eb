package uploads

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"bookmarker/internal/config"
)

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
)

// Signer hands out presigned PUT urls for profile pictures
type Signer struct {
	presign *s3.PresignClient
	bucket  string
	ttl     time.Duration
	now     func() time.Time
}

func New(ctx context.Context, cfg *config.S3Config) (*Signer, error) {
	const op = "uploads.New"

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return &Signer{
		presign: s3.NewPresignClient(client),
		bucket:  cfg.Bucket,
		ttl:     cfg.PresignTTL,
		now:     time.Now,
	}, nil
}

// StorageKey returns a fresh object key under users/yyyy/mm/dd
func (s *Signer) StorageKey() string {
	d := s.now().UTC()
	return fmt.Sprintf("users/%d/%02d/%02d/%s", d.Year(), d.Month(), d.Day(), uuid.NewString())
}

func (s *Signer) PresignedPutURL(ctx context.Context) (string, string, error) {
	const op = "uploads.PresignedPutURL"

	key := s.StorageKey()
	req, err := presignPutObject(s.presign, ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.ttl))
	if err != nil {
		return "", "", fmt.Errorf("%s: %w", op, err)
	}
	return key, req.URL, nil
}
