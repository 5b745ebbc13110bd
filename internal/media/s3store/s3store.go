// Package s3store keeps uploads in an S3-compatible bucket such as MinIO.
package s3store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/Upendra-HQ/professional-backend-code/internal/media"
)

const providerName = "s3"

// Config describes the bucket and how to reach it.
type Config struct {
	Region    string
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	// PublicBaseURL is the origin objects are served from, without the key.
	PublicBaseURL string
	// PathStyle is required by MinIO and most self-hosted gateways.
	PathStyle bool
}

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Store implements media.Host.
type Store struct {
	client  objectPutter
	bucket  string
	baseURL string
	logger  *slog.Logger
}

// New loads the AWS configuration with static credentials and builds a Store.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	if cfg.Bucket == "" || cfg.PublicBaseURL == "" {
		return nil, fmt.Errorf("s3store: bucket and public base url are required")
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("s3store: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	})

	return newStore(client, cfg.Bucket, cfg.PublicBaseURL, logger), nil
}

func newStore(client objectPutter, bucket, baseURL string, logger *slog.Logger) *Store {
	return &Store{
		client:  client,
		bucket:  bucket,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// Store writes f under a fresh key and returns its public URL.
func (s *Store) Store(ctx context.Context, f *media.File) (*media.Stored, error) {
	if err := media.Validate(f); err != nil {
		return nil, media.Failed(providerName, err)
	}

	key := media.ObjectKey(f)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          f.Body,
		ContentType:   aws.String(f.ContentType),
		ContentLength: aws.Int64(f.Size),
	})
	if err != nil {
		return nil, media.Failed(providerName, fmt.Errorf("put object %s: %w", key, err))
	}

	s.logger.DebugContext(ctx, "media uploaded",
		slog.String("provider", providerName),
		slog.String("key", key),
	)
	return &media.Stored{URL: s.baseURL + "/" + key, PublicID: key}, nil
}

var _ media.Host = (*Store)(nil)
