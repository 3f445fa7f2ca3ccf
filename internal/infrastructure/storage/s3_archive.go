// Package storage archives sync attempts to S3-compatible object storage.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	domain "github.com/erp/ordersync/internal/domain/ordersync"
	infraconfig "github.com/erp/ordersync/internal/infrastructure/config"
	"go.uber.org/zap"
)

const (
	defaultRegion    = "us-east-1"
	defaultKeyPrefix = "ordersync"
	keyTimeLayout    = "20060102T150405.000000000Z"
	jsonContentType  = "application/json"
)

// objectAPI is the subset of the S3 client the archive uses
type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, opts ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, in *s3.CreateBucketInput, opts ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
}

// S3PayloadArchive writes each sync attempt as one JSON object
type S3PayloadArchive struct {
	client    objectAPI
	bucket    string
	keyPrefix string
	logger    *zap.Logger
}

var _ domain.PayloadArchive = (*S3PayloadArchive)(nil)

// S3PayloadArchiveOption is a functional option for configuring S3PayloadArchive
type S3PayloadArchiveOption func(*S3PayloadArchive)

// WithLogger sets a custom logger
func WithLogger(logger *zap.Logger) S3PayloadArchiveOption {
	return func(a *S3PayloadArchive) {
		a.logger = logger
	}
}

// NewS3PayloadArchive builds an archive from configuration. Any S3-compatible
// backend works; set Endpoint and UsePathStyle for MinIO-style servers.
func NewS3PayloadArchive(ctx context.Context, cfg *infraconfig.ArchiveConfig, opts ...S3PayloadArchiveOption) (*S3PayloadArchive, error) {
	if cfg == nil {
		return nil, errors.New("archive configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("archive bucket is required")
	}
	if (cfg.AccessKey == "") != (cfg.SecretKey == "") {
		return nil, errors.New("archive access key and secret key must be set together")
	}

	region := cfg.Region
	if region == "" {
		region = defaultRegion
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	endpoint := normalizeEndpoint(cfg.Endpoint, cfg.UseSSL)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	return newS3PayloadArchive(client, cfg.Bucket, cfg.KeyPrefix, opts...), nil
}

func newS3PayloadArchive(client objectAPI, bucket, keyPrefix string, opts ...S3PayloadArchiveOption) *S3PayloadArchive {
	keyPrefix = strings.Trim(keyPrefix, "/")
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	a := &S3PayloadArchive{
		client:    client,
		bucket:    bucket,
		keyPrefix: keyPrefix,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func normalizeEndpoint(endpoint string, useSSL bool) string {
	if endpoint == "" {
		return ""
	}
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	if useSSL {
		return "https://" + endpoint
	}
	return "http://" + endpoint
}

// ObjectKey returns {prefix}/{orderID}/{timestamp}.json for an entry
func (a *S3PayloadArchive) ObjectKey(entry *domain.ArchiveEntry) string {
	orderID := strings.ReplaceAll(entry.OrderID, "/", "_")
	return path.Join(a.keyPrefix, orderID, entry.AttemptedAt.UTC().Format(keyTimeLayout)+".json")
}

// Archive stores the entry as JSON
func (a *S3PayloadArchive) Archive(ctx context.Context, entry *domain.ArchiveEntry) error {
	if entry == nil || entry.OrderID == "" {
		return errors.New("archive entry requires an order ID")
	}

	body, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode archive entry: %w", err)
	}

	key := a.ObjectKey(entry)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   aws.String(jsonContentType),
		Metadata: map[string]string{
			"order-id":     entry.OrderID,
			"external-ref": entry.ExternalRef,
			"sync-state":   string(entry.State),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to archive order %s: %w", entry.OrderID, err)
	}

	a.logger.Debug("Archived sync attempt",
		zap.String("order_id", entry.OrderID),
		zap.String("key", key),
	)
	return nil
}

// EnsureBucket creates the bucket if it doesn't exist
func (a *S3PayloadArchive) EnsureBucket(ctx context.Context) error {
	_, err := a.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(a.bucket)})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	a.logger.Info("Creating archive bucket", zap.String("bucket", a.bucket))
	_, err = a.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(a.bucket)})
	if err != nil {
		var alreadyOwned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &alreadyOwned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// Bucket returns the bucket name
func (a *S3PayloadArchive) Bucket() string {
	return a.bucket
}
