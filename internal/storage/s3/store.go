// Package s3 implements the package store on any S3-compatible backend.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/packseal/packseal/internal/config"
	"github.com/packseal/packseal/internal/storage"
)

// Object metadata keys carrying the sealed package info. The derived key is
// deliberately absent from this list.
const (
	metaSalt        = "packseal-salt"
	metaFingerprint = "packseal-fingerprint"
	metaCreatedAt   = "packseal-created-at"
)

// Store implements storage.Store over an S3 bucket.
type Store struct {
	client *s3.Client
	bucket string
	prefix string
}

// New creates a package store from the remote configuration. A custom
// endpoint makes any S3-compatible backend usable.
func New(ctx context.Context, cfg *config.RemoteConfig) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("remote bucket is not configured")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &Store{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

func (s *Store) objectKey(name string) string {
	return path.Join(s.prefix, name)
}

// Put uploads a sealed package with its salt and fingerprint as object
// metadata.
func (s *Store) Put(ctx context.Context, name string, body io.Reader, info storage.PackageInfo) error {
	createdAt := info.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(name)),
		Body:   body,
		Metadata: map[string]string{
			metaSalt:        info.Salt,
			metaFingerprint: info.Fingerprint,
			metaCreatedAt:   strconv.FormatInt(createdAt.Unix(), 10),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to put package %s: %w", name, err)
	}
	return nil
}

// Get retrieves a sealed package body and its info.
func (s *Store) Get(ctx context.Context, name string) (io.ReadCloser, storage.PackageInfo, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(name)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, storage.PackageInfo{}, storage.ErrNotFound
		}
		return nil, storage.PackageInfo{}, fmt.Errorf("failed to get package %s: %w", name, err)
	}

	info := storage.PackageInfo{
		Name:        name,
		Salt:        out.Metadata[metaSalt],
		Fingerprint: out.Metadata[metaFingerprint],
		Size:        aws.ToInt64(out.ContentLength),
	}
	if raw, ok := out.Metadata[metaCreatedAt]; ok {
		if unix, err := strconv.ParseInt(raw, 10, 64); err == nil {
			info.CreatedAt = time.Unix(unix, 0).UTC()
		}
	}

	return out.Body, info, nil
}

// Delete removes a sealed package.
func (s *Store) Delete(ctx context.Context, name string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(name)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete package %s: %w", name, err)
	}
	return nil
}

// List returns info for packages under the prefix. Salt and fingerprint
// require a per-object head request, so List reports name and size only.
func (s *Store) List(ctx context.Context, prefix string) ([]storage.PackageInfo, error) {
	var infos []storage.PackageInfo

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.objectKey(prefix)),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list packages: %w", err)
		}
		for _, obj := range page.Contents {
			infos = append(infos, storage.PackageInfo{
				Name:      aws.ToString(obj.Key),
				Size:      aws.ToInt64(obj.Size),
				CreatedAt: aws.ToTime(obj.LastModified),
			})
		}
	}

	return infos, nil
}

// isNotFound reports whether err is the backend's missing-object error.
func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NoSuchKey" || code == "NotFound"
	}
	return false
}
