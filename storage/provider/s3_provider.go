// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/qolzam/telar-drive/internal/pkg/log"
	platformconfig "github.com/qolzam/telar-drive/internal/platform/config"
)

// s3Provider implements BlobProvider for AWS S3 and S3-compatible
// stores (MinIO, R2) via a custom endpoint with path-style addressing.
type s3Provider struct {
	s3Client       *s3.Client
	bucket         string
	region         string
	endpoint       string
	forcePathStyle bool
	publicURL      string
}

var _ BlobProvider = (*s3Provider)(nil)

// NewS3Provider creates a new S3 provider from configuration.
func NewS3Provider(cfg *platformconfig.S3Config) (BlobProvider, error) {
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, fmt.Errorf("AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY are required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("AWS_S3_BUCKET is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = cfg.ForcePathStyle
		}
	})

	return &s3Provider{
		s3Client:       s3Client,
		bucket:         cfg.Bucket,
		region:         cfg.Region,
		endpoint:       cfg.Endpoint,
		forcePathStyle: cfg.ForcePathStyle,
		publicURL:      cfg.PublicURL,
	}, nil
}

func (p *s3Provider) Name() string {
	return "s3"
}

func (p *s3Provider) GenerateSignedUploadURL(ctx context.Context, key string, contentType string, expiresIn time.Duration) (*SignedUploadURL, error) {
	presignClient := s3.NewPresignClient(p.s3Client)

	req, err := presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = expiresIn
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate presigned upload URL: %w", err)
	}

	return &SignedUploadURL{
		SignedURL:  req.URL,
		PublicURL:  p.PublicURL(key),
		StorageKey: key,
		ExpiresAt:  time.Now().Add(expiresIn),
	}, nil
}

func (p *s3Provider) GenerateSignedDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (*SignedDownloadURL, error) {
	presignClient := s3.NewPresignClient(p.s3Client)

	req, err := presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = expiresIn
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate presigned download URL: %w", err)
	}

	return &SignedDownloadURL{
		SignedURL: req.URL,
		ExpiresAt: time.Now().Add(expiresIn),
	}, nil
}

func (p *s3Provider) Delete(ctx context.Context, key string) error {
	_, err := p.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// PublicURL prefers the configured CDN base, then the custom endpoint
// in its addressing style, then the canonical AWS virtual-host form.
func (p *s3Provider) PublicURL(key string) string {
	if p.publicURL != "" {
		return fmt.Sprintf("%s/%s", strings.TrimSuffix(p.publicURL, "/"), key)
	}

	if p.endpoint != "" {
		endpoint := strings.TrimSuffix(p.endpoint, "/")
		if p.forcePathStyle {
			return fmt.Sprintf("%s/%s/%s", endpoint, p.bucket, key)
		}
		if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
			return fmt.Sprintf("%s://%s.%s/%s", u.Scheme, p.bucket, u.Host, key)
		}
		return fmt.Sprintf("%s/%s/%s", endpoint, p.bucket, key)
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", p.bucket, p.region, key)
}

func (p *s3Provider) Exists(ctx context.Context, key string) (bool, error) {
	_, err := p.s3Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *s3types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NotFound" {
			return false, nil
		}
		return false, fmt.Errorf("failed to check object existence: %w", err)
	}
	return true, nil
}

// SetVisibility applies a canned ACL. Buckets with ACLs disabled reject
// this, so failures are logged rather than surfaced.
func (p *s3Provider) SetVisibility(ctx context.Context, key string, isPublic bool) error {
	acl := s3types.ObjectCannedACLPrivate
	if isPublic {
		acl = s3types.ObjectCannedACLPublicRead
	}

	_, err := p.s3Client.PutObjectAcl(ctx, &s3.PutObjectAclInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
		ACL:    acl,
	})
	if err != nil {
		log.Warn("failed to set object ACL for %s: %v", key, err)
	}
	return nil
}

func (p *s3Provider) OpenStream(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := p.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *s3types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to open object stream: %w", err)
	}
	return out.Body, nil
}
