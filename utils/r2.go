// utils/r2.go
package utils

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// R2Options holds the Cloudflare R2 credentials and bucket.
type R2Options struct {
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
	CDNBaseURL      string
}

// Configured reports whether enough is set to reach a bucket.
func (o R2Options) Configured() bool {
	return o.AccountID != "" && o.AccessKeyID != "" && o.AccessKeySecret != "" && o.Bucket != ""
}

// R2Archive uploads session exports to an R2 (S3-compatible) bucket.
type R2Archive struct {
	client     *s3.Client
	bucket     string
	cdnBaseURL string
}

func NewR2Archive(ctx context.Context, opts R2Options) (*R2Archive, error) {
	if !opts.Configured() {
		return nil, fmt.Errorf("R2 is not configured")
	}

	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", opts.AccountID)
	cdn := strings.TrimRight(opts.CDNBaseURL, "/")
	if cdn == "" {
		cdn = endpoint + "/" + opts.Bucket
	}

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("auto"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			opts.AccessKeyID, opts.AccessKeySecret, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load R2 config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})
	return &R2Archive{client: client, bucket: opts.Bucket, cdnBaseURL: cdn}, nil
}

// PutObject uploads body under key.
func (r *R2Archive) PutObject(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to R2: %w", err)
	}
	return nil
}

// URL returns the public address of key.
func (r *R2Archive) URL(key string) string {
	return fmt.Sprintf("%s/%s", r.cdnBaseURL, key)
}
