// Package s3 implements the storage gateway against any S3-compatible
// endpoint using the AWS SDK v2. It is the default provider; MinIO-flavoured
// endpoints may use the minio package instead.
package s3

import (
	"context"
	"fmt"
	nethttp "net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/baulhq/baul/internal/constants"
	"github.com/baulhq/baul/internal/gateway"
	"github.com/baulhq/baul/internal/models"
)

// Client wraps an AWS S3 client plus its presigner for one connection.
// Safe for concurrent use.
type Client struct {
	s3c     *s3.Client
	presign *s3.PresignClient
	conn    models.Connection
}

var _ gateway.Gateway = (*Client)(nil)

// New builds a gateway client from a connection profile. Credentials are
// static per profile; custom endpoints (MinIO, R2, on-prem) are passed
// through as the base endpoint with optional path-style addressing.
func New(ctx context.Context, conn models.Connection) (*Client, error) {
	if conn.AccessKey == "" || conn.SecretKey == "" {
		return nil, fmt.Errorf("connection %s: missing credentials", conn.ID)
	}

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(conn.Region),
		config.WithHTTPClient(newHTTPClient()),
		config.WithCredentialsProvider(awscreds.NewStaticCredentialsProvider(
			conn.AccessKey,
			conn.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	s3c := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = conn.UsePathStyle
		if conn.Endpoint != "" {
			o.BaseEndpoint = aws.String(conn.Endpoint)
		}
	})

	return &Client{
		s3c:     s3c,
		presign: s3.NewPresignClient(s3c),
		conn:    conn,
	}, nil
}

// newHTTPClient builds the shared pooled HTTP client handed to the SDK.
// Transport-level retries (connection resets, 5xx) live here; the core
// itself never retries gateway operations.
func newHTTPClient() *nethttp.Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = constants.HTTPRetryMax
	rc.RetryWaitMin = constants.HTTPRetryWaitMin
	rc.RetryWaitMax = constants.HTTPRetryWaitMax
	rc.Logger = nil
	return rc.StandardClient()
}
