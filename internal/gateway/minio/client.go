// Package minio implements the storage gateway for MinIO-flavoured
// endpoints using the MinIO SDK. The core client is used so listing gets
// real ListObjectsV2 continuation tokens instead of the SDK's channel API.
package minio

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/baulhq/baul/internal/gateway"
	"github.com/baulhq/baul/internal/models"
)

// Client is a MinIO implementation of gateway.Gateway.
// Safe for concurrent use.
type Client struct {
	core *miniogo.Core
	conn models.Connection
}

var _ gateway.Gateway = (*Client)(nil)

// New builds a gateway client from a connection profile.
func New(conn models.Connection) (*Client, error) {
	if conn.AccessKey == "" || conn.SecretKey == "" {
		return nil, fmt.Errorf("connection %s: missing credentials", conn.ID)
	}

	host, secure, err := splitEndpoint(conn.Endpoint)
	if err != nil {
		return nil, err
	}

	lookup := miniogo.BucketLookupDNS
	if conn.UsePathStyle {
		lookup = miniogo.BucketLookupPath
	}

	core, err := miniogo.NewCore(host, &miniogo.Options{
		Creds:        credentials.NewStaticV4(conn.AccessKey, conn.SecretKey, ""),
		Secure:       secure,
		Region:       conn.Region,
		BucketLookup: lookup,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &Client{core: core, conn: conn}, nil
}

// splitEndpoint reduces an endpoint URL to the host form the MinIO SDK
// expects. A bare host defaults to TLS.
func splitEndpoint(endpoint string) (host string, secure bool, err error) {
	if endpoint == "" {
		return "", false, fmt.Errorf("minio connection requires an endpoint")
	}
	if !strings.Contains(endpoint, "://") {
		return endpoint, true, nil
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, fmt.Errorf("parse endpoint %q: %w", endpoint, err)
	}
	return u.Host, u.Scheme == "https", nil
}

// Ping verifies the endpoint is reachable with the profile's credentials.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.core.Client.ListBuckets(ctx)
	return gateway.WrapErr("Ping", "", "", err)
}
