// Package gateway defines the storage gateway capability interface the core
// depends on, the shared error taxonomy, and the connection registry that
// maps connection profiles to provider clients. Provider implementations
// live in the s3 and minio subpackages.
package gateway

import (
	"context"
	"strings"
	"time"

	"github.com/baulhq/baul/internal/models"
)

// ProgressFunc is invoked at chunk boundaries during put/get with the
// running byte count and the total size. total is 0 when unknown.
// Implementations must tolerate nil callbacks.
type ProgressFunc func(transferred, total int64)

// Gateway is the capability set the core needs from an object store.
// Implementations wrap one connection to one endpoint; bucket and key
// addressing is per call. All methods honour context cancellation.
type Gateway interface {
	// ListObjects fetches one listing page under prefix, delimited by "/".
	// continuationToken is empty for the first page; pass the previous
	// page's NextToken afterwards. maxKeys caps the page size.
	ListObjects(ctx context.Context, bucket, prefix, continuationToken string, maxKeys int32) (*models.ListingPage, error)

	// PutObject uploads the file at localPath to bucket/key.
	PutObject(ctx context.Context, bucket, key, localPath string, progress ProgressFunc) error

	// GetObject downloads bucket/key to the file at localPath.
	GetObject(ctx context.Context, bucket, key, localPath string, progress ProgressFunc) error

	// DeleteObjects removes the given keys, batching as the provider allows.
	DeleteObjects(ctx context.Context, bucket string, keys []string) error

	// PresignURL returns a time-limited GET URL for bucket/key.
	PresignURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)

	// HeadMetadata fetches full object metadata without the body.
	HeadMetadata(ctx context.Context, bucket, key string) (*models.ObjectMetadata, error)

	// CopyObject server-side copies srcBucket/srcKey to dstBucket/dstKey.
	CopyObject(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error

	// CreateFolder writes the zero-byte marker object that represents an
	// empty folder (key with trailing slash).
	CreateFolder(ctx context.Context, bucket, path string) error

	// ListBuckets returns the buckets visible to the connection.
	ListBuckets(ctx context.Context) ([]models.BucketInfo, error)

	// HeadBucket reports whether the bucket exists and is reachable.
	HeadBucket(ctx context.Context, bucket string) (bool, error)

	// BucketStats walks the full listing to count objects and bytes.
	BucketStats(ctx context.Context, bucket string) (*models.BucketStats, error)
}

// RenameObject moves an object within a bucket: server-side copy to the new
// key, then delete of the old one. Not atomic; a failed delete leaves both
// keys and the caller sees the error.
func RenameObject(ctx context.Context, gw Gateway, bucket, oldKey, newKey string) error {
	if err := gw.CopyObject(ctx, bucket, oldKey, bucket, newKey); err != nil {
		return err
	}
	return gw.DeleteObjects(ctx, bucket, []string{oldKey})
}

// NormalizePrefix ensures a non-empty listing prefix carries the trailing
// delimiter the store expects, so "logs" and "logs/" address the same folder.
func NormalizePrefix(prefix string) string {
	if prefix == "" || strings.HasSuffix(prefix, "/") {
		return prefix
	}
	return prefix + "/"
}

// FolderPath ensures a folder marker key ends with the delimiter.
func FolderPath(path string) string {
	if strings.HasSuffix(path, "/") {
		return path
	}
	return path + "/"
}
