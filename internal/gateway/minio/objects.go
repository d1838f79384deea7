package minio

import (
	"context"
	"os"
	"strings"
	"time"

	miniogo "github.com/minio/minio-go/v7"

	"github.com/baulhq/baul/internal/constants"
	"github.com/baulhq/baul/internal/gateway"
	"github.com/baulhq/baul/internal/models"
)

// ListObjects fetches one "/"-delimited listing page via the core
// ListObjectsV2 call.
func (c *Client) ListObjects(ctx context.Context, bucket, prefix, continuationToken string, maxKeys int32) (*models.ListingPage, error) {
	if maxKeys <= 0 || maxKeys > constants.MaxPageSize {
		maxKeys = constants.DefaultPageSize
	}

	res, err := c.core.ListObjectsV2(bucket, gateway.NormalizePrefix(prefix), "", continuationToken, "/", int(maxKeys))
	if err != nil {
		return nil, gateway.WrapErr("ListObjects", bucket, prefix, err)
	}

	page := &models.ListingPage{
		Entries:     make([]models.ObjectEntry, 0, len(res.Contents)),
		Prefixes:    make([]string, 0, len(res.CommonPrefixes)),
		IsTruncated: res.IsTruncated,
		NextToken:   res.NextContinuationToken,
	}

	for _, obj := range res.Contents {
		if strings.HasSuffix(obj.Key, "/") && obj.Size == 0 {
			continue // folder marker, reported via CommonPrefixes
		}
		page.Entries = append(page.Entries, models.ObjectEntry{
			Key:          obj.Key,
			Size:         obj.Size,
			LastModified: obj.LastModified,
			ETag:         strings.Trim(obj.ETag, `"`),
			ContentType:  obj.ContentType,
		})
	}

	for _, p := range res.CommonPrefixes {
		page.Prefixes = append(page.Prefixes, p.Prefix)
	}

	return page, nil
}

// PutObject uploads the file at localPath to bucket/key.
func (c *Client) PutObject(ctx context.Context, bucket, key, localPath string, progress gateway.ProgressFunc) error {
	f, err := os.Open(localPath)
	if err != nil {
		return gateway.WrapErr("PutObject", bucket, key, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return gateway.WrapErr("PutObject", bucket, key, err)
	}
	size := info.Size()

	reader := gateway.NewProgressReader(f, size, progress)
	_, err = c.core.Client.PutObject(ctx, bucket, key, reader, size, miniogo.PutObjectOptions{})
	return gateway.WrapErr("PutObject", bucket, key, err)
}

// GetObject downloads bucket/key to localPath.
func (c *Client) GetObject(ctx context.Context, bucket, key, localPath string, progress gateway.ProgressFunc) error {
	obj, err := c.core.Client.GetObject(ctx, bucket, key, miniogo.GetObjectOptions{})
	if err != nil {
		return gateway.WrapErr("GetObject", bucket, key, err)
	}
	defer obj.Close()

	stat, err := obj.Stat()
	if err != nil {
		return gateway.WrapErr("GetObject", bucket, key, err)
	}

	if err := gateway.WriteToFile(localPath, obj, stat.Size, progress); err != nil {
		return gateway.WrapErr("GetObject", bucket, key, err)
	}
	return nil
}

// DeleteObjects removes keys using the SDK's streaming batch delete.
func (c *Client) DeleteObjects(ctx context.Context, bucket string, keys []string) error {
	objectsCh := make(chan miniogo.ObjectInfo, len(keys))
	for _, k := range keys {
		objectsCh <- miniogo.ObjectInfo{Key: k}
	}
	close(objectsCh)

	for rmErr := range c.core.Client.RemoveObjects(ctx, bucket, objectsCh, miniogo.RemoveObjectsOptions{}) {
		if rmErr.Err != nil {
			return gateway.WrapErr("DeleteObjects", bucket, rmErr.ObjectName, rmErr.Err)
		}
	}
	return nil
}

// PresignURL returns a time-limited GET URL for bucket/key.
func (c *Client) PresignURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = constants.DefaultPresignTTL
	}
	if ttl > constants.MaxPresignTTL {
		ttl = constants.MaxPresignTTL
	}

	u, err := c.core.Client.PresignedGetObject(ctx, bucket, key, ttl, nil)
	if err != nil {
		return "", gateway.WrapErr("PresignURL", bucket, key, err)
	}
	return u.String(), nil
}

// HeadMetadata fetches full object metadata.
func (c *Client) HeadMetadata(ctx context.Context, bucket, key string) (*models.ObjectMetadata, error) {
	stat, err := c.core.Client.StatObject(ctx, bucket, key, miniogo.StatObjectOptions{})
	if err != nil {
		return nil, gateway.WrapErr("HeadMetadata", bucket, key, err)
	}

	meta := &models.ObjectMetadata{
		Key:                key,
		Size:               stat.Size,
		LastModified:       stat.LastModified,
		ETag:               strings.Trim(stat.ETag, `"`),
		ContentType:        stat.ContentType,
		ContentEncoding:    stat.Metadata.Get("Content-Encoding"),
		ContentDisposition: stat.Metadata.Get("Content-Disposition"),
		ContentLanguage:    stat.Metadata.Get("Content-Language"),
		CacheControl:       stat.Metadata.Get("Cache-Control"),
		StorageClass:       stat.StorageClass,
		VersionID:          stat.VersionID,
		UserMetadata:       make(map[string]string, len(stat.UserMetadata)),
	}
	for k, v := range stat.UserMetadata {
		meta.UserMetadata[k] = v
	}
	return meta, nil
}

// CopyObject performs a server-side copy.
func (c *Client) CopyObject(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error {
	_, err := c.core.Client.CopyObject(ctx,
		miniogo.CopyDestOptions{Bucket: dstBucket, Object: dstKey},
		miniogo.CopySrcOptions{Bucket: srcBucket, Object: srcKey},
	)
	return gateway.WrapErr("CopyObject", dstBucket, dstKey, err)
}

// CreateFolder writes the zero-byte folder marker object.
func (c *Client) CreateFolder(ctx context.Context, bucket, path string) error {
	key := gateway.FolderPath(path)
	_, err := c.core.Client.PutObject(ctx, bucket, key, strings.NewReader(""), 0, miniogo.PutObjectOptions{})
	return gateway.WrapErr("CreateFolder", bucket, key, err)
}

// ListBuckets returns the buckets visible to the connection.
func (c *Client) ListBuckets(ctx context.Context) ([]models.BucketInfo, error) {
	raw, err := c.core.Client.ListBuckets(ctx)
	if err != nil {
		return nil, gateway.WrapErr("ListBuckets", "", "", err)
	}

	buckets := make([]models.BucketInfo, 0, len(raw))
	for _, b := range raw {
		buckets = append(buckets, models.BucketInfo{
			Name:      b.Name,
			CreatedAt: b.CreationDate,
		})
	}
	return buckets, nil
}

// HeadBucket reports bucket existence.
func (c *Client) HeadBucket(ctx context.Context, bucket string) (bool, error) {
	exists, err := c.core.Client.BucketExists(ctx, bucket)
	if err != nil {
		return false, gateway.WrapErr("HeadBucket", bucket, "", err)
	}
	return exists, nil
}

// BucketStats walks the full (undelimited) listing to total up the bucket.
func (c *Client) BucketStats(ctx context.Context, bucket string) (*models.BucketStats, error) {
	stats := &models.BucketStats{Name: bucket}
	token := ""

	for {
		res, err := c.core.ListObjectsV2(bucket, "", "", token, "", constants.MaxPageSize)
		if err != nil {
			return nil, gateway.WrapErr("BucketStats", bucket, "", err)
		}

		for _, obj := range res.Contents {
			stats.ObjectCount++
			stats.TotalSize += obj.Size
		}

		if !res.IsTruncated {
			break
		}
		token = res.NextContinuationToken
	}
	return stats, nil
}
