package s3

import (
	"context"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/baulhq/baul/internal/constants"
	"github.com/baulhq/baul/internal/gateway"
	"github.com/baulhq/baul/internal/models"
)

// ListObjects fetches one "/"-delimited listing page.
func (c *Client) ListObjects(ctx context.Context, bucket, prefix, continuationToken string, maxKeys int32) (*models.ListingPage, error) {
	if maxKeys <= 0 || maxKeys > constants.MaxPageSize {
		maxKeys = constants.DefaultPageSize
	}

	input := &s3.ListObjectsV2Input{
		Bucket:    aws.String(bucket),
		Prefix:    aws.String(gateway.NormalizePrefix(prefix)),
		Delimiter: aws.String("/"),
		MaxKeys:   aws.Int32(maxKeys),
	}
	if continuationToken != "" {
		input.ContinuationToken = aws.String(continuationToken)
	}

	out, err := c.s3c.ListObjectsV2(ctx, input)
	if err != nil {
		return nil, gateway.WrapErr("ListObjects", bucket, prefix, err)
	}

	page := &models.ListingPage{
		Entries:     make([]models.ObjectEntry, 0, len(out.Contents)),
		Prefixes:    make([]string, 0, len(out.CommonPrefixes)),
		IsTruncated: aws.ToBool(out.IsTruncated),
		NextToken:   aws.ToString(out.NextContinuationToken),
	}

	for _, obj := range out.Contents {
		key := aws.ToString(obj.Key)
		// The folder marker object shows up in its own listing; callers
		// want the folder row from CommonPrefixes, not a zero-byte object.
		if strings.HasSuffix(key, "/") && aws.ToInt64(obj.Size) == 0 {
			continue
		}
		page.Entries = append(page.Entries, models.ObjectEntry{
			Key:          key,
			Size:         aws.ToInt64(obj.Size),
			LastModified: aws.ToTime(obj.LastModified),
			ETag:         strings.Trim(aws.ToString(obj.ETag), `"`),
		})
	}

	for _, p := range out.CommonPrefixes {
		page.Prefixes = append(page.Prefixes, aws.ToString(p.Prefix))
	}

	return page, nil
}

// PutObject uploads the file at localPath to bucket/key, reporting
// chunk-level progress through the wrapped reader.
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

	_, err = c.s3c.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          gateway.NewProgressReader(f, size, progress),
		ContentLength: aws.Int64(size),
	})
	return gateway.WrapErr("PutObject", bucket, key, err)
}

// GetObject downloads bucket/key to localPath. The file is written via a
// temp name in the same directory and renamed on success, so a failed
// download never leaves a truncated file at the destination.
func (c *Client) GetObject(ctx context.Context, bucket, key, localPath string, progress gateway.ProgressFunc) error {
	out, err := c.s3c.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return gateway.WrapErr("GetObject", bucket, key, err)
	}
	defer out.Body.Close()

	if err := gateway.WriteToFile(localPath, out.Body, aws.ToInt64(out.ContentLength), progress); err != nil {
		return gateway.WrapErr("GetObject", bucket, key, err)
	}
	return nil
}

// DeleteObjects removes keys in batches.
func (c *Client) DeleteObjects(ctx context.Context, bucket string, keys []string) error {
	for start := 0; start < len(keys); start += constants.DeleteBatchSize {
		end := start + constants.DeleteBatchSize
		if end > len(keys) {
			end = len(keys)
		}

		ids := make([]types.ObjectIdentifier, 0, end-start)
		for _, k := range keys[start:end] {
			ids = append(ids, types.ObjectIdentifier{Key: aws.String(k)})
		}

		_, err := c.s3c.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(bucket),
			Delete: &types.Delete{
				Objects: ids,
				Quiet:   aws.Bool(true),
			},
		})
		if err != nil {
			return gateway.WrapErr("DeleteObjects", bucket, "", err)
		}
	}
	return nil
}

// PresignURL generates a time-limited GET URL for bucket/key.
func (c *Client) PresignURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = constants.DefaultPresignTTL
	}
	if ttl > constants.MaxPresignTTL {
		ttl = constants.MaxPresignTTL
	}

	req, err := c.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", gateway.WrapErr("PresignURL", bucket, key, err)
	}
	return req.URL, nil
}

// HeadMetadata fetches full object metadata.
func (c *Client) HeadMetadata(ctx context.Context, bucket, key string) (*models.ObjectMetadata, error) {
	out, err := c.s3c.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, gateway.WrapErr("HeadMetadata", bucket, key, err)
	}

	meta := &models.ObjectMetadata{
		Key:                key,
		Size:               aws.ToInt64(out.ContentLength),
		LastModified:       aws.ToTime(out.LastModified),
		ETag:               strings.Trim(aws.ToString(out.ETag), `"`),
		ContentType:        aws.ToString(out.ContentType),
		ContentEncoding:    aws.ToString(out.ContentEncoding),
		ContentDisposition: aws.ToString(out.ContentDisposition),
		ContentLanguage:    aws.ToString(out.ContentLanguage),
		CacheControl:       aws.ToString(out.CacheControl),
		StorageClass:       string(out.StorageClass),
		VersionID:          aws.ToString(out.VersionId),
		UserMetadata:       make(map[string]string, len(out.Metadata)),
	}
	for k, v := range out.Metadata {
		meta.UserMetadata[k] = v
	}
	return meta, nil
}

// CopyObject performs a server-side copy.
func (c *Client) CopyObject(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error {
	source := url.PathEscape(srcBucket + "/" + srcKey)
	_, err := c.s3c.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(dstBucket),
		Key:        aws.String(dstKey),
		CopySource: aws.String(source),
	})
	return gateway.WrapErr("CopyObject", dstBucket, dstKey, err)
}

// CreateFolder writes the zero-byte folder marker object.
func (c *Client) CreateFolder(ctx context.Context, bucket, path string) error {
	key := gateway.FolderPath(path)
	_, err := c.s3c.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          strings.NewReader(""),
		ContentLength: aws.Int64(0),
	})
	return gateway.WrapErr("CreateFolder", bucket, key, err)
}

// ListBuckets returns the buckets visible to the connection.
func (c *Client) ListBuckets(ctx context.Context) ([]models.BucketInfo, error) {
	out, err := c.s3c.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, gateway.WrapErr("ListBuckets", "", "", err)
	}

	buckets := make([]models.BucketInfo, 0, len(out.Buckets))
	for _, b := range out.Buckets {
		buckets = append(buckets, models.BucketInfo{
			Name:      aws.ToString(b.Name),
			CreatedAt: aws.ToTime(b.CreationDate),
		})
	}
	return buckets, nil
}

// HeadBucket reports bucket existence; a 404 is (false, nil), anything
// else surfaces as an error.
func (c *Client) HeadBucket(ctx context.Context, bucket string) (bool, error) {
	_, err := c.s3c.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
	if err != nil {
		if gateway.IsNotFound(err) {
			return false, nil
		}
		return false, gateway.WrapErr("HeadBucket", bucket, "", err)
	}
	return true, nil
}

// BucketStats walks the full (undelimited) listing to total up the bucket.
func (c *Client) BucketStats(ctx context.Context, bucket string) (*models.BucketStats, error) {
	stats := &models.BucketStats{Name: bucket}
	var token *string

	for {
		out, err := c.s3c.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(bucket),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, gateway.WrapErr("BucketStats", bucket, "", err)
		}

		for _, obj := range out.Contents {
			stats.ObjectCount++
			stats.TotalSize += aws.ToInt64(obj.Size)
		}

		if !aws.ToBool(out.IsTruncated) {
			break
		}
		token = out.NextContinuationToken
	}
	return stats, nil
}
