// Package models defines the data entities shared across the core:
// object listings, metadata, buckets, and connection profiles.
package models

import "time"

// ObjectEntry is a single object row in a listing page.
type ObjectEntry struct {
	Key          string    // Full object key
	Size         int64     // Size in bytes
	LastModified time.Time // Last-modified timestamp from the store
	ETag         string    // Entity tag (may be empty)
	ContentType  string    // MIME type (may be empty)
}

// ListingPage is one page of a paginated object listing: the objects and
// common prefixes returned for a single continuation step, plus the cursor
// for the next step.
type ListingPage struct {
	Entries     []ObjectEntry // Objects, in the order the store returned them
	Prefixes    []string      // Common ("folder") prefixes in this page
	NextToken   string        // Opaque continuation token for the next page
	IsTruncated bool          // True if more pages exist after this one
}

// ObjectMetadata is the full head-object view of a single object.
type ObjectMetadata struct {
	Key                string
	Size               int64
	LastModified       time.Time
	ETag               string
	ContentType        string
	ContentEncoding    string
	ContentDisposition string
	ContentLanguage    string
	CacheControl       string
	StorageClass       string
	VersionID          string
	// UserMetadata holds x-amz-meta-* pairs with the prefix stripped.
	UserMetadata map[string]string
}

// BucketInfo describes one bucket visible to a connection.
type BucketInfo struct {
	Name      string
	CreatedAt time.Time
}

// BucketStats aggregates object count and total size for a bucket.
// Computing it walks the full listing, so it is on-demand only.
type BucketStats struct {
	Name        string
	ObjectCount int64
	TotalSize   int64
}
