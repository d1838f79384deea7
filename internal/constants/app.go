package constants

import (
	"time"
)

// Transfer engine tunables
const (
	// DefaultMaxConcurrent - maximum number of gateway calls in flight across
	// all transfer batches. Batches queue on a shared semaphore once this
	// many transfers are active.
	DefaultMaxConcurrent = 5

	// CopyBufferSize - buffer size for streaming object bytes to/from disk (1 MB)
	CopyBufferSize = 1 * 1024 * 1024

	// ProgressMinInterval - minimum time between progress updates forwarded
	// to the transfer queue. Gateway callbacks fire at chunk boundaries and
	// can be far more frequent than observers want to repaint.
	ProgressMinInterval = 150 * time.Millisecond

	// ProgressMinDeltaPct - minimum progress change (percentage points)
	// required to forward an update before ProgressMinInterval has elapsed
	ProgressMinDeltaPct = 1.0
)

// Listing pagination
const (
	// DefaultPageSize - objects requested per listing page
	DefaultPageSize = 500

	// MaxPageSize - S3 ListObjectsV2 hard cap per request
	MaxPageSize = 1000
)

// Presigned URL lifetimes
const (
	// DefaultPresignTTL - default expiry for generated share URLs
	DefaultPresignTTL = 15 * time.Minute

	// MaxPresignTTL - SigV4 presigned URLs cannot outlive 7 days
	MaxPresignTTL = 7 * 24 * time.Hour
)

// DeleteBatchSize - maximum keys per DeleteObjects request.
// S3 allows 1000; Cloudflare R2 rejects batches over 700, so the
// conservative value is used for every provider.
const DeleteBatchSize = 700

// Event bus buffer sizes
const (
	// EventBusDefaultBuffer - per-subscriber channel capacity
	EventBusDefaultBuffer = 1000

	// EventBusMaxBuffer - cap on caller-requested buffer sizes
	EventBusMaxBuffer = 10000
)

// HTTP client
const (
	// HTTPRetryMax - retry attempts for the shared retryable HTTP client
	HTTPRetryMax = 3

	// HTTPRetryWaitMin is the initial backoff for HTTP retries
	HTTPRetryWaitMin = 200 * time.Millisecond

	// HTTPRetryWaitMax caps HTTP retry backoff
	HTTPRetryWaitMax = 5 * time.Second
)
