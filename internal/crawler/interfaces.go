package crawler

import (
	"context"
	"io"
	"time"
)

// Fetcher returns the raw body of a page. Implementations retry transient
// failures internally and must be safe for concurrent use.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// BlobStore writes raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, key string, contentType string, r io.Reader) (string, error)
}

// Hasher computes content digests for archive keys.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// YearRunner crawls a single release year.
type YearRunner interface {
	CrawlYear(ctx context.Context, year int) (YearResult, error)
}
