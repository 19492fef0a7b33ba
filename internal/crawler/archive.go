package crawler

import (
	"bytes"
	"context"
	"fmt"

	"go.uber.org/zap"
)

const htmlContentType = "text/html; charset=utf-8"

// archiver stores fetched pages at raw/<year>/<sha256>.html. A nil archiver
// is a no-op.
type archiver struct {
	store  BlobStore
	hasher Hasher
	logger *zap.Logger
}

func newArchiver(store BlobStore, hasher Hasher, logger *zap.Logger) *archiver {
	if store == nil || hasher == nil {
		return nil
	}
	return &archiver{store: store, hasher: hasher, logger: logger}
}

// ArchiveKey returns the object key for a page body fetched for year.
func ArchiveKey(year int, digest string) string {
	return fmt.Sprintf("raw/%d/%s.html", year, digest)
}

// save never fails the caller; errors are logged.
func (a *archiver) save(ctx context.Context, year int, pageURL string, body []byte) {
	if a == nil {
		return
	}
	digest, err := a.hasher.Hash(body)
	if err != nil {
		a.logger.Warn("hash page for archive failed", zap.String("url", pageURL), zap.Error(err))
		return
	}
	uri, err := a.store.PutObject(ctx, ArchiveKey(year, digest), htmlContentType, bytes.NewReader(body))
	if err != nil {
		a.logger.Warn("archive page failed", zap.String("url", pageURL), zap.Error(err))
		return
	}
	a.logger.Debug("archived page", zap.String("url", pageURL), zap.String("uri", uri))
}
