package artifact

import (
	"context"
	"path"
	"strings"

	"go.uber.org/zap"
)

// Downloader fetches an artifact and stores it in a sink
type Downloader struct {
	fetcher *Fetcher
	sink    Sink
	logger  *zap.Logger
}

// NewDownloader creates a downloader
func NewDownloader(fetcher *Fetcher, sink Sink, logger *zap.Logger) *Downloader {
	return &Downloader{fetcher: fetcher, sink: sink, logger: logger}
}

// Save downloads imageURL and stores it as filename. When the artifact is not
// what the filename's extension claims, the extension is corrected.
func (d *Downloader) Save(ctx context.Context, imageURL, filename string) (string, error) {
	fetched, err := d.fetcher.Fetch(ctx, imageURL)
	if err != nil {
		return "", err
	}

	key := filename
	if ext := extensionFor(fetched.ContentType); ext != "" && !strings.EqualFold(path.Ext(filename), ext) {
		key = strings.TrimSuffix(filename, path.Ext(filename)) + ext
	}

	location, err := d.sink.Put(ctx, key, fetched.ContentType, fetched.Body)
	if err != nil {
		return "", err
	}

	d.logger.Debug("Saved artifact",
		zap.String("image_url", imageURL),
		zap.String("location", location),
		zap.Int("bytes", len(fetched.Body)))
	return location, nil
}
