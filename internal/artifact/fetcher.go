package artifact

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultMaxBytes caps how much of an artifact is downloaded
const DefaultMaxBytes = 32 << 20

// Fetcher retrieves artifact bytes. Root-relative image URLs are resolved
// against the public base URL of the service that produced them.
type Fetcher struct {
	base     *url.URL
	client   *http.Client
	maxBytes int64
}

// NewFetcher creates a fetcher. baseURL may be empty when all artifact URLs are absolute.
func NewFetcher(baseURL string, timeout time.Duration) (*Fetcher, error) {
	f := &Fetcher{
		client:   &http.Client{Timeout: timeout},
		maxBytes: DefaultMaxBytes,
	}
	if baseURL != "" {
		base, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid public base URL %q: %w", baseURL, err)
		}
		f.base = base
	}
	return f, nil
}

// Resolve turns imageURL into an absolute http(s) URL
func (f *Fetcher) Resolve(imageURL string) (string, error) {
	u, err := url.Parse(imageURL)
	if err != nil {
		return "", fmt.Errorf("invalid artifact URL %q: %w", imageURL, err)
	}
	if !u.IsAbs() {
		if f.base == nil {
			return "", fmt.Errorf("relative artifact URL %q without a public base URL", imageURL)
		}
		u = f.base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported artifact URL scheme %q", u.Scheme)
	}
	return u.String(), nil
}

// Fetched is a downloaded artifact
type Fetched struct {
	ContentType string
	Body        []byte
}

// Fetch downloads the artifact at imageURL
func (f *Fetcher) Fetch(ctx context.Context, imageURL string) (*Fetched, error) {
	resp, err := f.do(ctx, http.MethodGet, imageURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("artifact exceeds %d bytes", f.maxBytes)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(body)
	}
	return &Fetched{ContentType: contentType, Body: body}, nil
}

// Probe checks that the artifact at imageURL is reachable
func (f *Fetcher) Probe(ctx context.Context, imageURL string) error {
	resp, err := f.do(ctx, http.MethodHead, imageURL)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func (f *Fetcher) do(ctx context.Context, method, imageURL string) (*http.Response, error) {
	target, err := f.Resolve(imageURL)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build artifact request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("artifact request failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("artifact %s returned status %d", target, resp.StatusCode)
	}
	return resp, nil
}

// extensionFor maps a content type to a file extension
func extensionFor(contentType string) string {
	mediaType := strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	switch mediaType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/svg+xml":
		return ".svg"
	default:
		return ""
	}
}
