package artifact

import (
	"context"
	"io"

	"github.com/pkg/browser"
)

// BrowserOpener opens URLs in the user's default browser
type BrowserOpener struct{}

// Open launches the browser on url
func (BrowserOpener) Open(_ context.Context, url string) error {
	// Keep the launcher's own output out of the CLI's
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard
	return browser.OpenURL(url)
}
