package artifact

import (
	"context"
	"errors"
	"sync"

	"github.com/atotto/clipboard"
)

// ErrClipboardUnsupported is returned when no clipboard utility is installed
var ErrClipboardUnsupported = errors.New("system clipboard is not available")

// MemoryClipboard remembers the last copied text. The HTTP API hands it
// back to the browser, which owns the real clipboard.
type MemoryClipboard struct {
	mu   sync.Mutex
	text string
}

// WriteText stores text
func (m *MemoryClipboard) WriteText(_ context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.text = text
	return nil
}

// Text returns the last copied text
func (m *MemoryClipboard) Text() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.text
}

// SystemClipboard writes to the operating system clipboard
type SystemClipboard struct{}

// WriteText copies text to the OS clipboard
func (SystemClipboard) WriteText(_ context.Context, text string) error {
	if clipboard.Unsupported {
		return ErrClipboardUnsupported
	}
	return clipboard.WriteAll(text)
}
