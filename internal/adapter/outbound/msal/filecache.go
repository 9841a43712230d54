package msal

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/AzureAD/microsoft-authentication-library-for-go/apps/cache"
)

// fileCache persists the serialized MSAL cache in a single 0600 file so the
// signed-in account survives between runs.
type fileCache struct {
	path   string
	logger *slog.Logger

	mu sync.Mutex
}

var _ cache.ExportReplace = (*fileCache)(nil)

func newFileCache(path string, logger *slog.Logger) *fileCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &fileCache{path: path, logger: logger}
}

// Replace loads the file into the MSAL cache. A missing or empty file leaves
// the cache as is. An unreadable cache is discarded so sign-in can proceed.
func (c *fileCache) Replace(ctx context.Context, u cache.Unmarshaler, _ cache.ReplaceHints) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && len(data) == 0) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read token cache: %w", err)
	}
	if err := u.Unmarshal(data); err != nil {
		c.logger.Warn("discarding unreadable token cache", "path", c.path, "error", err)
	}
	return nil
}

// Export writes the MSAL cache atomically: temp file, fsync, rename.
func (c *fileCache) Export(ctx context.Context, m cache.Marshaler, _ cache.ExportHints) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := m.Marshal()
	if err != nil {
		return fmt.Errorf("marshal token cache: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return fmt.Errorf("create token cache dir: %w", err)
	}
	tmpPath := c.path + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	cleanup := func() {
		_ = f.Close()
		_ = os.Remove(tmpPath)
	}
	if _, err := f.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("fsync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename token cache: %w", err)
	}
	c.logger.Debug("token cache saved", "path", c.path)
	return nil
}
