package memory

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// BootstrapFiles are the workspace documents injected into the system
// message, in order.
var BootstrapFiles = []string{"USER.md", "SOUL.md", "IDENTITY.md"}

// BootstrapCache renders the bootstrap documents. Without a watcher every
// Render reads the files; after Watch the rendered text is cached and
// rebuilt when one of the files changes.
type BootstrapCache struct {
	workspace string
	logger    zerolog.Logger

	mu       sync.RWMutex
	cached   string
	watching bool
	watcher  *FileWatcher
}

// NewBootstrapCache creates a cache for the documents in workspace.
func NewBootstrapCache(workspace string, logger zerolog.Logger) *BootstrapCache {
	return &BootstrapCache{
		workspace: workspace,
		logger:    logger.With().Str("component", "bootstrap").Logger(),
	}
}

// Render returns every present document as "## NAME\n\n<content>\n\n".
func (c *BootstrapCache) Render() string {
	c.mu.RLock()
	if c.watching {
		defer c.mu.RUnlock()
		return c.cached
	}
	c.mu.RUnlock()

	return c.load()
}

func (c *BootstrapCache) load() string {
	var b strings.Builder
	for _, name := range BootstrapFiles {
		content := readOptional(filepath.Join(c.workspace, name))
		if content == "" {
			continue
		}
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", name, content)
	}
	return b.String()
}

// Reload re-reads the documents into the cache.
func (c *BootstrapCache) Reload() {
	rendered := c.load()

	c.mu.Lock()
	c.cached = rendered
	c.mu.Unlock()

	c.logger.Debug().Int("bytes", len(rendered)).Msg("Bootstrap documents reloaded")
}

// Watch loads the documents and keeps the cache current until Close.
func (c *BootstrapCache) Watch() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.watching {
		return nil
	}

	watcher, err := NewFileWatcher(c.logger, isBootstrapFile, c.Reload)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Watch(c.workspace); err != nil {
		watcher.Stop()
		return fmt.Errorf("failed to watch %s: %w", c.workspace, err)
	}

	c.cached = c.load()
	c.watcher = watcher
	c.watching = true

	c.logger.Info().Str("workspace", c.workspace).Msg("Watching bootstrap documents")
	return nil
}

// Close stops watching. Render falls back to reading the files.
func (c *BootstrapCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.watching {
		return nil
	}
	c.watching = false
	return c.watcher.Stop()
}

func isBootstrapFile(name string) bool {
	for _, f := range BootstrapFiles {
		if name == f {
			return true
		}
	}
	return false
}
