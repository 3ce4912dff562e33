// Package plugin loads caller-supplied transformation functions from Go
// plugin files under a configured containment directory.
package plugin

import (
	"os"
	"path/filepath"
	"plugin"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/kruemmel-python/WebCrawler-Pro/internal/common"
)

// ProcessFunc is the required shape of a plugin's entry point: it receives
// the captured page data and returns an arbitrary transformation of it.
type ProcessFunc func(map[string]any) (any, error)

// Loader resolves and loads transformation plugins. Every failure mode
// (escape of the containment directory, missing file, missing symbol,
// wrong signature) is reported as load-failed rather than an error: a
// broken plugin degrades the task to unprocessed output, it never aborts
// the run.
type Loader struct {
	dir        string
	entryPoint string
	logger     arbor.ILogger
}

// NewLoader creates a plugin loader rooted at the configured directory.
func NewLoader(cfg *common.Config, logger arbor.ILogger) *Loader {
	entryPoint := cfg.Plugins.EntryPoint
	if entryPoint == "" {
		entryPoint = "ProcessData"
	}
	return &Loader{
		dir:        cfg.Plugins.Dir,
		entryPoint: entryPoint,
		logger:     logger,
	}
}

// Load resolves path inside the containment directory and returns the
// plugin's entry point function. The second return is false whenever the
// plugin cannot be used.
func (l *Loader) Load(path string) (ProcessFunc, bool) {
	if path == "" {
		return nil, false
	}

	resolved, ok := l.containedPath(path)
	if !ok {
		l.logger.Warn().
			Str("path", path).
			Str("plugin_dir", l.dir).
			Msg("Plugin path escapes the plugin directory, refusing to load")
		return nil, false
	}

	if _, err := os.Stat(resolved); err != nil {
		l.logger.Warn().Err(err).Str("path", resolved).Msg("Plugin file not accessible")
		return nil, false
	}

	p, err := plugin.Open(resolved)
	if err != nil {
		l.logger.Warn().Err(err).Str("path", resolved).Msg("Failed to open plugin")
		return nil, false
	}

	sym, err := p.Lookup(l.entryPoint)
	if err != nil {
		l.logger.Warn().
			Err(err).
			Str("path", resolved).
			Str("entry_point", l.entryPoint).
			Msg("Plugin entry point not found")
		return nil, false
	}

	fn, ok := sym.(func(map[string]any) (any, error))
	if !ok {
		l.logger.Warn().
			Str("path", resolved).
			Str("entry_point", l.entryPoint).
			Msg("Plugin entry point has the wrong signature")
		return nil, false
	}

	return fn, true
}

// containedPath joins path onto the plugin directory and verifies the
// result stays inside it. Absolute paths are accepted only when already
// under the directory.
func (l *Loader) containedPath(path string) (string, bool) {
	base, err := filepath.Abs(l.dir)
	if err != nil {
		return "", false
	}

	candidate := path
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(base, candidate)
	}
	candidate, err = filepath.Abs(candidate)
	if err != nil {
		return "", false
	}

	rel, err := filepath.Rel(base, candidate)
	if err != nil {
		return "", false
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return candidate, true
}
