package plugin

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/arbor"

	"github.com/kruemmel-python/WebCrawler-Pro/internal/common"
)

func newTestLoader(t *testing.T) (*Loader, string) {
	t.Helper()
	dir := t.TempDir()

	cfg := common.NewDefaultConfig()
	cfg.Plugins.Dir = dir
	return NewLoader(cfg, arbor.NewLogger()), dir
}

func TestLoadRejectsEscapingPaths(t *testing.T) {
	loader, _ := newTestLoader(t)

	escapes := []string{
		"../outside.so",
		"../../etc/passwd",
		"sub/../../outside.so",
		"/etc/passwd",
	}
	for _, path := range escapes {
		_, ok := loader.Load(path)
		assert.False(t, ok, "path %q must not load", path)
	}
}

func TestLoadAcceptsContainedAbsolutePath(t *testing.T) {
	loader, dir := newTestLoader(t)

	// Inside the plugin dir but not a real plugin: containment passes,
	// loading fails, both without an error escaping to the caller.
	path := filepath.Join(dir, "notaplugin.so")
	assert.NoError(t, os.WriteFile(path, []byte("not an ELF"), 0o644))

	_, ok := loader.Load(path)
	assert.False(t, ok)
}

func TestLoadMissingFile(t *testing.T) {
	loader, _ := newTestLoader(t)
	_, ok := loader.Load("does-not-exist.so")
	assert.False(t, ok)
}

func TestLoadEmptyPath(t *testing.T) {
	loader, _ := newTestLoader(t)
	_, ok := loader.Load("")
	assert.False(t, ok)
}

func TestContainedPath(t *testing.T) {
	loader, dir := newTestLoader(t)

	resolved, ok := loader.containedPath("transform.so")
	assert.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "transform.so"), resolved)

	resolved, ok = loader.containedPath("nested/transform.so")
	assert.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "nested", "transform.so"), resolved)

	_, ok = loader.containedPath("nested/../../escape.so")
	assert.False(t, ok)
}
