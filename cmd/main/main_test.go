package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testProject struct {
	dir    string
	config string
	source string
	target string
}

// newTestProject writes a source tree and a config file whose manifest lives
// in a temp dir.
func newTestProject(t *testing.T, files map[string]string) testProject {
	t.Helper()
	dir := t.TempDir()
	p := testProject{
		dir:    dir,
		config: filepath.Join(dir, "nepenthes.json"),
		source: filepath.Join(dir, "src"),
		target: filepath.Join(dir, "data"),
	}
	for name, content := range files {
		path := filepath.Join(p.source, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}

	config := DefaultConfig()
	config.App.LogLevel = "error"
	config.App.ManifestPath = filepath.Join(dir, ".nepenthes", "manifest.db")
	config.Build.SourceDir = p.source
	config.Build.TargetDir = p.target
	config.Build.Site = map[string]any{"title": "Test"}
	data, err := json.Marshal(config)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(p.config, data, 0644))
	return p
}

// run executes the CLI with the project's config and returns what it printed.
func (p testProject) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(append([]string{"--config", p.config, "--no-color"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func TestBuildCommand(t *testing.T) {
	p := newTestProject(t, map[string]string{
		"base.hamko":      `<title>{{.Site.title}}</title>`,
		"index.html.mako": `{{template "base.hamko" .}}<p>{{.Page.Name}}</p>`,
		"style.css":       "p {}",
	})

	for _, args := range [][]string{nil, {"build"}} {
		out, err := p.run(t, args...)
		require.NoError(t, err)
		assert.Contains(t, out, "BUILD SUCCESS 1 rendered, 1 copied, 1 headers, 0 ignored")

		index, err := os.ReadFile(filepath.Join(p.target, "index.html"))
		require.NoError(t, err)
		assert.Equal(t, "<title>Test</title><p>index.html</p>", string(index))
		assert.FileExists(t, filepath.Join(p.target, "style.css"))
		assert.NoFileExists(t, filepath.Join(p.target, "base.hamko"))
	}

	out, err := p.run(t, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "STATUS")
	assert.Contains(t, out, "success")

	out, err = p.run(t, "history", "--build", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "index.html")
	assert.Contains(t, out, "render")
	assert.Contains(t, out, "style.css")
	assert.Contains(t, out, "copy")
}

func TestBuildCommand_FlagOverrides(t *testing.T) {
	p := newTestProject(t, map[string]string{"a.txt": "a"})
	other := filepath.Join(p.dir, "public")

	_, err := p.run(t, "build", "--target", other, "--no-manifest")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(other, "a.txt"))
	assert.NoDirExists(t, p.target)
	assert.NoFileExists(t, filepath.Join(p.dir, ".nepenthes", "manifest.db"))
}

func TestBuildCommand_Failure(t *testing.T) {
	p := newTestProject(t, map[string]string{"bad.txt.mako": "{{"})

	out, err := p.run(t)
	require.Error(t, err)
	assert.Contains(t, out, "BUILD FAILED")

	out, err = p.run(t, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "failed")
}

func TestHistoryCommand_Empty(t *testing.T) {
	p := newTestProject(t, nil)

	out, err := p.run(t, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "No builds recorded.")
}

func TestInitCommand(t *testing.T) {
	p := newTestProject(t, nil)
	require.NoError(t, os.Remove(p.config))

	out, err := p.run(t, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote default config to")
	assert.FileExists(t, p.config)

	_, err = p.run(t, "init")
	assert.ErrorIs(t, err, ErrConfigExists)

	_, err = p.run(t, "init", "--force")
	assert.NoError(t, err)
}

func TestRenderCommand(t *testing.T) {
	p := newTestProject(t, map[string]string{
		"docs/page.md.mako": "# {{.Site.title}} {{.Page.Root}}",
		"plain.txt":         "x",
	})

	out, err := p.run(t, "render", filepath.Join(p.source, "docs", "page.md.mako"))
	require.NoError(t, err)
	assert.Equal(t, "# Test ../", out)
	assert.NoDirExists(t, p.target)

	_, err = p.run(t, "render", filepath.Join(p.source, "plain.txt"))
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"bogus": slog.LevelInfo,
	}
	for name, level := range tests {
		t.Run(name, func(t *testing.T) {
			logger := newLogger(name, &bytes.Buffer{})
			ctx := context.Background()
			assert.True(t, logger.Enabled(ctx, level))
			assert.False(t, logger.Enabled(ctx, level-1))
		})
	}
}
