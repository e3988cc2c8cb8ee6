package scan

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeTree creates the given files (relative, slash-separated) under a fresh temp dir.
func makeTree(t *testing.T, files ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, f := range files {
		p := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(f), 0644))
	}
	return root
}

func rel(t *testing.T, root string, paths []string) []string {
	t.Helper()
	absRoot, err := filepath.Abs(root)
	require.NoError(t, err)
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		assert.True(t, filepath.IsAbs(p), "path %s is not absolute", p)
		r, err := filepath.Rel(absRoot, p)
		require.NoError(t, err)
		out = append(out, filepath.ToSlash(r))
	}
	sort.Strings(out)
	return out
}

func TestScan_Filters(t *testing.T) {
	root := makeTree(t,
		"index.html.mako",
		"about.mako",
		"layout/base.hamko",
		"static/style.css",
		"static/img/logo.png",
		".hidden",
		"notes.txt",
	)

	tests := []struct {
		name string
		opts Options
		want []string
	}{
		{
			name: "everything",
			opts: DefaultOptions(),
			want: []string{".hidden", "about.mako", "index.html.mako", "layout/base.hamko", "notes.txt", "static/img/logo.png", "static/style.css"},
		},
		{
			name: "extension only",
			opts: Options{MaxDepth: -1, ExtPattern: `\.mako$`},
			want: []string{"about.mako", "index.html.mako"},
		},
		{
			name: "extension alternatives",
			opts: Options{MaxDepth: -1, ExtPattern: `\.(css|png)$`},
			want: []string{"static/img/logo.png", "static/style.css"},
		},
		{
			name: "extension and name",
			opts: Options{MaxDepth: -1, ExtPattern: `\.mako$`, NamePattern: `index`},
			want: []string{"index.html.mako"},
		},
		{
			name: "name is anchored at the start",
			opts: Options{MaxDepth: -1, NamePattern: `html`},
			want: []string{},
		},
		{
			name: "leading dot is not an extension",
			opts: Options{MaxDepth: -1, ExtPattern: `\.hidden`},
			want: []string{},
		},
		{
			name: "empty extension",
			opts: Options{MaxDepth: -1, ExtPattern: `$`},
			want: []string{".hidden"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Scan(root, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, rel(t, root, got))
		})
	}
}

func TestScan_DepthLimit(t *testing.T) {
	root := makeTree(t,
		"a.txt",
		"one/b.txt",
		"one/two/c.txt",
		"one/two/three/d.txt",
	)

	tests := []struct {
		depth int
		want  []string
	}{
		{0, []string{"a.txt"}},
		{1, []string{"a.txt", "one/b.txt"}},
		{2, []string{"a.txt", "one/b.txt", "one/two/c.txt"}},
		{-1, []string{"a.txt", "one/b.txt", "one/two/c.txt", "one/two/three/d.txt"}},
	}

	for _, tt := range tests {
		got, err := Scan(root, Options{MaxDepth: tt.depth})
		require.NoError(t, err)
		assert.Equal(t, tt.want, rel(t, root, got), "depth %d", tt.depth)
	}
}

func TestScan_DirectoriesAreNotReturned(t *testing.T) {
	root := makeTree(t, "dir.mako/inner.txt")

	got, err := Scan(root, Options{MaxDepth: -1, ExtPattern: `\.mako$`})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestScan_Errors(t *testing.T) {
	root := t.TempDir()

	_, err := Scan(root, Options{ExtPattern: "("})
	assert.Error(t, err)

	_, err = Scan(root, Options{NamePattern: "[a-"})
	assert.Error(t, err)

	_, err = Scan(filepath.Join(root, "missing"), DefaultOptions())
	assert.Error(t, err)
}

func TestExt(t *testing.T) {
	tests := map[string]string{
		"page.mako":            ".mako",
		"index.html.mako":      ".mako",
		"archive.tar.gz":       ".gz",
		".bashrc":              "",
		"..double":             "",
		".config.json":         ".json",
		"README":               "",
		"dir/sub/header.hamko": ".hamko",
	}
	for in, want := range tests {
		assert.Equal(t, want, Ext(in), "Ext(%q)", in)
	}
	assert.Equal(t, "index.html", StripExt("index.html.mako"))
	assert.Equal(t, "README", StripExt("README"))
}
