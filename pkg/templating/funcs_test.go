package templating

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTemplateFunctions validates the behavior of each category of template functions.
func TestTemplateFunctions(t *testing.T) {
	t.Run("SimpleFuncs", func(t *testing.T) {
		assert.Equal(t, 5, add(2, 3))
		assert.Equal(t, 5, add(2.9, 3))
		assert.Equal(t, 7, add("4", 3))
		assert.Equal(t, -1, sub(2, 3))
		assert.Equal(t, 0, div(10, 0))
		assert.Equal(t, 3, div(10, 3))
		assert.Equal(t, 12, mult(int64(3), 4))
		assert.Equal(t, 9, max(9, 2))
		assert.Equal(t, 2, min(float64(9), 2))
		assert.Equal(t, 0, mod(7, 0))
		assert.Equal(t, 1, mod(7, 3))
		assert.Equal(t, 2, inc(1))
		assert.Equal(t, 0, dec(1))
		assert.Equal(t, 0, toInt("not a number"))
		assert.Equal(t, 0, toInt(struct{}{}))
		assert.True(t, isSet("x"))
		assert.False(t, isSet(""))
		assert.False(t, isSet(nil))
	})

	t.Run("LogicFuncs", func(t *testing.T) {
		assert.Equal(t, []int{0, 1, 2}, repeat(3))
		assert.Equal(t, []int{}, repeat(-2))
		assert.Equal(t, []any{1, "a"}, list(1, "a"))
		assert.True(t, and(true, true))
		assert.False(t, and(true, false))
		assert.True(t, or(false, true))
		assert.False(t, not(true))

		m, err := dict("a", 1, "b", "two")
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"a": 1, "b": "two"}, m)
		_, err = dict("odd")
		assert.Error(t, err)
		_, err = dict(1, 2)
		assert.Error(t, err)

		assert.Equal(t, "x", first([]string{"x", "y"}))
		assert.Equal(t, "y", last([]string{"x", "y"}))
		assert.Nil(t, first([]int{}))
		assert.Nil(t, last("not a slice"))
	})

	t.Run("TextFuncs", func(t *testing.T) {
		assert.Equal(t, "Hello Big World", title("hello big world"))
		assert.Equal(t, "a-b-c", replace(" ", "-", "a b c"))
		assert.Equal(t, "a, b", join(", ", []string{"a", "b"}))
		assert.Equal(t, "1/x", join("/", []any{1, "x"}))
		assert.Equal(t, "", join("/", nil))
		assert.Equal(t, []string{"a", "b"}, split(",", "a,b"))
		assert.Equal(t, "anon", defaultValue("anon", ""))
		assert.Equal(t, "me", defaultValue("anon", "me"))

		ts := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)
		assert.Equal(t, "2024-02-03", date("2006-01-02", ts))
		assert.Equal(t, "2024-02-03T04:05:06Z", date("", ts))
		assert.False(t, now().IsZero())
	})

	t.Run("Markdown", func(t *testing.T) {
		out, err := markdown("# Title\n\nSome *text* and ~~gone~~.")
		require.NoError(t, err)
		assert.Equal(t, "<h1>Title</h1>\n<p>Some <em>text</em> and <del>gone</del>.</p>\n", string(out))

		out, err = markdown("<script>alert(1)</script>")
		require.NoError(t, err)
		assert.NotContains(t, string(out), "<script>")

		tm, _ := setupTestManager(t, nil)
		var buf bytes.Buffer
		err = tm.RenderString(&buf, "post.html.mako", `<main>{{.intro | markdown}}</main>`, map[string]any{"intro": "**hi**"})
		require.NoError(t, err)
		assert.Equal(t, "<main><p><strong>hi</strong></p>\n</main>", buf.String())
	})

	t.Run("Pipelines", func(t *testing.T) {
		tm, _ := setupTestManager(t, nil)
		var buf bytes.Buffer
		err := tm.RenderString(&buf, "t.txt.mako",
			`{{.title | lower | replace " " "-"}} {{add .count 1}} {{range repeat 3}}{{.}}{{end}} {{.author | default "anon"}}`,
			map[string]any{"title": "My Post", "count": float64(41)})
		require.NoError(t, err)
		assert.Equal(t, "my-post 42 012 anon", buf.String())
	})
}
