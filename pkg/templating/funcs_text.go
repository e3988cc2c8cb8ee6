package templating

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	"time"
	"unicode"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// md renders GitHub flavored markdown. Raw HTML in the input is omitted.
var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// title upper-cases the first letter of every space-separated word.
func title(s string) string {
	prev := ' '
	return strings.Map(func(r rune) rune {
		defer func() { prev = r }()
		if unicode.IsSpace(prev) {
			return unicode.ToTitle(r)
		}
		return r
	}, s)
}

// replace returns s with every occurrence of from replaced by to.
// The argument order reads naturally in a pipeline: {{.Name | replace " " "-"}}.
func replace(from, to, s string) string {
	return strings.ReplaceAll(s, from, to)
}

// join concatenates the elements of a slice with sep. Non-string elements are
// formatted with %v.
func join(sep string, items any) string {
	switch v := items.(type) {
	case []string:
		return strings.Join(v, sep)
	case []any:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = fmt.Sprint(item)
		}
		return strings.Join(parts, sep)
	case nil:
		return ""
	}
	return fmt.Sprint(items)
}

// split splits s around every sep.
func split(sep, s string) []string {
	return strings.Split(s, sep)
}

// defaultValue returns value unless it is unset, in which case fallback is returned.
// Usage: {{.Site.author | default "anonymous"}}.
func defaultValue(fallback, value any) any {
	if !isSet(value) {
		return fallback
	}
	return value
}

// now returns the current time.
func now() time.Time {
	return time.Now()
}

// date formats t with a Go reference layout. A zero layout means RFC 3339.
func date(layout string, t time.Time) string {
	if layout == "" {
		layout = time.RFC3339
	}
	return t.Format(layout)
}

// safeHTML marks s as trusted HTML so html/template does not escape it.
func safeHTML(s string) htmltemplate.HTML {
	return htmltemplate.HTML(s)
}

// safeURL marks s as a trusted URL so html/template does not filter it.
func safeURL(s string) htmltemplate.URL {
	return htmltemplate.URL(s)
}

// markdown converts markdown source to HTML.
// Usage: {{.Site.intro | markdown}}.
func markdown(source string) (htmltemplate.HTML, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(source), &buf); err != nil {
		return "", err
	}
	return htmltemplate.HTML(buf.String()), nil
}
