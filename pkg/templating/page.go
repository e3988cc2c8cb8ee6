package templating

import (
	"path"
	"strings"
	"time"
)

// PageInfo describes the page being rendered. All paths are slash-separated
// and relative to the site root.
type PageInfo struct {
	// Source is the template name, e.g. "blog/post.html.mako".
	Source string
	// Path is the output path, e.g. "blog/post.html".
	Path string
	// Name is the output base name, e.g. "post.html".
	Name string
	// Dir is the output directory, "." for the site root.
	Dir string
	// Root leads from the page back to the site root, e.g. "../" for Dir "blog".
	Root string
}

// PageData is the value pages are executed with.
type PageData struct {
	Site      map[string]any
	Page      PageInfo
	BuildTime time.Time
}

// NewPageData builds the data for the page whose template name is source and
// whose output path is output.
func NewPageData(source, output string, site map[string]any, buildTime time.Time) PageData {
	dir := path.Dir(output)
	root := ""
	if dir != "." {
		root = strings.Repeat("../", strings.Count(dir, "/")+1)
	}
	if site == nil {
		site = map[string]any{}
	}
	return PageData{
		Site: site,
		Page: PageInfo{
			Source: source,
			Path:   output,
			Name:   path.Base(output),
			Dir:    dir,
			Root:   root,
		},
		BuildTime: buildTime,
	}
}
