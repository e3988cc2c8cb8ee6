package templating

// TemplateConfig holds all configuration options for the templating engine.
type TemplateConfig struct {
	// TemplateExt marks page templates. Pages are rendered and written with
	// this extension stripped from their name.
	TemplateExt string

	// HeaderExt marks header templates. Headers are parsed into the shared
	// template set so every page can include them, but produce no output.
	HeaderExt string

	// HTMLExtensions lists the output extensions rendered through html/template
	// with contextual escaping. All other outputs use text/template.
	HTMLExtensions []string

	// MissingKey is passed to the "missingkey" template option:
	// "default", "zero" or "error".
	MissingKey string

	// LeftDelim and RightDelim override the action delimiters. Empty means "{{" and "}}".
	LeftDelim  string
	RightDelim string
}

// DefaultConfig returns a TemplateConfig using the .mako / .hamko naming.
func DefaultConfig() TemplateConfig {
	return TemplateConfig{
		TemplateExt:    ".mako",
		HeaderExt:      ".hamko",
		HTMLExtensions: []string{".html", ".htm", ".xhtml"},
		MissingKey:     "default",
	}
}
