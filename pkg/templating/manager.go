package templating

import (
	htmltemplate "html/template"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	texttemplate "text/template"

	"github.com/rotisserie/eris"

	"github.com/CTAG07/Nepenthes/pkg/scan"
)

// TemplateManager is the central controller for the templating engine.
// It owns the header set for both template engines, the configuration and the
// function map, and renders pages against clones of the header set.
// All methods are concurrent-safe.
type TemplateManager struct {
	logger      *slog.Logger
	config      *TemplateConfig
	funcMap     map[string]any
	htmlHeaders *htmltemplate.Template
	textHeaders *texttemplate.Template
	headerNames []string
	sourceDir   string
	mu          sync.RWMutex
}

// NewTemplateManager creates a TemplateManager for the templates below sourceDir.
// The manager starts with an empty header set; call LoadHeaders before rendering
// pages that include headers.
func NewTemplateManager(logger *slog.Logger, config *TemplateConfig, sourceDir string) (*TemplateManager, error) {
	absSource, err := filepath.Abs(sourceDir)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to resolve source directory %s", sourceDir)
	}
	if config == nil {
		cfg := DefaultConfig()
		config = &cfg
	}

	tm := &TemplateManager{
		logger:    logger,
		config:    config,
		sourceDir: absSource,
	}
	tm.funcMap = tm.makeFuncMap()
	tm.resetHeaders()

	logger.Debug("Template manager initialized", "source", absSource)
	return tm, nil
}

func (tm *TemplateManager) makeFuncMap() map[string]any {
	return map[string]any{
		// Logic & Control (from funcs_logic.go)
		"repeat": repeat,
		"list":   list,
		"dict":   dict,
		"first":  first,
		"last":   last,

		// Simple (from funcs_simple.go)
		"add":   add,
		"sub":   sub,
		"div":   div,
		"mult":  mult,
		"max":   max,
		"min":   min,
		"mod":   mod,
		"inc":   inc,
		"dec":   dec,
		"and":   and,
		"or":    or,
		"not":   not,
		"isSet": isSet,

		// Strings & Dates (from funcs_text.go)
		"upper":    strings.ToUpper,
		"lower":    strings.ToLower,
		"title":    title,
		"trim":     strings.TrimSpace,
		"replace":  replace,
		"join":     join,
		"split":    split,
		"contains": strings.Contains,
		"default":  defaultValue,
		"now":      now,
		"date":     date,
		"safeHTML": safeHTML,
		"safeURL":  safeURL,
		"markdown": markdown,
	}
}

// resetHeaders replaces both header sets with empty ones. Callers must hold mu
// or own the manager exclusively.
func (tm *TemplateManager) resetHeaders() {
	tm.htmlHeaders = htmltemplate.New("").
		Delims(tm.config.LeftDelim, tm.config.RightDelim).
		Option("missingkey=" + tm.missingKey()).
		Funcs(htmltemplate.FuncMap(tm.funcMap))
	tm.textHeaders = texttemplate.New("").
		Delims(tm.config.LeftDelim, tm.config.RightDelim).
		Option("missingkey=" + tm.missingKey()).
		Funcs(texttemplate.FuncMap(tm.funcMap))
	tm.headerNames = []string{}
}

func (tm *TemplateManager) missingKey() string {
	switch tm.config.MissingKey {
	case "invalid", "zero", "error":
		return tm.config.MissingKey
	default:
		return "default"
	}
}

// SetConfig applies a new configuration and drops the loaded headers, since
// they were parsed with the previous delimiters and options.
func (tm *TemplateManager) SetConfig(config *TemplateConfig) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.config = config
	tm.resetHeaders()
}

// LoadHeaders parses the given header files into the shared set of both engines,
// replacing any headers loaded earlier. Each header is registered under its name
// relative to the source directory (see Name).
func (tm *TemplateManager) LoadHeaders(paths []string) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	tm.resetHeaders()
	tm.logger.Info("Loading header files...", "count", len(paths))

	for _, path := range paths {
		name, err := tm.name(path)
		if err != nil {
			return err
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return eris.Wrapf(err, "failed to read header %s", path)
		}

		if _, err = tm.htmlHeaders.New(name).Parse(string(content)); err != nil {
			tm.logger.Error("failed to parse header file", "header", name, "error", err)
			return eris.Wrapf(err, "failed to parse header %s", name)
		}
		if _, err = tm.textHeaders.New(name).Parse(string(content)); err != nil {
			tm.logger.Error("failed to parse header file", "header", name, "error", err)
			return eris.Wrapf(err, "failed to parse header %s", name)
		}
		tm.headerNames = append(tm.headerNames, name)
		tm.logger.Debug("Loaded header", "header", name)
	}

	tm.logger.Info("Loaded header files", "count", len(tm.headerNames))
	return nil
}

// Render parses the page template at path into a clone of the header set and
// executes it, writing the output to w. The `data` argument is passed to the
// template as dot.
func (tm *TemplateManager) Render(w io.Writer, path string, data any) error {
	name, err := tm.Name(path)
	if err != nil {
		return err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrapf(err, "failed to read template %s", path)
	}
	return tm.RenderString(w, name, string(content), data)
}

// RenderString parses and executes a raw template string under the given name.
// The engine is picked from the output name of `name` (see OutputName).
// This is also handy for previewing templates without saving them to disk.
func (tm *TemplateManager) RenderString(w io.Writer, name, content string, data any) error {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	if tm.isHTML(tm.outputName(name)) {
		// Clone the clean, unexecuted header set so every page starts from the same state.
		set, err := tm.htmlHeaders.Clone()
		if err != nil {
			return eris.Wrap(err, "failed to clone html headers")
		}
		t, err := set.New(name).Parse(content)
		if err != nil {
			return eris.Wrapf(err, "failed to parse template %s", name)
		}
		if err = t.Execute(w, data); err != nil {
			return eris.Wrapf(err, "failed to execute template %s", name)
		}
		return nil
	}

	set, err := tm.textHeaders.Clone()
	if err != nil {
		return eris.Wrap(err, "failed to clone text headers")
	}
	t, err := set.New(name).Parse(content)
	if err != nil {
		return eris.Wrapf(err, "failed to parse template %s", name)
	}
	if err = t.Execute(w, data); err != nil {
		return eris.Wrapf(err, "failed to execute template %s", name)
	}
	return nil
}

// Name returns the template name of the file at path: its slash-separated path
// relative to the source directory. Files outside the source directory are rejected.
func (tm *TemplateManager) Name(path string) (string, error) {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return tm.name(path)
}

func (tm *TemplateManager) name(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", eris.Wrapf(err, "failed to resolve %s", path)
	}
	rel, err := filepath.Rel(tm.sourceDir, absPath)
	if err != nil {
		return "", eris.Wrapf(err, "failed to relate %s to %s", path, tm.sourceDir)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", eris.Errorf("%s is outside of the source directory %s", path, tm.sourceDir)
	}
	return filepath.ToSlash(rel), nil
}

// IsTemplate reports whether path names a page template.
func (tm *TemplateManager) IsTemplate(path string) bool {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return tm.config.TemplateExt != "" && scan.Ext(path) == tm.config.TemplateExt
}

// IsHeader reports whether path names a header template.
func (tm *TemplateManager) IsHeader(path string) bool {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return tm.config.HeaderExt != "" && scan.Ext(path) == tm.config.HeaderExt
}

// OutputName returns the name a rendered page is written under: the page name
// without its template extension.
func (tm *TemplateManager) OutputName(path string) string {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return tm.outputName(path)
}

func (tm *TemplateManager) outputName(path string) string {
	if tm.config.TemplateExt == "" {
		return path
	}
	return strings.TrimSuffix(path, tm.config.TemplateExt)
}

func (tm *TemplateManager) isHTML(outputName string) bool {
	ext := strings.ToLower(filepath.Ext(outputName))
	if ext == "" {
		return false
	}
	return slices.ContainsFunc(tm.config.HTMLExtensions, func(e string) bool {
		return strings.ToLower(e) == ext
	})
}

// GetConfig returns a copy of the current configuration.
// This mainly exists for concurrency-safety reasons.
func (tm *TemplateManager) GetConfig() TemplateConfig {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return *tm.config
}

// GetHeaderNames returns the names of the loaded headers in load order.
func (tm *TemplateManager) GetHeaderNames() []string {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return slices.Clone(tm.headerNames)
}

// GetSourceDir returns the absolute source directory that template names are relative to.
func (tm *TemplateManager) GetSourceDir() string {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return tm.sourceDir
}
