// Package build drives a site build: it clears the target directory, renders
// page templates, skips headers and copies every other source file.
package build

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/schollz/progressbar/v3"

	"github.com/CTAG07/Nepenthes/pkg/manifest"
	"github.com/CTAG07/Nepenthes/pkg/scan"
	"github.com/CTAG07/Nepenthes/pkg/templating"
	"github.com/CTAG07/Nepenthes/pkg/writer"
)

var (
	// ErrTargetContainsSource is returned when clearing the target directory
	// would delete the source tree.
	ErrTargetContainsSource = errors.New("target directory contains the source directory")

	// ErrSourceNotDir is returned when the source path is not a directory.
	ErrSourceNotDir = errors.New("source is not a directory")
)

// Result summarizes a finished build.
type Result struct {
	BuildID  int64
	Rendered int
	Copied   int
	Headers  int
	Ignored  int
	Outputs  []manifest.Output
	Duration time.Duration
}

// Option configures a Builder.
type Option func(*Builder)

// WithManifest records every build and its outputs in store.
func WithManifest(store *manifest.Store) Option {
	return func(b *Builder) { b.store = store }
}

// WithProgress draws a progress bar on w while files are processed.
func WithProgress(w io.Writer) Option {
	return func(b *Builder) { b.progress = w }
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// Builder runs site builds. A Builder is not safe for concurrent use.
type Builder struct {
	config   *Config
	logger   *slog.Logger
	tm       *templating.TemplateManager
	store    *manifest.Store
	progress io.Writer
	now      func() time.Time
}

// NewBuilder creates a Builder for config, rendering pages with a template
// manager configured by tmplConfig.
func NewBuilder(logger *slog.Logger, config *Config, tmplConfig *templating.TemplateConfig, opts ...Option) (*Builder, error) {
	tm, err := templating.NewTemplateManager(logger, tmplConfig, config.SourceDir)
	if err != nil {
		return nil, eris.Wrap(err, "failed to create template manager")
	}

	b := &Builder{
		config: config,
		logger: logger,
		tm:     tm,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Templates returns the template manager used for pages.
func (b *Builder) Templates() *templating.TemplateManager {
	return b.tm
}

// Run performs one full build. The first error aborts the build; the target
// directory is then left in whatever state the build reached.
func (b *Builder) Run(ctx context.Context) (*Result, error) {
	start := b.now()
	source, target, err := b.resolveDirs()
	if err != nil {
		return nil, err
	}

	b.logger.Info("Starting build", "source", source, "target", target)

	if err = os.RemoveAll(target); err != nil {
		return nil, eris.Wrapf(err, "failed to clear target directory %s", target)
	}
	if err = os.MkdirAll(target, 0755); err != nil {
		return nil, eris.Wrapf(err, "failed to create target directory %s", target)
	}

	files, err := scan.Scan(source, scan.Options{
		MaxDepth:    b.config.MaxDepth,
		ExtPattern:  b.config.ExtPattern,
		NamePattern: b.config.NamePattern,
		Logger:      b.logger,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "failed to scan %s", source)
	}
	b.logger.Debug("Scanned source tree", "files", len(files))

	ignoreFile, ignore, err := b.loadHeaders(source)
	if err != nil {
		return nil, err
	}

	result := &Result{Outputs: []manifest.Output{}}
	if b.store != nil {
		result.BuildID, err = b.store.BeginBuild(ctx, source, target, start)
		if err != nil {
			return nil, err
		}
	}

	err = b.processFiles(ctx, source, target, ignoreFile, ignore, files, result)
	result.Duration = b.now().Sub(start)

	if b.store != nil {
		status := manifest.StatusSuccess
		if err != nil {
			status = manifest.StatusFailed
		}
		// The build may have been cancelled; still record how it ended.
		finishErr := b.store.FinishBuild(context.WithoutCancel(ctx), result.BuildID, status, len(result.Outputs), b.now())
		if err == nil {
			err = finishErr
		} else if finishErr != nil {
			b.logger.Error("Failed to record build status", "build", result.BuildID, "error", finishErr)
		}
	}
	if err != nil {
		return nil, err
	}

	b.logger.Info("Build finished",
		"rendered", result.Rendered,
		"copied", result.Copied,
		"headers", result.Headers,
		"ignored", result.Ignored,
		"duration", result.Duration)
	return result, nil
}

// Preview renders the single page at path to w, with every header of the
// source tree loaded, without touching the target directory.
func (b *Builder) Preview(w io.Writer, path string) error {
	source, err := b.resolveSource()
	if err != nil {
		return err
	}

	if _, _, err = b.loadHeaders(source); err != nil {
		return err
	}

	rel, err := b.tm.Name(path)
	if err != nil {
		return err
	}
	data := templating.NewPageData(rel, b.tm.OutputName(rel), b.config.Site, b.now())
	if err = b.tm.Render(w, path, data); err != nil {
		return eris.Wrapf(err, "failed to render %s", rel)
	}
	return nil
}

// loadHeaders reads the ignore rules and loads every header of the source tree
// that they do not exclude. Headers are found with their own scan so that
// the extension, name and depth filters of the build never hide an include.
func (b *Builder) loadHeaders(source string) (string, *ignoreRules, error) {
	ignoreFile := ""
	if b.config.IgnoreFile != "" {
		ignoreFile = filepath.Join(source, b.config.IgnoreFile)
	}
	ignore, err := loadIgnoreRules(ignoreFile)
	if err != nil {
		return "", nil, err
	}

	depth := scan.DefaultMaxDepth
	if b.config.MaxDepth < 0 || b.config.MaxDepth > depth {
		depth = b.config.MaxDepth
	}
	files, err := scan.Scan(source, scan.Options{MaxDepth: depth, Logger: b.logger})
	if err != nil {
		return "", nil, eris.Wrapf(err, "failed to scan %s for headers", source)
	}

	var headers []string
	for _, file := range files {
		if b.tm.IsHeader(file) && !ignore.Match(b.relative(source, file)) {
			headers = append(headers, file)
		}
	}
	if err = b.tm.LoadHeaders(headers); err != nil {
		return "", nil, err
	}
	return ignoreFile, ignore, nil
}

func (b *Builder) processFiles(ctx context.Context, source, target, ignoreFile string, ignore *ignoreRules, files []string, result *Result) error {
	bar := b.newProgressBar(len(files))
	defer func(bar *progressbar.ProgressBar) {
		_ = bar.Finish()
	}(bar)

	buildTime := b.now()
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return eris.Wrap(err, "build cancelled")
		}
		_ = bar.Add(1)

		rel := b.relative(source, file)
		switch {
		case file == ignoreFile:
			continue
		case ignore.Match(rel):
			result.Ignored++
			b.logger.Debug("Ignoring file", "file", rel)
		case b.tm.IsHeader(file):
			result.Headers++
			b.logger.Debug("Skipping header", "file", rel)
		case b.tm.IsTemplate(file):
			out, err := b.renderPage(file, rel, target, buildTime)
			if err != nil {
				return err
			}
			result.Rendered++
			if err = b.record(ctx, result, out); err != nil {
				return err
			}
		default:
			out, err := b.copyAsset(file, rel, target)
			if err != nil {
				return err
			}
			result.Copied++
			if err = b.record(ctx, result, out); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *Builder) renderPage(file, rel, target string, buildTime time.Time) (manifest.Output, error) {
	outRel := b.tm.OutputName(rel)
	data := templating.NewPageData(rel, outRel, b.config.Site, buildTime)

	var buf bytes.Buffer
	if err := b.tm.Render(&buf, file, data); err != nil {
		return manifest.Output{}, eris.Wrapf(err, "failed to render %s", rel)
	}

	written, err := writer.WriteFile(filepath.Join(target, filepath.FromSlash(outRel)), buf.Bytes(), true)
	if err != nil {
		return manifest.Output{}, err
	}
	b.logger.Debug("Rendered page", "file", rel, "output", written)

	sum := sha256.Sum256(buf.Bytes())
	return manifest.Output{
		SourcePath: rel,
		TargetPath: b.relative(target, written),
		Action:     manifest.ActionRender,
		Size:       int64(buf.Len()),
		SHA256:     hex.EncodeToString(sum[:]),
	}, nil
}

func (b *Builder) copyAsset(file, rel, target string) (manifest.Output, error) {
	written, err := writer.CopyFile(file, filepath.Join(target, filepath.FromSlash(rel)), true)
	if err != nil {
		return manifest.Output{}, err
	}
	b.logger.Debug("Copied file", "file", rel, "output", written)

	size, sum, err := manifest.HashFile(written)
	if err != nil {
		return manifest.Output{}, err
	}
	return manifest.Output{
		SourcePath: rel,
		TargetPath: b.relative(target, written),
		Action:     manifest.ActionCopy,
		Size:       size,
		SHA256:     sum,
	}, nil
}

func (b *Builder) record(ctx context.Context, result *Result, out manifest.Output) error {
	result.Outputs = append(result.Outputs, out)
	if b.store == nil {
		return nil
	}
	return b.store.RecordOutput(ctx, result.BuildID, out)
}

// resolveSource returns the absolute source directory and checks that it is one.
func (b *Builder) resolveSource() (string, error) {
	source, err := filepath.Abs(b.config.SourceDir)
	if err != nil {
		return "", eris.Wrapf(err, "failed to resolve source directory %s", b.config.SourceDir)
	}
	info, err := os.Stat(source)
	if err != nil {
		return "", eris.Wrapf(err, "failed to read source directory %s", source)
	}
	if !info.IsDir() {
		return "", eris.Wrapf(ErrSourceNotDir, "%s", source)
	}
	return source, nil
}

// resolveDirs returns the absolute source and target directories and checks
// that clearing the target cannot remove the sources.
func (b *Builder) resolveDirs() (string, string, error) {
	source, err := b.resolveSource()
	if err != nil {
		return "", "", err
	}
	target, err := filepath.Abs(b.config.TargetDir)
	if err != nil {
		return "", "", eris.Wrapf(err, "failed to resolve target directory %s", b.config.TargetDir)
	}

	rel, err := filepath.Rel(target, source)
	if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", "", eris.Wrapf(ErrTargetContainsSource, "refusing to clear %s", target)
	}
	return source, target, nil
}

// relative returns path relative to root with forward slashes.
func (b *Builder) relative(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func (b *Builder) newProgressBar(total int) *progressbar.ProgressBar {
	if b.progress == nil {
		return progressbar.NewOptions(total, progressbar.OptionSetVisibility(false))
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(b.progress),
		progressbar.OptionSetDescription("building"),
		progressbar.OptionShowCount(),
		progressbar.OptionOnCompletion(func() {
			_, _ = fmt.Fprint(b.progress, "\n")
		}),
	)
}
