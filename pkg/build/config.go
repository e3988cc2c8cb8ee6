package build

import "github.com/CTAG07/Nepenthes/pkg/scan"

// Config holds the settings of a site build.
type Config struct {
	// SourceDir is the tree that is scanned for templates, headers and assets.
	SourceDir string `json:"source_dir"`

	// TargetDir is deleted and regenerated on every build.
	TargetDir string `json:"target_dir"`

	// MaxDepth limits how many directory levels below SourceDir are scanned.
	// Negative means unlimited.
	MaxDepth int `json:"max_depth"`

	// ExtPattern and NamePattern restrict which source files take part in the
	// build. Both are regular expressions anchored at the start.
	ExtPattern  string `json:"ext_pattern"`
	NamePattern string `json:"name_pattern"`

	// IgnoreFile is a gitignore-style file, relative to SourceDir, listing
	// source paths to leave out of the build. It is never copied itself.
	IgnoreFile string `json:"ignore_file"`

	// Site is made available to every page as .Site.
	Site map[string]any `json:"site"`
}

// DefaultConfig returns the build settings used when no config file exists:
// build src/ into data/.
func DefaultConfig() *Config {
	return &Config{
		SourceDir:   "src/",
		TargetDir:   "data/",
		MaxDepth:    scan.DefaultMaxDepth,
		ExtPattern:  ".*",
		NamePattern: ".*",
		IgnoreFile:  ".buildignore",
		Site:        map[string]any{},
	}
}
