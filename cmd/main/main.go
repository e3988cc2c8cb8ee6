package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/mitchellh/colorstring"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/CTAG07/Nepenthes/pkg/build"
	"github.com/CTAG07/Nepenthes/pkg/manifest"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// rootFlags are shared by every command.
type rootFlags struct {
	configPath string
	source     string
	target     string
	logLevel   string
	progress   bool
	noManifest bool
	noColor    bool
}

type app struct {
	flags  rootFlags
	stdout io.Writer
	stderr io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	rootCmd := &cobra.Command{
		Use:   "nepenthes",
		Short: "Renders a source tree of templates into a static site",
		Long: `Nepenthes walks the source directory, renders every .mako template, skips
.hamko headers and copies everything else into a freshly cleared target
directory. Running it without a subcommand is the same as "nepenthes build".`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, BuildDate),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          a.runBuild,
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&a.flags.configPath, "config", "c", DefaultConfigPath, "path to the JSON config file")
	flags.StringVarP(&a.flags.source, "source", "s", "", "source directory (overrides the config)")
	flags.StringVarP(&a.flags.target, "target", "t", "", "target directory (overrides the config)")
	flags.StringVar(&a.flags.logLevel, "log-level", "", "log level: debug, info, warn or error")
	flags.BoolVar(&a.flags.progress, "progress", false, "draw a progress bar on stderr")
	flags.BoolVar(&a.flags.noManifest, "no-manifest", false, "do not record the build in the manifest database")
	flags.BoolVar(&a.flags.noColor, "no-color", false, "disable colored status output")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "build",
			Short: "Clears the target directory and rebuilds it from the source tree",
			Args:  cobra.NoArgs,
			RunE:  a.runBuild,
		},
		a.initCmd(),
		a.renderCmd(),
		a.historyCmd(),
		a.serveCmd(),
	)
	return rootCmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx)
	stop()
	if err != nil {
		slog.Error("Nepenthes failed", "error", err)
		os.Exit(1)
	}
}

func (a *app) runBuild(cmd *cobra.Command, _ []string) error {
	config, logger, err := a.setup(cmd)
	if err != nil {
		return err
	}

	result, err := a.build(cmd.Context(), config, logger)
	if err != nil {
		a.printf("[red][bold]BUILD FAILED[reset] %s\n", config.Build.SourceDir)
		return err
	}
	a.printf("[green][bold]BUILD SUCCESS[reset] %d rendered, %d copied, %d headers, %d ignored in %s\n",
		result.Rendered, result.Copied, result.Headers, result.Ignored, result.Duration.Round(time.Millisecond))
	return nil
}

// build runs one build with the manifest opened for its duration.
func (a *app) build(ctx context.Context, config *Config, logger *slog.Logger) (*build.Result, error) {
	var opts []build.Option
	if a.flags.progress {
		opts = append(opts, build.WithProgress(a.stderr))
	}
	if config.App.ManifestEnabled && !a.flags.noManifest {
		store, closeDB, err := openManifest(config.App.ManifestPath, logger)
		if err != nil {
			return nil, err
		}
		defer closeDB()
		opts = append(opts, build.WithManifest(store))
	}

	builder, err := build.NewBuilder(logger, config.Build, config.Templates, opts...)
	if err != nil {
		return nil, err
	}
	return builder.Run(ctx)
}

func (a *app) initCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Writes the default config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := WriteDefaultConfig(a.flags.configPath, force); err != nil {
				return err
			}
			a.printf("[green]Wrote default config to[reset] %s\n", a.flags.configPath)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "replace an existing config file")
	return cmd
}

func (a *app) renderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "render template_file",
		Short: "Renders a single page to stdout without touching the target directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, logger, err := a.setup(cmd)
			if err != nil {
				return err
			}
			builder, err := build.NewBuilder(logger, config.Build, config.Templates)
			if err != nil {
				return err
			}
			if !builder.Templates().IsTemplate(args[0]) {
				return eris.Errorf("%s is not a page template", args[0])
			}
			return builder.Preview(cmd.OutOrStdout(), args[0])
		},
	}
}

// setup loads the config, applies flag overrides and creates the logger.
func (a *app) setup(cmd *cobra.Command) (*Config, *slog.Logger, error) {
	config, err := LoadConfig(a.flags.configPath)
	if err != nil {
		return nil, nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("source") {
		config.Build.SourceDir = a.flags.source
	}
	if flags.Changed("target") {
		config.Build.TargetDir = a.flags.target
	}
	if flags.Changed("log-level") {
		config.App.LogLevel = a.flags.logLevel
	}

	return config, newLogger(config.App.LogLevel, a.stdout), nil
}

func newLogger(level string, w io.Writer) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel}))
}

// openManifest opens the manifest database at path, creating it and its
// schema if needed. The returned func closes it.
func openManifest(path string, logger *slog.Logger) (*manifest.Store, func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, nil, eris.Wrapf(err, "failed to create manifest directory for %s", path)
	}
	db, err := initDB(path)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "failed to open manifest %s", path)
	}
	if err = manifest.SetupSchema(db); err != nil {
		_ = db.Close()
		return nil, nil, eris.Wrapf(err, "failed to set up manifest schema in %s", path)
	}
	return manifest.NewStore(db), func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close manifest database", "error", err)
		}
	}, nil
}

func (a *app) printf(format string, args ...any) {
	c := colorstring.Colorize{
		Colors:  colorstring.DefaultColors,
		Disable: a.flags.noColor,
		Reset:   true,
	}
	_, _ = fmt.Fprint(a.stdout, c.Color(fmt.Sprintf(format, args...)))
}
