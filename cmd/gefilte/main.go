package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshsymonds/gefilte/internal/config"
	"github.com/joshsymonds/gefilte/internal/feed"
	"github.com/joshsymonds/gefilte/internal/rulefile"
	"github.com/joshsymonds/gefilte/internal/runtime"
)

// version is set at link time with -ldflags "-X main.version=...".
var version = "dev"

type globalOptions struct {
	configPath string
	logLevel   string
	stderr     io.Writer
}

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		runtime.DefaultLogger().Error("gefilte failed", "error", err)
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &globalOptions{stderr: stderr}
	root := &cobra.Command{
		Use:           "gefilte",
		Short:         "Compile declarative mail filter rules into a Gmail import feed",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a gefilte TOML config (optional)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override logging.level")
	root.AddCommand(newBuildCmd(opts), newLintCmd(opts))
	return root
}

func (o *globalOptions) load() (config.Config, *slog.Logger, error) {
	cfg := config.Default()
	if o.configPath != "" {
		loaded, err := config.Load(o.configPath, slog.New(slog.NewTextHandler(o.stderr, nil)))
		if err != nil {
			return config.Config{}, nil, err
		}
		cfg = loaded
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	logger, err := runtime.NewLogger(o.stderr, cfg.Logging)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("configure logging: %w", err)
	}
	return cfg, logger, nil
}

func generatorFor(cfg config.Config) feed.Generator {
	gen := feed.DefaultGenerator()
	gen.Version = version
	if cfg.Generator.Name != "" {
		gen.Name = cfg.Generator.Name
	}
	if cfg.Generator.Version != "" {
		gen.Version = cfg.Generator.Version
	}
	if cfg.Generator.URL != "" {
		gen.URL = cfg.Generator.URL
	}
	return gen
}

// buildDocument loads the rules file and replays it onto a fresh document.
func buildDocument(path string, cfg config.Config, logger *slog.Logger) (*feed.Document, error) {
	rules, err := rulefile.Load(path)
	if err != nil {
		return nil, err
	}
	doc := feed.New(feed.WithGenerator(generatorFor(cfg)), feed.WithLogger(logger))
	if err := rules.Declare(doc); err != nil {
		return nil, fmt.Errorf("declare filters: %w", err)
	}
	logger.Debug("rules declared", slog.String("path", path), slog.Int("entries", len(doc.Entries())))
	return doc, nil
}
