package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joshsymonds/gefilte/internal/audit"
	"github.com/joshsymonds/gefilte/internal/config"
	"github.com/joshsymonds/gefilte/internal/feed"
	"github.com/joshsymonds/gefilte/internal/gmailctl"
	"github.com/joshsymonds/gefilte/internal/runtime"
)

func newBuildCmd(opts *globalOptions) *cobra.Command {
	var (
		output string
		format string
	)
	cmd := &cobra.Command{
		Use:   "build RULES",
		Short: "Render a rules file as a Gmail filter feed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("output") {
				cfg.Output.Path = output
			}
			if cmd.Flags().Changed("format") {
				cfg.Output.Format = strings.ToLower(strings.TrimSpace(format))
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			doc, err := buildDocument(args[0], cfg, logger)
			if err != nil {
				return err
			}
			rep := audit.RunLint(doc.Entries())
			for _, fr := range rep.CatchAll {
				logger.Warn("catch-all filter", slog.String("filter", fr.Name))
			}
			for _, cf := range rep.Conflicts {
				logger.Warn("conflicting filters", slog.Any("filters", cf.Rules), slog.String("reason", cf.Description))
			}

			data, err := encode(doc, cfg.Output.Format)
			if err != nil {
				return err
			}
			if err := runtime.WriteOutput(cfg.Output.Path, data, cmd.OutOrStdout()); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			logger.Info(
				"filters written",
				slog.String("path", cfg.Output.Path),
				slog.String("format", cfg.Output.Format),
				slog.Int("entries", rep.Total),
			)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", `output path, "-" for stdout (default from config)`)
	cmd.Flags().StringVar(&format, "format", "", "output format: xml, json or api (default from config)")
	return cmd
}

func encode(doc *feed.Document, format string) ([]byte, error) {
	switch format {
	case config.FormatXML:
		return doc.Bytes()
	case config.FormatJSON, config.FormatAPI:
		if err := doc.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", feed.ErrIncomplete, err)
		}
		export, err := gmailctl.FromEntries(doc.Entries())
		if err != nil {
			return nil, err
		}
		if format == config.FormatAPI {
			return export.IndentedAPI()
		}
		return export.Indented()
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}
