package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joshsymonds/gefilte/internal/audit"
	"github.com/joshsymonds/gefilte/internal/runtime"
)

func newLintCmd(opts *globalOptions) *cobra.Command {
	var (
		failOn  string
		jsonOut string
	)
	cmd := &cobra.Command{
		Use:   "lint RULES",
		Short: "Report catch-all, conflicting and duplicate filters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			doc, err := buildDocument(args[0], cfg, logger)
			if err != nil {
				return err
			}
			rep := audit.RunLint(doc.Entries())

			if _, err := io.WriteString(cmd.OutOrStdout(), rep.HumanSummary()); err != nil {
				return fmt.Errorf("write summary: %w", err)
			}
			if jsonOut != "" {
				data, err := json.MarshalIndent(rep, "", "  ")
				if err != nil {
					return fmt.Errorf("encode report: %w", err)
				}
				if err := runtime.WriteOutput(jsonOut, append(data, '\n'), cmd.OutOrStdout()); err != nil {
					return fmt.Errorf("write json: %w", err)
				}
			}

			tokens := cfg.Lint.FailOn
			if cmd.Flags().Changed("fail-on") {
				tokens = audit.ParseFailOn(failOn)
			}
			if rep.ShouldFail(tokens) {
				return fmt.Errorf("lint failures matched: %s", strings.Join(tokens, ","))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&failOn, "fail-on", "", "comma separated finding kinds that fail: catch-all,conflict,duplicate")
	cmd.Flags().StringVar(&jsonOut, "json", "", "also write the report as JSON to this path")
	return cmd
}
