package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/takaishi/fifpanel/config"
	"github.com/takaishi/fifpanel/highlight"
	"github.com/takaishi/fifpanel/panel"
	"github.com/takaishi/fifpanel/search"
)

func (a *app) newSearchCmd() *cobra.Command {
	var asJSON bool

	c := &cobra.Command{
		Use:   "search <query>",
		Short: "Print every line containing query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			if query == "" {
				printError(cmd.ErrOrStderr(), "Search term cannot be empty.")
				return panel.ErrEmptyQuery
			}

			cfg, err := config.Load(a.v)
			if err != nil {
				return err
			}
			logger, closeLog, err := newLogger(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeLog()

			opts, err := panelOptions(cfg, logger)
			if err != nil {
				return err
			}
			results, err := panel.NewSession(opts).Search(cmd.Context(), query)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			}
			printResults(cmd.OutOrStdout(), results, query)
			fmt.Fprintln(cmd.ErrOrStderr(), panel.Summary(results, query))
			return nil
		},
	}
	c.Flags().BoolVar(&asJSON, "json", false, "Output results as JSON")
	return c
}

// printResults writes grep-style file:line:column:text lines
func printResults(w io.Writer, results []search.SearchResult, query string) {
	file := color.New(color.FgMagenta).SprintFunc()
	num := color.New(color.FgGreen).SprintFunc()
	match := color.New(color.FgRed, color.Bold).SprintFunc()

	for _, r := range results {
		text := highlight.Mark(r.Text, query, func(s string) string { return match(s) })
		fmt.Fprintf(w, "%s:%s:%s:%s\n", file(r.File), num(r.Line), num(r.Column), text)
	}
}
