package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/takaishi/fifpanel/config"
	"github.com/takaishi/fifpanel/panel"
	"github.com/takaishi/fifpanel/preview"
)

func (a *app) newPreviewCmd() *cobra.Command {
	var asJSON bool

	c := &cobra.Command{
		Use:   "preview <file> <line>",
		Short: "Print the lines around a line of a file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			line, err := strconv.Atoi(args[1])
			if err != nil || line < 1 {
				return fmt.Errorf("invalid line %q", args[1])
			}

			cfg, err := config.Load(a.v)
			if err != nil {
				return err
			}
			p := panel.NewSession(panel.Options{Root: cfg.Root}).Preview(args[0], line)

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(p)
			}
			if p.Code == "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: nothing to show at line %d\n", p.File, line)
				return nil
			}

			lines := strings.Split(p.Code, "\n")
			if isTerminal(cmd.OutOrStdout()) {
				if colored := strings.Split(preview.Colorize(p.Code, p.Language), "\n"); len(colored) == len(lines) {
					lines = colored
				}
			}
			hit := color.New(color.FgYellow, color.Bold).SprintFunc()
			for i, l := range lines {
				marker, num := "  ", fmt.Sprintf("%5d", p.StartLine+i)
				if i+1 == p.HitLine() {
					marker, num = hit("> "), hit(num)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s%s  %s\n", marker, num, strings.TrimRight(l, "\r"))
			}
			return nil
		},
	}
	c.Flags().BoolVar(&asJSON, "json", false, "Output the preview as JSON")
	return c
}
