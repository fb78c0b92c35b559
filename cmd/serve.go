package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/takaishi/fifpanel/config"
)

func (a *app) newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve [query]",
		Short: "Serve the search panel in the browser",
		Long: `serve opens the web panel on --addr. With a query, every page load starts
with that search; without one the page waits for a search to be typed.
Pressing Escape in the page stops the server.`,
		RunE: func(cmd *cobra.Command, args []string) error {
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
			return serveWeb(cmd, cfg, opts, strings.Join(args, " "))
		},
	}
}
