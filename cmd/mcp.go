package cmd

import (
	"github.com/spf13/cobra"
	"github.com/takaishi/fifpanel/config"
	"github.com/takaishi/fifpanel/mcpserver"
	"github.com/takaishi/fifpanel/search"
)

func (a *app) newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server on stdio",
		Long:  `Exposes fif_search and fif_preview as Model Context Protocol tools over stdio.`,
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.v)
			if err != nil {
				return err
			}
			// fail at startup rather than on the first call
			if _, err := cfg.NewEngine(cfg.Filter()); err != nil {
				return err
			}

			return mcpserver.Serve(mcpserver.Options{
				Root:   cfg.Root,
				Filter: cfg.Filter(),
				NewEngine: func(f search.Filter) search.Engine {
					engine, err := cfg.NewEngine(f)
					if err != nil {
						return search.NewScanner(f)
					}
					return engine
				},
			})
		},
	}
}
