// Package cmd defines the fif command line: the root command opens a search
// panel, subcommands expose the scan, the preview, the web panel and the MCP
// server on their own.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/takaishi/fifpanel/config"
	"github.com/takaishi/fifpanel/panel"
	"github.com/takaishi/fifpanel/tui"
	"github.com/takaishi/fifpanel/web"
)

// app carries the configuration source shared by all commands
type app struct {
	v *viper.Viper
}

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
	a := &app{v: config.New()}

	root := &cobra.Command{
		Use:   "fif [query]",
		Short: "Find in files",
		Long: `fif searches the workspace for an exact, case-sensitive text and shows the
matches in a panel with a code preview. Double-click or Enter opens the match
in your editor (cursor or code).`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          a.runPanel,
	}
	cobra.CheckErr(config.RegisterFlags(root, a.v))

	root.AddCommand(
		a.newSearchCmd(),
		a.newPreviewCmd(),
		a.newServeCmd(),
		a.newMCPCmd(),
	)
	return root
}

// Execute runs the root command and exits with status 1 on error.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, panel.ErrEmptyQuery) {
			printError(root.ErrOrStderr(), "Error: "+err.Error())
		}
		stop()
		os.Exit(1)
	}
}

// runPanel asks for a query when none was given and opens the configured panel
func (a *app) runPanel(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}

	query := strings.Join(args, " ")
	if query == "" {
		query, err = promptQuery(cmd.InOrStdin(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}
	}
	if query == "" {
		printError(cmd.ErrOrStderr(), "Search term cannot be empty.")
		return panel.ErrEmptyQuery
	}

	// the terminal panel owns the screen, so logs only go to a file
	logOut := cmd.ErrOrStderr()
	if cfg.UI == config.UITerminal {
		logOut = io.Discard
	}
	logger, closeLog, err := newLogger(cfg, logOut)
	if err != nil {
		return err
	}
	defer closeLog()

	opts, err := panelOptions(cfg, logger)
	if err != nil {
		return err
	}

	if cfg.UI == config.UIWeb {
		return serveWeb(cmd, cfg, opts, query)
	}
	return tui.Run(cmd.Context(), opts, query)
}

// panelOptions wires the configured engine and editor into a host session
func panelOptions(cfg *config.Config, logger *slog.Logger) (panel.Options, error) {
	engine, err := cfg.NewEngine(cfg.Filter())
	if err != nil {
		return panel.Options{}, err
	}
	if cfg.Editor == "" {
		logger.Warn("no editor found, opening files is disabled")
	}
	dir, err := os.Getwd()
	if err != nil {
		logger.Warn("working directory unavailable, directory scope is the root", "error", err)
		dir = ""
	}
	return panel.Options{
		Root:      cfg.Root,
		Dir:       dir,
		Engine:    engine,
		Navigator: cfg.Navigator(),
		Logger:    logger,
		Filter:    cfg.Filter(),
		NewEngine: cfg.NewEngine,
	}, nil
}

func serveWeb(cmd *cobra.Command, cfg *config.Config, opts panel.Options, query string) error {
	s := web.NewServer(opts, query)
	return s.ListenAndServe(cmd.Context(), cfg.Addr, func(url string) {
		fmt.Fprintf(cmd.ErrOrStderr(), "Panel: %s\n", url)
	})
}

func printError(w io.Writer, msg string) {
	red := color.New(color.FgRed, color.Bold)
	red.Fprintln(w, msg)
}
