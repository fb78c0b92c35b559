package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/takaishi/fifpanel/editor"
	"github.com/takaishi/fifpanel/search"
)

// EnvPrefix namespaces environment overrides, e.g. FIF_EDITOR
const EnvPrefix = "FIF"

// Configuration keys, shared by flags and environment variables
const (
	KeyRoot    = "root"
	KeyEditor  = "editor"
	KeyEngine  = "engine"
	KeyUI      = "ui"
	KeyAddr    = "addr"
	KeyInclude = "include"
	KeyExclude = "exclude"
	KeyLogFile = "log-file"
)

// Engines and user interfaces
const (
	EngineNative  = "native"
	EngineRipgrep = "rg"

	UITerminal = "tui"
	UIWeb      = "web"
)

// DefaultAddr lets the system pick a free port
const DefaultAddr = "127.0.0.1:0"

// ErrRipgrepMissing is returned when the rg engine is selected but not installed
var ErrRipgrepMissing = errors.New("ripgrep (rg) is not installed or not in PATH")

// Config holds application configuration
type Config struct {
	Root    string
	Editor  editor.Editor
	Engine  string
	UI      string
	Addr    string
	Include []string
	Exclude []string
	LogFile string
}

// New returns a viper instance reading FIF_* environment variables
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyEngine, EngineNative)
	v.SetDefault(KeyUI, UITerminal)
	v.SetDefault(KeyAddr, DefaultAddr)
	v.SetDefault(KeyInclude, search.DefaultInclude)
	v.SetDefault(KeyExclude, search.DefaultExclude)
	return v
}

// RegisterFlags defines the persistent flags of cmd and binds them to v
func RegisterFlags(cmd *cobra.Command, v *viper.Viper) error {
	flags := cmd.PersistentFlags()
	flags.String(KeyRoot, "", "Workspace root (default: git root of the working directory)")
	flags.String(KeyEditor, "", "Editor to use (cursor or code)")
	flags.String(KeyEngine, EngineNative, "Search engine (native or rg)")
	flags.String(KeyUI, UITerminal, "Panel to open (tui or web)")
	flags.String(KeyAddr, DefaultAddr, "Listen address of the web panel")
	flags.StringArray(KeyInclude, search.DefaultInclude, "Glob patterns of files to scan")
	flags.StringArray(KeyExclude, search.DefaultExclude, "Glob patterns of files to skip")
	flags.String(KeyLogFile, "", "Write logs to this file")

	return v.BindPFlags(flags)
}

// Load builds the configuration. Flags win over environment variables,
// which win over detection and defaults.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Engine:  strings.ToLower(strings.TrimSpace(v.GetString(KeyEngine))),
		UI:      strings.ToLower(strings.TrimSpace(v.GetString(KeyUI))),
		Addr:    v.GetString(KeyAddr),
		Include: splitList(v.GetStringSlice(KeyInclude)),
		Exclude: splitList(v.GetStringSlice(KeyExclude)),
		LogFile: v.GetString(KeyLogFile),
	}

	root, err := resolveRoot(v.GetString(KeyRoot))
	if err != nil {
		return nil, err
	}
	cfg.Root = root

	// Determine editor
	if name := v.GetString(KeyEditor); name != "" {
		ed := editor.Editor(strings.ToLower(name))
		if ed != editor.EditorCursor && ed != editor.EditorCode {
			return nil, fmt.Errorf("unknown editor %q (cursor or code)", name)
		}
		cfg.Editor = ed
	} else if ed, err := editor.DetectEditor(); err == nil {
		cfg.Editor = ed
	}

	switch cfg.Engine {
	case EngineNative, EngineRipgrep:
	default:
		return nil, fmt.Errorf("unknown engine %q (native or rg)", cfg.Engine)
	}
	switch cfg.UI {
	case UITerminal, UIWeb:
	default:
		return nil, fmt.Errorf("unknown ui %q (tui or web)", cfg.UI)
	}

	if err := cfg.Filter().Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Filter returns the include and exclude globs as a search filter
func (c *Config) Filter() search.Filter {
	return search.Filter{Include: c.Include, Exclude: c.Exclude}
}

// NewEngine builds the configured engine for filter
func (c *Config) NewEngine(filter search.Filter) (search.Engine, error) {
	if c.Engine == EngineRipgrep {
		rg := search.NewRipgrep(filter)
		if !rg.Available() {
			return nil, ErrRipgrepMissing
		}
		return rg, nil
	}
	return search.NewScanner(filter), nil
}

// Navigator returns the editor jump for the configured editor
func (c *Config) Navigator() editor.Navigator {
	return editor.New(c.Editor)
}

// resolveRoot makes an explicit root absolute; no root means the git root
// of the working directory, or the working directory itself
func resolveRoot(root string) (string, error) {
	if root == "" {
		return search.WorkspaceRoot(""), nil
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve root %s: %w", root, err)
	}
	return abs, nil
}

// splitList flattens comma-separated entries, as they arrive from env vars
func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		out = append(out, search.SplitPatterns(item)...)
	}
	return out
}
