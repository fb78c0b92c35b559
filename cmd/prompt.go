package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/takaishi/fifpanel/config"
	"golang.org/x/term"
)

// promptQuery reads one line from in. The prompt is only shown when in is an
// interactive terminal.
func promptQuery(in io.Reader, out io.Writer) (string, error) {
	if isTerminal(in) {
		fmt.Fprint(out, "Search: ")
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read query: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// newLogger writes to the configured log file, or to fallback when none is set
func newLogger(cfg *config.Config, fallback io.Writer) (*slog.Logger, func(), error) {
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		return slog.New(slog.NewTextHandler(f, nil)), func() { f.Close() }, nil
	}
	return slog.New(slog.NewTextHandler(fallback, nil)), func() {}, nil
}
