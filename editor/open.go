package editor

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"syscall"
)

// Editor represents an editor type
type Editor string

const (
	EditorCursor Editor = "cursor"
	EditorCode   Editor = "code"
)

// ErrNoEditor is returned when no supported editor is configured or installed
var ErrNoEditor = errors.New("no editor found (cursor or code)")

// Navigator opens a file with the cursor placed on a line
type Navigator interface {
	Open(file string, line, column int) error
}

// DetectEditor detects which editor is available
func DetectEditor() (Editor, error) {
	for _, ed := range []Editor{EditorCursor, EditorCode} {
		if _, err := exec.LookPath(string(ed)); err == nil {
			return ed, nil
		}
	}
	return "", ErrNoEditor
}

// CLI navigates by invoking the editor's command line
type CLI struct {
	Editor Editor
}

// New returns a Navigator for ed. An empty ed yields a Navigator whose
// Open always fails with ErrNoEditor.
func New(ed Editor) *CLI {
	return &CLI{Editor: ed}
}

// Open implements Navigator
func (c *CLI) Open(file string, line, column int) error {
	if c.Editor == "" {
		return ErrNoEditor
	}
	return OpenFile(c.Editor, file, line, column)
}

// OpenFile opens a file in the specified editor at the given line and column
func OpenFile(editor Editor, file string, line, column int) error {
	if line < 1 {
		line = 1
	}
	if column < 1 {
		column = 1
	}

	hasExistingInstance, _ := findExistingInstance(editor)
	reuse := hasExistingInstance || isRunningInEditor()

	// On macOS the URL scheme is more reliable for targeting an open window
	if runtime.GOOS == "darwin" && reuse && editor == EditorCursor {
		if absPath, err := filepath.Abs(file); err == nil {
			url := fmt.Sprintf("cursor://file/%s:%d:%d", absPath, line, column)
			if err := exec.Command("open", "-u", url).Run(); err == nil {
				return nil
			}
		}
	}

	cmd := exec.Command(string(editor), gotoArgs(file, line, column, reuse)...)
	cmd.Stdout = nil
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", editor, err)
	}

	// Don't wait: the editor CLI may linger and the caller keeps running
	go cmd.Wait()

	return nil
}

// gotoArgs builds the CLI arguments for a jump to file:line:column
func gotoArgs(file string, line, column int, reuse bool) []string {
	args := []string{"--goto", fmt.Sprintf("%s:%d:%d", file, line, column)}
	if reuse {
		args = append([]string{"--reuse-window"}, args...)
	}
	return args
}

// isRunningInEditor checks if the process is running inside a Cursor or VS Code terminal
func isRunningInEditor() bool {
	if ipcHook := os.Getenv("VSCODE_IPC_HOOK"); ipcHook != "" {
		if _, err := os.Stat(ipcHook); err == nil || strings.HasSuffix(ipcHook, ".sock") {
			return true
		}
	}

	for _, env := range []string{"CURSOR_PID", "VSCODE_PID"} {
		if pid := os.Getenv(env); pid != "" && processExists(pid) {
			return true
		}
	}

	if os.Getenv("CURSOR_AGENT") != "" {
		return true
	}

	if runtime.GOOS != "windows" {
		if ppid := os.Getppid(); ppid > 0 {
			output, err := exec.Command("ps", "-p", strconv.Itoa(ppid), "-o", "comm=").Output()
			if err == nil {
				parent := strings.ToLower(strings.TrimSpace(string(output)))
				if strings.Contains(parent, "cursor") || strings.Contains(parent, "code") {
					return true
				}
			}
		}
	}

	return false
}

// findExistingInstance looks for the IPC socket of a running instance
func findExistingInstance(editor Editor) (bool, string) {
	if ipcHook := os.Getenv("VSCODE_IPC_HOOK"); ipcHook != "" {
		if info, err := os.Stat(ipcHook); err == nil && info.Mode()&os.ModeSocket != 0 {
			return true, ipcHook
		}
		if strings.HasSuffix(ipcHook, ".sock") {
			return true, ipcHook
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return false, ""
	}

	app, dot := "Code", ".vscode"
	if editor == EditorCursor {
		app, dot = "Cursor", ".cursor"
	}
	for _, pattern := range []string{
		filepath.Join(homeDir, "Library", "Application Support", app, "*.sock"),
		filepath.Join(homeDir, dot, "*.sock"),
	} {
		if matches, err := filepath.Glob(pattern); err == nil && len(matches) > 0 {
			return true, matches[0]
		}
	}

	return false, ""
}

// processExists checks if a process with the given PID exists
func processExists(pidStr string) bool {
	pid, err := strconv.Atoi(pidStr)
	if err != nil {
		return false
	}

	// Signal 0 only checks for existence
	if runtime.GOOS != "windows" {
		return syscall.Kill(pid, 0) == nil
	}

	process, err := os.FindProcess(pid)
	return err == nil && process != nil
}
