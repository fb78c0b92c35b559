package editor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGotoArgs(t *testing.T) {
	assert.Equal(t, []string{"--goto", "src/a.ts:20:3"}, gotoArgs("src/a.ts", 20, 3, false))
	assert.Equal(t, []string{"--reuse-window", "--goto", "a.go:1:1"}, gotoArgs("a.go", 1, 1, true))
}

func TestCLI_NoEditor(t *testing.T) {
	err := New("").Open("a.go", 1, 1)
	assert.ErrorIs(t, err, ErrNoEditor)
}

func TestProcessExists(t *testing.T) {
	assert.False(t, processExists("not-a-pid"))
}
