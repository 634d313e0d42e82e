// File: cmd/hometax-cli/main_test.go
package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetMocks() {
	osWriteFile = os.WriteFile
	osExit = os.Exit
}

func TestHandlePanic(t *testing.T) {
	t.Cleanup(resetMocks)
	origDir := panicDir
	t.Cleanup(func() { panicDir = origDir })

	t.Run("should write the panic log and exit with 2", func(t *testing.T) {
		dir := t.TempDir()
		panicDir = func() (string, error) { return dir, nil }
		var code int
		osExit = func(c int) { code = c }

		func() {
			defer handlePanic()
			panic("boom")
		}()

		assert.Equal(t, 2, code)
		data, err := os.ReadFile(filepath.Join(dir, panicLogName))
		require.NoError(t, err)
		assert.Contains(t, string(data), "panic: boom")
		assert.Contains(t, string(data), "goroutine")
	})

	t.Run("should still exit when the log cannot be written", func(t *testing.T) {
		panicDir = func() (string, error) { return t.TempDir(), nil }
		osWriteFile = func(string, []byte, os.FileMode) error { return errors.New("disk full") }
		var code int
		osExit = func(c int) { code = c }

		func() {
			defer handlePanic()
			panic("boom")
		}()

		assert.Equal(t, 2, code)
	})

	t.Run("should do nothing without a panic", func(t *testing.T) {
		called := false
		osExit = func(int) { called = true }

		func() {
			defer handlePanic()
		}()

		assert.False(t, called)
	})
}
