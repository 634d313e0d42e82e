// File: cmd/hometax-cli/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"syscall"

	"github.com/mitchellh/go-homedir"

	"github.com/xkilldash9x/hometax-cli/cmd"
	"github.com/xkilldash9x/hometax-cli/internal/observability"
)

const panicLogName = "panic.log"

// Swapped in tests.
var (
	osWriteFile = os.WriteFile
	osExit      = os.Exit
	panicDir    = func() (string, error) { return homedir.Expand("~/.hometax-cli") }
)

func main() {
	defer handlePanic()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx); err != nil {
		// Ctrl+C mid-run still wrote its report; that is a clean exit.
		if errors.Is(err, context.Canceled) {
			osExit(0)
			return
		}
		osExit(1)
	}
}

// handlePanic keeps the stack of a crash next to the logs so the operator can
// send it along with the error report.
func handlePanic() {
	r := recover()
	if r == nil {
		return
	}
	observability.Sync()

	panicMessage := fmt.Sprintf("panic: %v\n\n%s", r, debug.Stack())
	path := panicLogName
	if dir, err := panicDir(); err == nil && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err == nil {
			path = filepath.Join(dir, panicLogName)
		}
	}

	if err := osWriteFile(path, []byte(panicMessage), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL: Failed to write panic log: %v\n", err)
		fmt.Fprintf(os.Stderr, "Panic details:\n%s\n", panicMessage)
		osExit(2)
		return
	}
	fmt.Fprintf(os.Stderr, "hometax-cli crashed. Details logged to %s\n", path)
	osExit(2)
}
