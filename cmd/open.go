// File: cmd/open.go
package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/hometax-cli/internal/browser"
	"github.com/xkilldash9x/hometax-cli/internal/observability"
)

func newOpenCmd() *cobra.Command {
	var (
		port      int
		checkOnly bool
	)

	openCmd := &cobra.Command{
		Use:   "open",
		Short: "Open the browser profile used for filing",
		Long: `Opens a visible browser with the persistent profile and a fixed DevTools port, then
keeps it running until interrupted. Log in there, then start "hometax-cli run" with
--remote-url to drive the same window.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}

			bcfg := cfg.Browser()
			if bcfg.RemoteURL != "" {
				return fmt.Errorf("browser.remote_url is set; 'open' always launches its own browser")
			}
			bcfg.Headless = false
			if port > 0 {
				bcfg.Args = append(append([]string{}, bcfg.Args...), "--remote-debugging-port="+strconv.Itoa(port))
			}

			mgr, err := browser.NewManager(ctx, bcfg, logger)
			if err != nil {
				return fmt.Errorf("failed to start browser: %w", err)
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
				defer cancel()
				if err := mgr.Shutdown(shutdownCtx); err != nil {
					logger.Warn("Error during browser manager shutdown", zap.Error(err))
				}
			}()

			version, err := mgr.Version(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Browser: %s\n", version)
			if checkOnly {
				return nil
			}

			if err := mgr.Navigate(ctx, bcfg.SiteURL); err != nil {
				return err
			}
			if port > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Log in, then run: hometax-cli run --remote-url http://127.0.0.1:%d <workbook>\n", port)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl+C to close the browser.")
			<-ctx.Done()
			return nil
		},
	}

	openCmd.Flags().IntVarP(&port, "port", "p", 9222, "DevTools port to expose (0 picks a random one)")
	openCmd.Flags().BoolVar(&checkOnly, "check", false, "print the browser version and exit")
	return openCmd
}
