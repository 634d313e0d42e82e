// File: cmd/run.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mitchellh/go-homedir"
	pkgbrowser "github.com/pkg/browser"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/hometax-cli/internal/browser"
	"github.com/xkilldash9x/hometax-cli/internal/config"
	"github.com/xkilldash9x/hometax-cli/internal/observability"
	"github.com/xkilldash9x/hometax-cli/internal/orchestrator"
	"github.com/xkilldash9x/hometax-cli/internal/report"
	"github.com/xkilldash9x/hometax-cli/internal/source"
	"github.com/xkilldash9x/hometax-cli/internal/store"
	"github.com/xkilldash9x/hometax-cli/internal/wizard"
)

// openFile shows a file in the desktop's default application.
var openFile = pkgbrowser.OpenFile

func newRunCmd(journals journalProvider) *cobra.Command {
	var assumeYes bool

	runCmd := &cobra.Command{
		Use:   "run [workbook]",
		Short: "Enter every row of a workbook into the wage statement wizard",
		Long: `Launches the browser with the persistent profile (or attaches to one started with
"hometax-cli open"), waits until you have logged in and opened the wage statement entry
page, then enters the rows one by one. Rows that fail are written to an error report that
can be fed back into this command with --header-rows 1.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}

			inputPath := cfg.Input().Path
			if len(args) == 1 {
				inputPath = args[0]
			}
			if inputPath == "" {
				return fmt.Errorf("no workbook given: pass a path or set input.path")
			}
			sheet, err := chooseSheet(inputPath, cfg.Input().Sheet)
			if err != nil {
				return err
			}
			settings, err := cfg.Wizard().Settings()
			if err != nil {
				return err
			}

			src, err := source.Open(inputPath, sheet, cfg.Input().SourceOptions(), logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := src.Close(); err != nil {
					logger.Warn("Failed to close workbook.", zap.Error(err))
				}
			}()

			// Ctrl+C must not tear the session down under a record in flight;
			// the deferred Shutdown closes it once the run loop has stopped.
			mgr, err := browser.NewManager(context.WithoutCancel(ctx), cfg.Browser(), logger)
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
			if version, err := mgr.Version(ctx); err == nil {
				logger.Info("Browser ready.", zap.String("version", version))
			}

			if cfg.Browser().RemoteURL == "" {
				if err := mgr.Navigate(ctx, cfg.Browser().SiteURL); err != nil {
					return err
				}
			}
			if !assumeYes {
				ok, err := confirm("Log in, open the wage statement entry page, then confirm to start.", true)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
					return nil
				}
			}

			ctrl, err := wizard.NewController(mgr.Driver(settings.WorkingFrame), settings, logger)
			if err != nil {
				return err
			}
			orch, err := orchestrator.New(src, ctrl, logger,
				orchestrator.WithPacing(cfg.Wizard().RecordInterval),
				orchestrator.WithObserver(progressObserver{w: cmd.OutOrStdout()}),
			)
			if err != nil {
				return err
			}

			res, runErr := orch.Run(ctx)
			if res == nil {
				return runErr
			}
			meta := store.RunMeta{InputPath: inputPath, Sheet: sheet}
			if err := finishRun(ctx, cmd.OutOrStdout(), cfg, journals, meta, res, logger); err != nil {
				return errors.Join(runErr, err)
			}
			return runErr
		},
	}

	runCmd.Flags().StringP("sheet", "s", "", "sheet to read (prompted when the workbook has several)")
	runCmd.Flags().Int("header-rows", source.DefaultHeaderRows, "rows above the first record")
	runCmd.Flags().String("remote-url", "", "attach to a browser started with 'hometax-cli open' (e.g. http://127.0.0.1:9222)")
	runCmd.Flags().String("report-dir", "", "directory of the error report")
	runCmd.Flags().String("format", "", "error report format: xlsx or json")
	runCmd.Flags().Duration("interval", 0, "minimum time between records")
	runCmd.Flags().Bool("open-report", false, "open the error report when the run ends")
	runCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "start without waiting for confirmation")

	bindFlag(runCmd, "sheet", "input.sheet")
	bindFlag(runCmd, "header-rows", "input.header_rows")
	bindFlag(runCmd, "remote-url", "browser.remote_url")
	bindFlag(runCmd, "report-dir", "report.dir")
	bindFlag(runCmd, "format", "report.format")
	bindFlag(runCmd, "interval", "wizard.record_interval")
	bindFlag(runCmd, "open-report", "report.open")
	return runCmd
}

// finishRun writes the error report, journals the run when a database is
// configured and prints the summary. The report is written for every run, as
// a header-only table when nothing failed. A journal failure is logged, never
// returned: the report on disk is what the operator needs.
func finishRun(ctx context.Context, out io.Writer, cfg config.Interface, journals journalProvider, meta store.RunMeta, res *orchestrator.Result, logger *zap.Logger) error {
	path, err := writeReport(cfg.Report(), meta.InputPath, meta.Sheet, res.Report, res.FinishedAt)
	if err != nil {
		return err
	}
	meta.ReportPath = path
	logger.Info("Error report written.", zap.String("path", path), zap.Int("rows", res.Report.Len()))

	if cfg.Database().URL != "" && journals != nil {
		j, cleanup, err := journals.Open(ctx, cfg.Database(), logger)
		if err != nil {
			logger.Warn("Run journal unavailable.", zap.Error(err))
		} else {
			if err := j.SaveRun(context.WithoutCancel(ctx), meta, res); err != nil {
				logger.Warn("Failed to journal run.", zap.String("run_id", res.RunID), zap.Error(err))
			}
			cleanup()
		}
	}

	if err := printSummary(out, res, meta.ReportPath); err != nil {
		return err
	}
	if res.Report.Len() > 0 && cfg.Report().Open {
		if err := openFile(meta.ReportPath); err != nil {
			logger.Warn("Could not open the error report.", zap.Error(err))
		}
	}
	return nil
}

// writeReport saves rep next to the other reports and returns its path.
func writeReport(cfg config.ReportConfig, inputPath, sheet string, rep *report.Report, now time.Time) (string, error) {
	w, err := report.New(cfg.Format)
	if err != nil {
		return "", err
	}
	dir, err := homedir.Expand(cfg.Dir)
	if err != nil {
		return "", fmt.Errorf("expanding report dir: %w", err)
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating report dir: %w", err)
	}
	path := report.DefaultPath(dir, inputPath, sheet, w.Ext(), now)
	if err := w.Write(path, rep); err != nil {
		return "", err
	}
	return path, nil
}
