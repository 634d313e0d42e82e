// -- cmd/root.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/hometax-cli/internal/config"
	"github.com/xkilldash9x/hometax-cli/internal/observability"
)

type contextKey string

const configKey contextKey = "config"

// viperKeyAnnotation marks a flag that overrides a configuration key.
const viperKeyAnnotation = "hometax_viper_key"

// NewRootCommand builds a fresh command tree. Every call has its own viper
// instance and flag state, so tests can execute it repeatedly.
func NewRootCommand() *cobra.Command {
	return newRootCommand(NewJournalProvider())
}

func newRootCommand(journals journalProvider) *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "hometax-cli",
		Short: "Files wage statements into the Hometax wizard from a spreadsheet.",
		Long: `hometax-cli reads wage statement rows from an Excel workbook and enters them,
one at a time, into the Hometax wage statement wizard in a browser you are logged in to.
Rows that fail are collected into an error report with the same columns as the input.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			config.SetDefaults(v)

			if err := initializeConfig(cmd, v, cfgFile); err != nil {
				observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "hometax-cli"})
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}

			cfg, err := config.NewConfigFromViper(v)
			if err != nil {
				observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "hometax-cli"})
				return fmt.Errorf("failed to load or validate config: %w", err)
			}

			observability.InitializeLogger(cfg.Logger())
			observability.GetLogger().Debug("Starting hometax-cli", zap.String("version", Version), zap.String("command", cmd.Name()))

			cmd.SetContext(context.WithValue(cmd.Context(), configKey, cfg))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	rootCmd.SetVersionTemplate(`{{printf "%s version %s\n" .Name .Version}}`)

	rootCmd.AddCommand(
		newRunCmd(journals),
		newOpenCmd(),
		newCheckCmd(),
		newSheetsCmd(),
		newExampleCmd(),
		newHistoryCmd(journals),
		newLogsCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute runs the command tree under ctx and reports a failure once.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCommand()
	err := rootCmd.ExecuteContext(ctx)
	defer observability.Sync()
	if err != nil && !errors.Is(err, context.Canceled) {
		observability.GetLogger().Error("Command execution failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}

// initializeConfig layers .env, the config file, HOMETAX_* environment
// variables and annotated flags onto v, lowest precedence first.
func initializeConfig(cmd *cobra.Command, v *viper.Viper, cfgFile string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("error reading .env file: %w", err)
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("HOMETAX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if keys, ok := f.Annotations[viperKeyAnnotation]; ok && len(keys) > 0 && bindErr == nil {
			bindErr = v.BindPFlag(keys[0], f)
		}
	})
	return bindErr
}

// bindFlag ties a flag to a configuration key so an explicit flag wins over
// the file and environment.
func bindFlag(cmd *cobra.Command, flag, key string) {
	if err := cmd.Flags().SetAnnotation(flag, viperKeyAnnotation, []string{key}); err != nil {
		panic(fmt.Sprintf("binding unknown flag %q: %v", flag, err))
	}
}

// configFrom returns the configuration loaded by the root command.
func configFrom(cmd *cobra.Command) (*config.Config, error) {
	if ctx := cmd.Context(); ctx != nil {
		if cfg, ok := ctx.Value(configKey).(*config.Config); ok && cfg != nil {
			return cfg, nil
		}
	}
	return nil, fmt.Errorf("configuration not initialized")
}
