// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/xkilldash9x/hometax-cli/internal/source"
	"github.com/xkilldash9x/hometax-cli/internal/wizard"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Browser() BrowserConfig
	Input() InputConfig
	Wizard() WizardConfig
	Report() ReportConfig
	Database() DatabaseConfig
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	BrowserCfg  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
	InputCfg    InputConfig    `mapstructure:"input" yaml:"input"`
	WizardCfg   WizardConfig   `mapstructure:"wizard" yaml:"wizard"`
	ReportCfg   ReportConfig   `mapstructure:"report" yaml:"report"`
	DatabaseCfg DatabaseConfig `mapstructure:"database" yaml:"database"`
}

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig     { return c.LoggerCfg }
func (c *Config) Browser() BrowserConfig   { return c.BrowserCfg }
func (c *Config) Input() InputConfig       { return c.InputCfg }
func (c *Config) Wizard() WizardConfig     { return c.WizardCfg }
func (c *Config) Report() ReportConfig     { return c.ReportCfg }
func (c *Config) Database() DatabaseConfig { return c.DatabaseCfg }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig holds settings for the browser the wizard runs in.
type BrowserConfig struct {
	// RemoteURL attaches to a running browser's DevTools endpoint instead of launching one.
	RemoteURL       string        `mapstructure:"remote_url" yaml:"remote_url"`
	ExecPath        string        `mapstructure:"exec_path" yaml:"exec_path"`
	ProfileDir      string        `mapstructure:"profile_dir" yaml:"profile_dir"`
	UserAgent       string        `mapstructure:"user_agent" yaml:"user_agent"`
	SiteURL         string        `mapstructure:"site_url" yaml:"site_url"`
	Headless        bool          `mapstructure:"headless" yaml:"headless"`
	IgnoreTLSErrors bool          `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	Args            []string      `mapstructure:"args" yaml:"args"`
	LaunchTimeout   time.Duration `mapstructure:"launch_timeout" yaml:"launch_timeout"`
	// ActionTimeout bounds every single page action (lookup, click, typing).
	ActionTimeout time.Duration `mapstructure:"action_timeout" yaml:"action_timeout"`
}

// InputConfig describes where records are read from.
type InputConfig struct {
	Path       string `mapstructure:"path" yaml:"path"`
	Sheet      string `mapstructure:"sheet" yaml:"sheet"`
	HeaderRows int    `mapstructure:"header_rows" yaml:"header_rows"`
	KeepBlank  bool   `mapstructure:"keep_blank" yaml:"keep_blank"`
}

// SourceOptions converts the section into reader options.
func (c InputConfig) SourceOptions() source.Options {
	return source.Options{HeaderRows: c.HeaderRows, KeepBlank: c.KeepBlank}
}

// WizardConfig holds the page element table, modal vocabulary and timing.
type WizardConfig struct {
	Elements       map[string]string `mapstructure:"elements" yaml:"elements"`
	IDPrefix       string            `mapstructure:"id_prefix" yaml:"id_prefix"`
	WorkingFrame   string            `mapstructure:"working_frame" yaml:"working_frame"`
	Messages       MessagesConfig    `mapstructure:"messages" yaml:"messages"`
	Timeouts       TimeoutsConfig    `mapstructure:"timeouts" yaml:"timeouts"`
	RecordInterval time.Duration     `mapstructure:"record_interval" yaml:"record_interval"`
}

// MessagesConfig holds the modal prefixes and option labels of the site.
type MessagesConfig struct {
	Verified        string `mapstructure:"verified" yaml:"verified"`
	Recalculated    string `mapstructure:"recalculated" yaml:"recalculated"`
	Processed       string `mapstructure:"processed" yaml:"processed"`
	Duplicate       string `mapstructure:"duplicate" yaml:"duplicate"`
	HeadOfHousehold string `mapstructure:"head_of_household" yaml:"head_of_household"`
	HouseholdMember string `mapstructure:"household_member" yaml:"household_member"`
	EntryText       string `mapstructure:"entry_text" yaml:"entry_text"`
}

// TimeoutsConfig bounds the waits of each wizard step.
type TimeoutsConfig struct {
	IDCheck       time.Duration `mapstructure:"id_check" yaml:"id_check"`
	Confirm       time.Duration `mapstructure:"confirm" yaml:"confirm"`
	Recalculation time.Duration `mapstructure:"recalculation" yaml:"recalculation"`
	SubmitConfirm time.Duration `mapstructure:"submit_confirm" yaml:"submit_confirm"`
	SubmitResult  time.Duration `mapstructure:"submit_result" yaml:"submit_result"`
	Settle        time.Duration `mapstructure:"settle" yaml:"settle"`
}

// Settings builds controller settings from the section.
func (c WizardConfig) Settings() (wizard.Settings, error) {
	el, err := wizard.NewElements(c.Elements, c.IDPrefix)
	if err != nil {
		return wizard.Settings{}, err
	}
	m, t := c.Messages, c.Timeouts
	return wizard.Settings{
		Elements:     el,
		WorkingFrame: c.WorkingFrame,
		Messages: wizard.Messages{
			Verified:        m.Verified,
			Recalculated:    m.Recalculated,
			Processed:       m.Processed,
			Duplicate:       m.Duplicate,
			HeadOfHousehold: m.HeadOfHousehold,
			HouseholdMember: m.HouseholdMember,
			EntryText:       m.EntryText,
		},
		Timeouts: wizard.Timeouts{
			IDCheck:       t.IDCheck,
			Confirm:       t.Confirm,
			Recalculation: t.Recalculation,
			SubmitConfirm: t.SubmitConfirm,
			SubmitResult:  t.SubmitResult,
			Settle:        t.Settle,
		},
	}, nil
}

// ReportConfig controls where and how the error report is written.
type ReportConfig struct {
	Dir    string `mapstructure:"dir" yaml:"dir"`
	Format string `mapstructure:"format" yaml:"format"`
	// Open shows the report in the desktop's default application after a run.
	Open bool `mapstructure:"open" yaml:"open"`
}

// DatabaseConfig holds the database connection details. An empty URL
// disables the run journal.
type DatabaseConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// NewDefaultConfig returns the configuration produced by SetDefaults alone.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "hometax-cli")
	v.SetDefault("logger.log_file", "~/.hometax-cli/hometax.log")
	v.SetDefault("logger.max_size", 20)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.remote_url", "")
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.profile_dir", "~/.hometax-cli/profile")
	v.SetDefault("browser.user_agent",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36 Edg/121.0.0.0")
	v.SetDefault("browser.site_url", "https://www.hometax.go.kr")
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.launch_timeout", "30s")
	v.SetDefault("browser.action_timeout", "7s")

	// -- Input --
	v.SetDefault("input.header_rows", source.DefaultHeaderRows)
	v.SetDefault("input.keep_blank", false)

	// -- Wizard --
	v.SetDefault("wizard.elements", wizard.DefaultElementTable())
	v.SetDefault("wizard.id_prefix", "")
	v.SetDefault("wizard.working_frame", wizard.DefaultWorkingFrame)
	msgs := wizard.DefaultMessages()
	v.SetDefault("wizard.messages.verified", msgs.Verified)
	v.SetDefault("wizard.messages.recalculated", msgs.Recalculated)
	v.SetDefault("wizard.messages.processed", msgs.Processed)
	v.SetDefault("wizard.messages.duplicate", msgs.Duplicate)
	v.SetDefault("wizard.messages.head_of_household", msgs.HeadOfHousehold)
	v.SetDefault("wizard.messages.household_member", msgs.HouseholdMember)
	v.SetDefault("wizard.messages.entry_text", "")
	t := wizard.DefaultTimeouts()
	v.SetDefault("wizard.timeouts.id_check", t.IDCheck)
	v.SetDefault("wizard.timeouts.confirm", t.Confirm)
	v.SetDefault("wizard.timeouts.recalculation", t.Recalculation)
	v.SetDefault("wizard.timeouts.submit_confirm", t.SubmitConfirm)
	v.SetDefault("wizard.timeouts.submit_result", t.SubmitResult)
	v.SetDefault("wizard.timeouts.settle", t.Settle)
	v.SetDefault("wizard.record_interval", "2s")

	// -- Report --
	v.SetDefault("report.dir", "~/Desktop")
	v.SetDefault("report.format", "xlsx")
	v.SetDefault("report.open", false)

	// -- Database --
	v.SetDefault("database.url", "")
}

// NewConfigFromViper unmarshals and validates the configuration held by v.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// The journal DSN usually carries a password; allow it from the environment
	// without a config file entry.
	_ = v.BindEnv("database.url", "HOMETAX_DATABASE_URL", "DATABASE_URL")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	switch strings.ToLower(c.LoggerCfg.Format) {
	case "console", "json":
	default:
		return fmt.Errorf("logger.format must be 'console' or 'json'")
	}
	if c.InputCfg.HeaderRows < 0 {
		return fmt.Errorf("input.header_rows must not be negative")
	}
	if c.BrowserCfg.ActionTimeout <= 0 {
		return fmt.Errorf("browser.action_timeout must be positive")
	}
	if c.WizardCfg.RecordInterval < 0 {
		return fmt.Errorf("wizard.record_interval must not be negative")
	}
	switch c.ReportCfg.Format {
	case "xlsx", "json":
	default:
		return fmt.Errorf("report.format must be 'xlsx' or 'json'")
	}
	s, err := c.WizardCfg.Settings()
	if err == nil {
		err = s.Validate()
	}
	if err != nil {
		return fmt.Errorf("wizard configuration invalid: %w", err)
	}
	return nil
}
