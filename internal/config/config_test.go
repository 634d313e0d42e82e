// File: internal/config/config_test.go
package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/hometax-cli/internal/wizard"
)

// -- Constructor and Defaults Tests --

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger().Level)
	assert.Equal(t, "hometax-cli", cfg.Logger().ServiceName)
	assert.False(t, cfg.Browser().Headless)
	assert.Equal(t, "https://www.hometax.go.kr", cfg.Browser().SiteURL)
	assert.Contains(t, cfg.Browser().UserAgent, "Edg/121.0.0.0")
	assert.Equal(t, 7*time.Second, cfg.Browser().ActionTimeout)
	assert.Equal(t, 6, cfg.Input().HeaderRows)
	assert.Equal(t, "txppIframe", cfg.Wizard().WorkingFrame)
	assert.Equal(t, 2*time.Second, cfg.Wizard().RecordInterval)
	assert.Equal(t, wizard.DefaultTimeouts().SubmitResult, cfg.Wizard().Timeouts.SubmitResult)
	assert.Equal(t, "xlsx", cfg.Report().Format)
	assert.Empty(t, cfg.Database().URL)

	require.NoError(t, cfg.Validate(), "defaults must always validate")
}

func TestWizardConfigSettings(t *testing.T) {
	t.Run("should mirror the wizard defaults", func(t *testing.T) {
		s, err := NewDefaultConfig().Wizard().Settings()
		require.NoError(t, err)

		def := wizard.DefaultSettings()
		assert.Equal(t, def.Messages, s.Messages)
		assert.Equal(t, def.Timeouts, s.Timeouts)
		assert.Equal(t, def.WorkingFrame, s.WorkingFrame)
		assert.Equal(t, def.Elements.ID(wizard.KeyAdd), s.Elements.ID(wizard.KeyAdd))
	})

	t.Run("should apply the id prefix", func(t *testing.T) {
		wc := NewDefaultConfig().Wizard()
		wc.IDPrefix = "mf_txppWframe_"

		s, err := wc.Settings()
		require.NoError(t, err)
		assert.Equal(t, "mf_txppWframe_edtIeNm", s.Elements.ID(wizard.KeyName))
	})

	t.Run("should fail when a required element is missing", func(t *testing.T) {
		wc := NewDefaultConfig().Wizard()
		wc.Elements = map[string]string{wizard.KeyName: "edtIeNm"}

		_, err := wc.Settings()
		assert.Error(t, err)
	})
}

// -- Validation Logic Tests --

func TestConfigValidation(t *testing.T) {
	cfg := NewDefaultConfig()
	require.NoError(t, cfg.Validate())

	cases := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"bad log format", func(c *Config) { c.LoggerCfg.Format = "xml" }, "logger.format"},
		{"negative header rows", func(c *Config) { c.InputCfg.HeaderRows = -1 }, "input.header_rows"},
		{"zero action timeout", func(c *Config) { c.BrowserCfg.ActionTimeout = 0 }, "browser.action_timeout"},
		{"negative interval", func(c *Config) { c.WizardCfg.RecordInterval = -time.Second }, "wizard.record_interval"},
		{"unknown report format", func(c *Config) { c.ReportCfg.Format = "csv" }, "report.format"},
		{"incomplete element table", func(c *Config) { c.WizardCfg.Elements = map[string]string{} }, "wizard configuration invalid"},
		{"zero confirm timeout", func(c *Config) { c.WizardCfg.Timeouts.Confirm = 0 }, "wizard configuration invalid"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := NewDefaultConfig()
			tc.mutate(c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

// -- Factory Function Tests --

func TestNewConfigFromViper(t *testing.T) {
	t.Run("Successful Load from YAML", func(t *testing.T) {
		yamlBytes := []byte(`
input:
  path: "/tmp/wages.xlsx"
  sheet: "2024"
wizard:
  record_interval: 500ms
  timeouts:
    submit_result: 20s
report:
  format: json
`)
		v := viper.New()
		SetDefaults(v)
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(bytes.NewBuffer(yamlBytes)))

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)

		assert.Equal(t, "/tmp/wages.xlsx", cfg.Input().Path)
		assert.Equal(t, "2024", cfg.Input().Sheet)
		assert.Equal(t, 500*time.Millisecond, cfg.Wizard().RecordInterval)
		assert.Equal(t, 20*time.Second, cfg.Wizard().Timeouts.SubmitResult)
		// Untouched siblings keep their defaults.
		assert.Equal(t, wizard.DefaultTimeouts().Confirm, cfg.Wizard().Timeouts.Confirm)
		assert.Equal(t, "json", cfg.Report().Format)
		assert.Equal(t, "info", cfg.Logger().Level)
	})

	t.Run("Validation Failure", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.Set("report.format", "pdf")

		cfg, err := NewConfigFromViper(v)
		assert.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "invalid configuration")
		assert.Contains(t, err.Error(), "report.format")
	})

	t.Run("Environment Variable Binding", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(bytes.NewBufferString(`
database:
  url: "postgres://configfile/db"
`)))

		testDBURL := "postgres://envvar/db"
		t.Setenv("HOMETAX_DATABASE_URL", testDBURL)

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, testDBURL, cfg.Database().URL)
	})
}

// -- Struct and Mapping Tests --

func TestConfigStructureMapping(t *testing.T) {
	yamlInput := `
logger:
  level: debug
  log_file: /var/log/hometax.log
browser:
  headless: true
  args: ["--lang=ko-KR"]
input:
  header_rows: 1
`
	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBufferString(yamlInput)))

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))

	assert.Equal(t, "debug", cfg.Logger().Level)
	assert.Equal(t, "/var/log/hometax.log", cfg.Logger().LogFile)
	assert.True(t, cfg.Browser().Headless)
	assert.Equal(t, []string{"--lang=ko-KR"}, cfg.Browser().Args)
	assert.Equal(t, 1, cfg.Input().SourceOptions().HeaderRows)
	assert.Equal(t, "edtIeNm", cfg.Wizard().Elements[wizard.KeyName])
}
