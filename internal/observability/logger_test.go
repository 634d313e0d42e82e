// internal/observability/logger_test.go
package observability

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	json "github.com/json-iterator/go"
	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/xkilldash9x/hometax-cli/internal/config"
)

// syncBuffer is a WriteSyncer over a mutex-guarded buffer.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Sync() error { return nil }

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

var _ zapcore.WriteSyncer = (*syncBuffer)(nil)

func TestInitialize(t *testing.T) {
	t.Run("should initialize console logger with colors", func(t *testing.T) {
		ResetForTest()
		t.Cleanup(ResetForTest)
		var buf syncBuffer

		Initialize(config.LoggerConfig{
			Level:       "debug",
			Format:      "console",
			ServiceName: "hometax-cli",
			Colors:      config.ColorConfig{Info: "green"},
		}, &buf)
		GetLogger().Named("orchestrator").Info("Run started.")
		Sync()

		output := buf.String()
		assert.Contains(t, output, colorGreen+"INFO"+colorReset)
		assert.Contains(t, output, "hometax-cli.orchestrator.")
		assert.Contains(t, output, "Run started.")
	})

	t.Run("should fall back to the default palette", func(t *testing.T) {
		ResetForTest()
		t.Cleanup(ResetForTest)
		var buf syncBuffer

		Initialize(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "svc"}, &buf)
		GetLogger().Warn("careful")
		Sync()

		assert.Contains(t, buf.String(), colorYellow+"WARN"+colorReset)
	})

	t.Run("should initialize json logger", func(t *testing.T) {
		ResetForTest()
		t.Cleanup(ResetForTest)
		var buf syncBuffer

		Initialize(config.LoggerConfig{Level: "info", Format: "json", ServiceName: "JSONTest"}, &buf)
		GetLogger().Warn("Record diverted to error report.", zap.Int("row", 7))
		Sync()

		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(buf.String()), &entry), "Log output should be valid JSON")
		assert.Equal(t, "WARN", entry["level"])
		assert.Equal(t, "JSONTest", entry["logger"])
		assert.Equal(t, "Record diverted to error report.", entry["msg"])
		assert.EqualValues(t, 7, entry["row"])
	})

	t.Run("should write to a log file if configured", func(t *testing.T) {
		ResetForTest()
		t.Cleanup(ResetForTest)
		var buf syncBuffer
		path := filepath.Join(t.TempDir(), "hometax.log")

		Initialize(config.LoggerConfig{Level: "debug", Format: "console", LogFile: path, MaxSize: 1}, &buf)
		GetLogger().Error("This should go to the file.")
		Sync()

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(content), `"msg":"This should go to the file."`, "file output is JSON regardless of console format")
	})

	t.Run("should only initialize once", func(t *testing.T) {
		ResetForTest()
		t.Cleanup(ResetForTest)
		var buf syncBuffer

		Initialize(config.LoggerConfig{Level: "info", ServiceName: "First"}, &buf)
		logger1 := GetLogger()
		Initialize(config.LoggerConfig{Level: "debug", ServiceName: "Second"}, &buf)
		logger2 := GetLogger()

		assert.Same(t, logger1, logger2)
		logger2.Info("test")
		Sync()
		assert.True(t, strings.Contains(buf.String(), "First"))
		assert.False(t, strings.Contains(buf.String(), "Second"))
	})
}

func TestGetLogger(t *testing.T) {
	t.Run("should return a fallback logger if not initialized", func(t *testing.T) {
		ResetForTest()
		require.NotNil(t, GetLogger())
	})

	t.Run("should return the global logger after initialization", func(t *testing.T) {
		ResetForTest()
		t.Cleanup(ResetForTest)
		Initialize(config.LoggerConfig{Level: "info", ServiceName: "GlobalTest"}, &syncBuffer{})
		assert.Same(t, globalLogger.Load(), GetLogger())
	})
}

func TestLogFilePath(t *testing.T) {
	path, err := LogFilePath(config.LoggerConfig{})
	require.NoError(t, err)
	assert.Empty(t, path)

	home, err := homedir.Dir()
	require.NoError(t, err)
	path, err = LogFilePath(config.LoggerConfig{LogFile: "~/.hometax-cli/hometax.log"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".hometax-cli", "hometax.log"), path)
}
