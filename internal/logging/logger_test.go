package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    LogLevel
		wantErr bool
	}{
		{"trace", TRACE, false},
		{"DEBUG", DEBUG, false},
		{"", INFO, false},
		{" warning ", WARN, false},
		{"error", ERROR, false},
		{"loud", INFO, true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "уровень %q должен быть отклонён", tt.in)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerWithWriter("world", Options{ConsoleLevel: WARN, Format: "console"}, &buf)

	l.Info("скрытое сообщение")
	l.Warn("чанк %d не найден", 7)

	out := buf.String()
	assert.NotContains(t, out, "скрытое")
	assert.Contains(t, out, "чанк 7 не найден")
	assert.Contains(t, out, "WARN")
	assert.Contains(t, out, "world", "имя компонента попадает в вывод")
}

func TestLogger_TraceAndSetLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerWithWriter("physics", Options{ConsoleLevel: INFO, Format: "json"}, &buf)

	l.Trace("не видно")
	assert.Empty(t, buf.String())
	assert.False(t, l.Enabled(TRACE))

	l.SetLevel(TRACE, TRACE)
	l.Trace("шаг %d", 3)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "TRACE", entry["level"])
	assert.Equal(t, "шаг 3", entry["msg"])
	assert.Equal(t, "physics", entry["logger"])
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerWithWriter("sim", Options{ConsoleLevel: DEBUG, Format: "json"}, &buf)

	l.With("tick", 42).Debug("тик")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, float64(42), entry["tick"])
}

func TestNewLogger_WritesFile(t *testing.T) {
	dir, err := os.MkdirTemp("", "tileworld-logs-*")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	Configure(Options{ConsoleLevel: ERROR, FileLevel: DEBUG, Format: "console", Dir: dir})
	defer Configure(DefaultOptions())

	l, err := NewLogger("storage")
	require.NoError(t, err)
	l.Debug("сохранено %d чанков", 3)
	require.NoError(t, l.Close())

	files, err := filepath.Glob(filepath.Join(dir, "storage_*.log"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "сохранено 3 чанков")
}

func TestLoggerManager_CachesComponents(t *testing.T) {
	lm := &LoggerManager{loggers: make(map[string]*Logger)}

	a, err := lm.GetLogger("world")
	require.NoError(t, err)
	b, err := lm.GetLogger("world")
	require.NoError(t, err)

	assert.Same(t, a, b, "логгер компонента создаётся один раз")
	assert.Equal(t, []string{"world"}, lm.ListComponents())

	assert.NoError(t, lm.SetLogLevel("world", DEBUG, DEBUG))
	assert.True(t, a.Enabled(DEBUG))
	assert.Error(t, lm.SetLogLevel("missing", DEBUG, DEBUG))

	assert.NoError(t, lm.CloseAll())
	assert.Empty(t, lm.ListComponents())
}
