package logging

import (
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func setupTest() (log.Level, log.Formatter) {
	return log.GetLevel(), log.StandardLogger().Formatter
}

func teardownTest(originalLevel log.Level, originalFormatter log.Formatter) {
	log.SetLevel(originalLevel)
	log.SetFormatter(originalFormatter)
	log.StandardLogger().ReplaceHooks(make(log.LevelHooks))
}

func TestInitializeTextFormatter(t *testing.T) {
	originalLevel, originalFormatter := setupTest()
	defer teardownTest(originalLevel, originalFormatter)

	cfg := Config{
		Level:     "info",
		Formatter: "text",
		Loki: LokiConfig{
			Address: "http://localhost:3100",
			Labels:  map[string]string{"service": "test"},
		},
	}

	Initialize(cfg)

	assert.Equal(t, log.InfoLevel, log.GetLevel())
	assert.IsType(t, &log.TextFormatter{}, log.StandardLogger().Formatter)

	textFormatter := log.StandardLogger().Formatter.(*log.TextFormatter)
	assert.True(t, textFormatter.FullTimestamp)
	assert.Equal(t, "2006-01-02 15:04:05", textFormatter.TimestampFormat)
}

func TestInitializeJSONFormatter(t *testing.T) {
	originalLevel, originalFormatter := setupTest()
	defer teardownTest(originalLevel, originalFormatter)

	cfg := Config{
		Level:     "debug",
		Formatter: "json",
		Loki: LokiConfig{
			Address: "http://localhost:3100",
			Labels:  map[string]string{"service": "test"},
		},
	}

	Initialize(cfg)

	assert.Equal(t, log.DebugLevel, log.GetLevel())
	assert.IsType(t, &log.JSONFormatter{}, log.StandardLogger().Formatter)
}

func TestInitializeInvalidLevel(t *testing.T) {
	originalLevel, originalFormatter := setupTest()
	defer teardownTest(originalLevel, originalFormatter)

	cfg := Config{
		Level:     "invalid-level",
		Formatter: "text",
	}

	Initialize(cfg)

	assert.Equal(t, originalLevel, log.GetLevel())
}

func TestInitializeLogLevels(t *testing.T) {
	originalLevel, originalFormatter := setupTest()
	defer teardownTest(originalLevel, originalFormatter)

	testCases := []struct {
		level    string
		expected log.Level
	}{
		{"trace", log.TraceLevel},
		{"debug", log.DebugLevel},
		{"info", log.InfoLevel},
		{"warn", log.WarnLevel},
		{"error", log.ErrorLevel},
		{"fatal", log.FatalLevel},
		{"panic", log.PanicLevel},
	}

	for _, tc := range testCases {
		t.Run(tc.level, func(t *testing.T) {
			cfg := Config{Level: tc.level, Formatter: "text"}
			Initialize(cfg)
			assert.Equal(t, tc.expected, log.GetLevel())
		})
	}
}

func TestInitializeEmptyFormatter(t *testing.T) {
	originalLevel, originalFormatter := setupTest()
	defer teardownTest(originalLevel, originalFormatter)

	cfg := Config{Level: "info", Formatter: ""}

	Initialize(cfg)
	assert.IsType(t, &log.TextFormatter{}, log.StandardLogger().Formatter)
}

func TestInitializeLokiConfiguration(t *testing.T) {
	originalLevel, originalFormatter := setupTest()
	defer teardownTest(originalLevel, originalFormatter)

	cfg := Config{
		Level:     "info",
		Formatter: "json",
		Loki: LokiConfig{
			Address: "http://localhost:3100",
			Labels: map[string]string{
				"service": "meshbroker-test",
				"env":     "testing",
			},
		},
	}

	log.StandardLogger().ReplaceHooks(make(log.LevelHooks))

	Initialize(cfg)

	hooks := log.StandardLogger().Hooks
	assert.NotEmpty(t, hooks)

	expectedLevels := []log.Level{
		log.InfoLevel,
		log.WarnLevel,
		log.ErrorLevel,
		log.FatalLevel,
	}

	for _, level := range expectedLevels {
		assert.NotEmpty(t, hooks[level], "expected hook for level %s", level)
	}
}

func TestInitializeMinimalConfig(t *testing.T) {
	originalLevel, originalFormatter := setupTest()
	defer teardownTest(originalLevel, originalFormatter)

	cfg := Config{}

	assert.NotPanics(t, func() {
		Initialize(cfg)
	})
}
