package observability

import (
	"testing"
	"time"

	"github.com/smallbiznis/tenantly/internal/config"
	"github.com/stretchr/testify/require"
	gormlogger "gorm.io/gorm/logger"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("DB_LOG_LEVEL", "")
	t.Setenv("DB_SLOW_QUERY_THRESHOLD", "")
	t.Setenv("OTEL_SAMPLING_RATIO", "")

	cfg := LoadConfig(config.Config{AppName: " ", Environment: "production", AppVersion: "1.2.3"})
	require.Equal(t, "tenantly", cfg.ServiceName)
	require.Equal(t, "1.2.3", cfg.Version)
	require.Equal(t, 200*time.Millisecond, cfg.DBSlowThreshold)
	require.Equal(t, 0.1, cfg.OtelSamplingRatio)
	require.Equal(t, gormlogger.Warn, cfg.GormLogLevel())
	require.False(t, cfg.Debug())
}

func TestGormLogLevel(t *testing.T) {
	cases := []struct {
		logLevel, dbLevel string
		want              gormlogger.LogLevel
	}{
		{"info", "silent", gormlogger.Silent},
		{"info", "ERROR", gormlogger.Error},
		{"info", "info", gormlogger.Info},
		{"info", "bogus", gormlogger.Warn},
		{"debug", "silent", gormlogger.Info},
	}
	for _, tc := range cases {
		cfg := Config{LogLevel: tc.logLevel, DBLogLevel: tc.dbLevel}
		require.Equal(t, tc.want, cfg.GormLogLevel(), "%s/%s", tc.logLevel, tc.dbLevel)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("DB_SLOW_QUERY_THRESHOLD", "1s")
	t.Setenv("OTEL_ENABLED", "off")
	t.Setenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc")
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL", "HTTP")

	cfg := LoadConfig(config.Config{Environment: "local"})
	require.Equal(t, time.Second, cfg.DBSlowThreshold)
	require.False(t, cfg.OtelEnabled)
	require.Equal(t, "http", cfg.OtelExporterProtocol)
	require.True(t, cfg.Debug())
}
