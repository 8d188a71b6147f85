package logger

import (
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/scan-io-git/scanio-findings/internal/config"
)

// LevelEnv overrides the configured log level.
const LevelEnv = "APPSEC_LOG_LEVEL"

// NewLogger creates a new hclog.Logger instance based on the YAML configuration and the provided name.
// When logger.file is configured the output is also written to a rotated file.
func NewLogger(cfg *config.Config, name string) hclog.Logger {
	var out io.Writer = os.Stderr
	if w := fileWriter(cfg); w != nil {
		out = io.MultiWriter(os.Stderr, w)
	}
	return newLogger(cfg, name, out)
}

func fileWriter(cfg *config.Config) *lumberjack.Logger {
	if cfg == nil || cfg.Logger.File == "" {
		return nil
	}
	return &lumberjack.Logger{
		Filename:   config.ExpandPath(cfg.Logger.File),
		MaxSize:    config.SetThen(cfg.Logger.MaxSizeMB, 10),
		MaxBackups: config.SetThen(cfg.Logger.MaxBackups, 3),
		MaxAge:     cfg.Logger.MaxAgeDays,
		Compress:   config.GetBoolValue(cfg, "Logger.Compress", false),
	}
}

func newLogger(cfg *config.Config, name string, out io.Writer) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:            name,
		DisableTime:     config.GetBoolValue(cfg, "Logger.DisableTime", true),
		JSONFormat:      config.GetBoolValue(cfg, "Logger.JSONFormat", false),
		IncludeLocation: config.GetBoolValue(cfg, "Logger.IncludeLocation", false),
		Output:          out,
		Level:           determineLogLevel(cfg),
	})
}

// determineLogLevel returns a log level determined first by an environment variable, and if not set, by the provided configuration.
// If neither configuration nor environment variable specifies a log level, it defaults to INFO.
func determineLogLevel(cfg *config.Config) hclog.Level {
	if logLevelEnv := os.Getenv(LevelEnv); logLevelEnv != "" {
		return parseLogLevel(strings.ToUpper(logLevelEnv))
	}
	if cfg == nil {
		return hclog.Info
	}
	return parseLogLevel(strings.ToUpper(cfg.Logger.Level))
}

// parseLogLevel converts a string level to hclog.Level.
func parseLogLevel(levelStr string) hclog.Level {
	switch levelStr {
	case "TRACE":
		return hclog.Trace
	case "DEBUG":
		return hclog.Debug
	case "", "INFO":
		return hclog.Info
	case "WARN":
		return hclog.Warn
	case "ERROR":
		return hclog.Error
	default:
		hclog.New(&hclog.LoggerOptions{
			Level:       hclog.Warn,
			DisableTime: true,
			Output:      os.Stderr,
		}).Warn("Unrecognized log level, defaulting to INFO", "providedLevel", levelStr)
		return hclog.Info
	}
}
