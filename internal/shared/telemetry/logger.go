package telemetry

import (
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// InitLogger installs the global zap logger. Format "console" selects the
// development encoder; anything else emits JSON lines.
func InitLogger(level, format string) error {
	var zapCfg zap.Config
	if format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}
	if level == "" {
		level = "info"
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return eris.Wrap(err, "telemetry: parse log level")
	}
	zapCfg.Level.SetLevel(lvl)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "telemetry: build logger")
	}
	zap.ReplaceGlobals(logger)
	return nil
}

// Sync flushes buffered log entries.
func Sync() {
	_ = zap.L().Sync()
}

// Info writes an info-level event with the given fields.
func Info(msg string, fields map[string]any) {
	zap.L().Info(msg, toZapFields(fields)...)
}

// Warn writes a warn-level event with the given fields.
func Warn(msg string, fields map[string]any) {
	zap.L().Warn(msg, toZapFields(fields)...)
}

// Error writes an error-level event with the given fields.
func Error(msg string, fields map[string]any) {
	zap.L().Error(msg, toZapFields(fields)...)
}

func toZapFields(fields map[string]any) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		switch v := fields[k].(type) {
		case error:
			out = append(out, zap.NamedError(k, v))
		default:
			out = append(out, zap.Any(k, v))
		}
	}
	return out
}
