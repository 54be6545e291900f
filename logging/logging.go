// Package logging builds the zap logger used across the engine.
package logging

import (
	"io"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation limits for file logs.
const (
	MaxSizeMB  = 10
	MaxBackups = 3
	MaxAgeDays = 28
)

// New returns a logger at level. When file is set, entries are written
// as JSON to a rotated file. Otherwise they go to console in a human
// readable form; a nil console with no file yields a no-op logger.
func New(level, file string, console io.Writer) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, errors.Wrapf(err, "log level %q", level)
	}

	var core zapcore.Core
	switch {
	case file != "":
		enc := zap.NewProductionEncoderConfig()
		enc.EncodeTime = zapcore.ISO8601TimeEncoder
		core = zapcore.NewCore(
			zapcore.NewJSONEncoder(enc),
			zapcore.AddSync(&lumberjack.Logger{
				Filename:   file,
				MaxSize:    MaxSizeMB,
				MaxBackups: MaxBackups,
				MaxAge:     MaxAgeDays,
			}),
			lvl,
		)
	case console != nil:
		enc := zap.NewDevelopmentEncoderConfig()
		enc.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		core = zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(console), lvl)
	default:
		return zap.NewNop(), nil
	}
	return zap.New(core), nil
}
