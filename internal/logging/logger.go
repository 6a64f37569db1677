package logging

import (
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const logFile = "check_graylog_lag.log"

// NewLogger logs JSON to a rotating file under logDir, or to stderr when
// logDir is empty. Stdout belongs to the status line.
func NewLogger(logDir, level string) (*zap.Logger, error) {
	if logDir == "" {
		return newLogger(zapcore.Lock(os.Stderr), level), nil
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, err
	}
	w := zapcore.AddSync(&lumberjack.Logger{
		Filename:   filepath.Join(logDir, logFile),
		MaxSize:    10, // MB
		MaxBackups: 5,
		MaxAge:     14, // days
		Compress:   true,
	})
	return newLogger(w, level), nil
}

// NewWriterLogger is NewLogger for an arbitrary writer.
func NewWriterLogger(w io.Writer, level string) *zap.Logger {
	return newLogger(zapcore.AddSync(w), level)
}

func newLogger(w zapcore.WriteSyncer, level string) *zap.Logger {
	lvl := zapcore.ErrorLevel
	if level != "" {
		if err := lvl.Set(level); err != nil {
			lvl = zapcore.ErrorLevel
		}
	}
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(cfg), w, lvl)
	return zap.New(core, zap.Fields(zap.String("plugin", "check_graylog_lag")))
}
