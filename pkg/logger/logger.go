package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Loggers groups the channel loggers used across the service. The set is
// built once in main and handed to every component that logs.
type Loggers struct {
	Error    *zap.Logger
	Audit    *zap.Logger
	Request  *zap.Logger
	Security *zap.Logger
	System   *zap.Logger
}

func encoderConfig() zapcore.EncoderConfig {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return encoderCfg
}

func newFileLogger(filePath string, level zapcore.Level) (*zap.Logger, error) {
	file, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig()),
		zapcore.AddSync(file),
		level,
	)
	return zap.New(core), nil
}

// New writes each channel to its own JSON file under dir.
func New(dir string) (*Loggers, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	channels := []struct {
		file  string
		level zapcore.Level
	}{
		{file: "errors.log", level: zapcore.ErrorLevel},
		{file: "audit.log", level: zapcore.InfoLevel},
		{file: "request.log", level: zapcore.InfoLevel},
		{file: "security.log", level: zapcore.WarnLevel},
		{file: "system.log", level: zapcore.InfoLevel},
	}
	l := &Loggers{}
	targets := []**zap.Logger{&l.Error, &l.Audit, &l.Request, &l.Security, &l.System}
	for i, ch := range channels {
		zl, err := newFileLogger(filepath.Join(dir, ch.file), ch.level)
		if err != nil {
			return nil, fmt.Errorf("create %s logger: %w", ch.file, err)
		}
		*targets[i] = zl
	}
	return l, nil
}

// NewConsole sends every channel to stderr, tagged with a "channel" field.
func NewConsole() *Loggers {
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig()),
		zapcore.Lock(os.Stderr),
		zapcore.DebugLevel,
	)
	base := zap.New(core)
	return &Loggers{
		Error:    base.With(zap.String("channel", "error")),
		Audit:    base.With(zap.String("channel", "audit")),
		Request:  base.With(zap.String("channel", "request")),
		Security: base.With(zap.String("channel", "security")),
		System:   base.With(zap.String("channel", "system")),
	}
}

func NewNop() *Loggers {
	nop := zap.NewNop()
	return &Loggers{Error: nop, Audit: nop, Request: nop, Security: nop, System: nop}
}

func (l *Loggers) Sync() {
	for _, zl := range []*zap.Logger{l.Error, l.Audit, l.Request, l.Security, l.System} {
		_ = zl.Sync()
	}
}
