package gologger

import (
	"context"
	"fmt"
	"strings"

	glog "github.com/goliatone/go-logger/glog"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger backs glog.Logger with zap. Variadic args are read as
// alternating key/value pairs.
type ZapLogger struct {
	logger *zap.Logger
}

func NewZapLogger(logger *zap.Logger) *ZapLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapLogger{logger: logger}
}

// BuildZap builds a JSON (or console) zap logger writing to stdout.
func BuildZap(level string, encoding string) (*zap.Logger, error) {
	encoding = strings.ToLower(strings.TrimSpace(encoding))
	if encoding != "console" {
		encoding = "json"
	}
	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(parseLevel(level)),
		Development:      false,
		Encoding:         encoding,
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace", "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func (l *ZapLogger) Trace(msg string, args ...any) { l.logger.Debug(msg, fields(args)...) }
func (l *ZapLogger) Debug(msg string, args ...any) { l.logger.Debug(msg, fields(args)...) }
func (l *ZapLogger) Info(msg string, args ...any)  { l.logger.Info(msg, fields(args)...) }
func (l *ZapLogger) Warn(msg string, args ...any)  { l.logger.Warn(msg, fields(args)...) }
func (l *ZapLogger) Error(msg string, args ...any) { l.logger.Error(msg, fields(args)...) }
func (l *ZapLogger) Fatal(msg string, args ...any) { l.logger.Fatal(msg, fields(args)...) }

func (l *ZapLogger) WithContext(context.Context) glog.Logger {
	return l
}

func (l *ZapLogger) Sync() error {
	return l.logger.Sync()
}

func (l *ZapLogger) Zap() *zap.Logger {
	return l.logger
}

func fields(args []any) []zap.Field {
	if len(args) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, (len(args)+1)/2)
	for i := 0; i < len(args); i += 2 {
		if i+1 >= len(args) {
			out = append(out, zap.Any("extra", args[i]))
			break
		}
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprint(args[i])
		}
		if err, isErr := args[i+1].(error); isErr {
			out = append(out, zap.NamedError(key, err))
			continue
		}
		out = append(out, zap.Any(key, args[i+1]))
	}
	return out
}

// ZapProvider hands out named children of one zap logger.
type ZapProvider struct {
	root *zap.Logger
}

func NewZapProvider(root *zap.Logger) *ZapProvider {
	if root == nil {
		root = zap.NewNop()
	}
	return &ZapProvider{root: root}
}

func (p *ZapProvider) GetLogger(name string) glog.Logger {
	if p == nil {
		return glog.Nop()
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return NewZapLogger(p.root)
	}
	return NewZapLogger(p.root.Named(name))
}

var (
	_ glog.Logger         = (*ZapLogger)(nil)
	_ glog.LoggerProvider = (*ZapProvider)(nil)
)
