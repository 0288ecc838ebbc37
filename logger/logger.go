package logger

import (
	"sort"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/elum-utils/moderation/interfaces"
)

// Zap adapts a zap.Logger to interfaces.Logger.
type Zap struct {
	z *zap.Logger
}

var _ interfaces.Logger = (*Zap)(nil)

// ParseLevel maps a textual level to zap. Unknown values fall back to info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// NewZap builds a production JSON logger writing to stdout.
func NewZap(level string) (*Zap, error) {
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(ParseLevel(level))
	config.OutputPaths = []string{"stdout"}
	config.ErrorOutputPaths = []string{"stderr"}

	z, err := config.Build()
	if err != nil {
		return nil, err
	}
	return &Zap{z: z}, nil
}

// Wrap adapts an existing zap logger.
func Wrap(z *zap.Logger) *Zap {
	if z == nil {
		z = zap.NewNop()
	}
	return &Zap{z: z}
}

// Nop returns a logger that discards everything.
func Nop() *Zap {
	return &Zap{z: zap.NewNop()}
}

// Zap exposes the underlying logger for libraries that want one directly.
func (l *Zap) Zap() *zap.Logger {
	return l.z
}

func (l *Zap) Sync() error {
	return l.z.Sync()
}

func (l *Zap) Debug(msg string, fields map[string]any) {
	l.z.Debug(msg, toZap(fields)...)
}

func (l *Zap) Info(msg string, fields map[string]any) {
	l.z.Info(msg, toZap(fields)...)
}

func (l *Zap) Warn(msg string, fields map[string]any) {
	l.z.Warn(msg, toZap(fields)...)
}

func (l *Zap) Error(msg string, fields map[string]any) {
	l.z.Error(msg, toZap(fields)...)
}

// toZap converts fields in key order so output is stable.
func toZap(fields map[string]any) []zap.Field {
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
		if err, ok := fields[k].(error); ok {
			out = append(out, zap.NamedError(k, err))
			continue
		}
		out = append(out, zap.Any(k, fields[k]))
	}
	return out
}
