// Package logger provides the structured logger shared by all packages.
// It wraps a zap SugaredLogger so call sites stay terse.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	core  *zap.SugaredLogger
	level zap.AtomicLevel
)

func init() {
	level = zap.NewAtomicLevelAt(zap.InfoLevel)
	config := zap.NewDevelopmentConfig()
	config.Level = level
	log, err := config.Build(zap.AddCallerSkip(1))
	if err != nil {
		panic(err)
	}
	core = log.Sugar()
}

// SetLevel changes the log level for the whole process.
func SetLevel(l zapcore.Level) {
	level.SetLevel(l)
}

// SetLogger replaces the process logger. Intended for tests and for
// embedding applications that manage their own zap configuration.
func SetLogger(log *zap.Logger) {
	core = log.Sugar()
}

// With returns a logger carrying structured key/value context.
func With(args ...any) *zap.SugaredLogger {
	return core.With(args...)
}

// WithModel returns a logger scoped to one model's training run.
func WithModel(modelName string) *zap.SugaredLogger {
	return core.With("model", modelName)
}

// WithDataset returns a logger scoped to one dataset directory.
func WithDataset(imageDir string) *zap.SugaredLogger {
	return core.With("images", imageDir)
}

func Debugf(template string, args ...any) { core.Debugf(template, args...) }

func Infof(template string, args ...any) { core.Infof(template, args...) }

func Warnf(template string, args ...any) { core.Warnf(template, args...) }

func Errorf(template string, args ...any) { core.Errorf(template, args...) }

func Fatalf(template string, args ...any) { core.Fatalf(template, args...) }
