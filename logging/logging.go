// Package logging provides the optional logger sink collaborator
// (spec.md §4.5): a write-only text interface for progress events, with
// no return values and no errors. A Logger is never required — callers
// that pass none get NewNopLogger's no-op implementation rather than the
// combiner scattering nil checks through its call sites.
package logging

import "go.uber.org/zap"

// Logger is the surface the combiner logs progress through.
type Logger interface {
	Debugf(template string, args ...any)
	Infof(template string, args ...any)
	Debugw(msg string, keysAndValues ...any)
	Infow(msg string, keysAndValues ...any)
	// Sublogger returns a child logger identified by name, for tagging
	// messages from a particular combine phase (e.g. "combine.index").
	Sublogger(name string) Logger
}

type zapLogger struct {
	sugar *zap.SugaredLogger
}

// NewLogger returns a Logger backed by a production zap.Logger, named name.
func NewLogger(name string) Logger {
	base, err := zap.NewProduction()
	if err != nil {
		base = zap.NewNop()
	}
	return &zapLogger{sugar: base.Sugar().Named(name)}
}

func (l *zapLogger) Debugf(template string, args ...any) { l.sugar.Debugf(template, args...) }
func (l *zapLogger) Infof(template string, args ...any)  { l.sugar.Infof(template, args...) }
func (l *zapLogger) Debugw(msg string, kv ...any)        { l.sugar.Debugw(msg, kv...) }
func (l *zapLogger) Infow(msg string, kv ...any)         { l.sugar.Infow(msg, kv...) }
func (l *zapLogger) Sublogger(name string) Logger {
	return &zapLogger{sugar: l.sugar.Named(name)}
}

type nopLogger struct{}

// NewNopLogger returns a Logger that discards everything. Used as the
// combiner's default when the caller supplies no logger.
func NewNopLogger() Logger { return nopLogger{} }

func (nopLogger) Debugf(string, ...any)   {}
func (nopLogger) Infof(string, ...any)    {}
func (nopLogger) Debugw(string, ...any)   {}
func (nopLogger) Infow(string, ...any)    {}
func (nopLogger) Sublogger(string) Logger { return nopLogger{} }
