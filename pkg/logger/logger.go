package logger

import (
	"context"

	"go.uber.org/zap"

	"ganttservice/pkg/trace"
)

var Log *zap.Logger

// NewLogger builds the process logger: human readable for local runs,
// JSON production encoding everywhere else.
func NewLogger(env string) *zap.Logger {
	var (
		l   *zap.Logger
		err error
	)
	if env == "local" {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	Log = l
	return l
}

// WithTrace adds the trace_id stored in ctx to logger.
func WithTrace(ctx context.Context, logger *zap.Logger) *zap.Logger {
	traceID := trace.FromContext(ctx)
	if traceID != "" {
		return logger.With(zap.String("trace_id", traceID))
	}
	return logger
}
