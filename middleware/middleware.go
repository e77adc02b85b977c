package middleware

import (
	"context"
	"log"
	"time"

	"github.com/ncecere/musicmind/provider"
)

// Logger is the minimal logging interface used by the middleware package.
// It matches the Printf method on *log.Logger and *logrus.Logger so
// callers can pass either.
type Logger interface {
	Printf(format string, v ...any)
}

// AudioModelMiddleware wraps a provider.AudioModel with additional
// behavior such as logging or telemetry.
type AudioModelMiddleware func(provider.AudioModel) provider.AudioModel

// WrapAudioModel applies the provided middlewares around the base
// model. Middlewares are applied in the order provided, so the first
// middleware becomes the outermost wrapper.
func WrapAudioModel(base provider.AudioModel, mws ...AudioModelMiddleware) provider.AudioModel {
	wrapped := base
	for i := len(mws) - 1; i >= 0; i-- {
		wrapped = mws[i](wrapped)
	}
	return wrapped
}

// LoggingOptions controls which aspects of a call are logged by the
// logging middleware.
type LoggingOptions struct {
	// Logger is the destination for log output. If nil, log.Default() is used.
	Logger Logger
	// LogRequest controls whether request metadata (operation, file) is logged.
	LogRequest bool
	// LogResponse controls whether successful responses are logged.
	LogResponse bool
	// LogErrors controls whether errors are logged.
	LogErrors bool
	// LogDuration controls whether call duration is logged.
	LogDuration bool
}

func defaultLoggingOptions(opts LoggingOptions) LoggingOptions {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	// By default, log request metadata, errors, and duration.
	if !opts.LogRequest && !opts.LogResponse && !opts.LogErrors && !opts.LogDuration {
		opts.LogRequest = true
		opts.LogErrors = true
		opts.LogDuration = true
	}
	return opts
}

// LoggingAudioModel returns an AudioModelMiddleware that logs Invoke
// and Health calls. Logs carry operation, file name, status, request
// ID and duration; audio bytes and response text are never logged.
func LoggingAudioModel(opts LoggingOptions) AudioModelMiddleware {
	opts = defaultLoggingOptions(opts)

	return func(next provider.AudioModel) provider.AudioModel {
		return &loggingAudioModel{
			next:  next,
			opts:  opts,
			logFn: opts.Logger.Printf,
		}
	}
}

type loggingAudioModel struct {
	next  provider.AudioModel
	opts  LoggingOptions
	logFn func(format string, v ...any)
}

func (l *loggingAudioModel) Invoke(ctx context.Context, req *provider.AudioRequest) (*provider.AudioResponse, error) {
	start := time.Now()
	if l.opts.LogRequest {
		l.logFn("audio.invoke start op=%s file=%s prompt=%t", req.Operation, req.FileName, req.Prompt != "")
	}

	res, err := l.next.Invoke(ctx, req)
	l.finish("audio.invoke", req.Operation, res, err, time.Since(start))
	return res, err
}

func (l *loggingAudioModel) Health(ctx context.Context) (*provider.AudioResponse, error) {
	start := time.Now()
	if l.opts.LogRequest {
		l.logFn("audio.health start")
	}

	res, err := l.next.Health(ctx)
	l.finish("audio.health", "health", res, err, time.Since(start))
	return res, err
}

func (l *loggingAudioModel) finish(event, op string, res *provider.AudioResponse, err error, dur time.Duration) {
	if err != nil {
		if l.opts.LogErrors {
			if l.opts.LogDuration {
				l.logFn("%s error op=%s duration=%s err=%v", event, op, dur, err)
			} else {
				l.logFn("%s error op=%s err=%v", event, op, err)
			}
		}
		return
	}

	if l.opts.LogResponse {
		if l.opts.LogDuration {
			l.logFn("%s success op=%s status=%d request_id=%s duration=%s", event, op, res.StatusCode, res.RequestID, dur)
		} else {
			l.logFn("%s success op=%s status=%d request_id=%s", event, op, res.StatusCode, res.RequestID)
		}
	} else if l.opts.LogDuration {
		l.logFn("%s done op=%s duration=%s", event, op, dur)
	}
}

// CallKind describes the kind of model call for telemetry purposes.
type CallKind string

const (
	// CallInvoke represents an upload to an operation route.
	CallInvoke CallKind = "invoke"
	// CallHealth represents a health probe.
	CallHealth CallKind = "health"
)

// CallInfo contains high-level metadata about a call that can be used
// for metrics or tracing.
type CallInfo struct {
	Kind      CallKind
	Operation string
	StartTime time.Time
	EndTime   time.Time
	Err       error
}

// TelemetryHooks defines callbacks that are invoked around model calls.
// They are generic so callers can feed Prometheus, OpenTelemetry or
// anything else without this package depending on them.
type TelemetryHooks struct {
	OnCall func(ctx context.Context, info CallInfo)
}

// TelemetryAudioModel returns an AudioModelMiddleware that invokes the
// provided telemetry hooks around Invoke and Health calls.
func TelemetryAudioModel(hooks TelemetryHooks) AudioModelMiddleware {
	return func(next provider.AudioModel) provider.AudioModel {
		return &telemetryAudioModel{
			next:  next,
			hooks: hooks,
		}
	}
}

type telemetryAudioModel struct {
	next  provider.AudioModel
	hooks TelemetryHooks
}

func (t *telemetryAudioModel) Invoke(ctx context.Context, req *provider.AudioRequest) (*provider.AudioResponse, error) {
	start := time.Now()
	res, err := t.next.Invoke(ctx, req)
	t.emit(ctx, CallInvoke, req.Operation, start, err)
	return res, err
}

func (t *telemetryAudioModel) Health(ctx context.Context) (*provider.AudioResponse, error) {
	start := time.Now()
	res, err := t.next.Health(ctx)
	t.emit(ctx, CallHealth, "health", start, err)
	return res, err
}

func (t *telemetryAudioModel) emit(ctx context.Context, kind CallKind, op string, start time.Time, err error) {
	if t.hooks.OnCall == nil {
		return
	}
	t.hooks.OnCall(ctx, CallInfo{
		Kind:      kind,
		Operation: op,
		StartTime: start,
		EndTime:   time.Now(),
		Err:       err,
	})
}
