package hostfuncs

import (
	"context"
	"log/slog"
	"time"
)

// Middleware wraps a ByteHandler.
type Middleware func(next ByteHandler) ByteHandler

// PanicRecoveryMiddleware turns a handler panic into an INTERNAL_ERROR
// response so the module call in progress completes.
func PanicRecoveryMiddleware() Middleware {
	return func(next ByteHandler) ByteHandler {
		return func(ctx context.Context, payload []byte) (resp []byte, err error) {
			defer func() {
				if r := recover(); r != nil {
					resp, err = NewPanicError(r).ToJSON(), nil
				}
			}()
			return next(ctx, payload)
		}
	}
}

// LoggingMiddleware logs each host call at debug level together with the
// notes its handler recorded on the Call, and handler errors at error level.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next ByteHandler) ByteHandler {
		return func(ctx context.Context, payload []byte) ([]byte, error) {
			call := CallFrom(ctx)
			fn := "unknown"
			if call != nil {
				fn = call.Function
			}

			start := time.Now()
			resp, err := next(ctx, payload)
			if err != nil {
				logger.ErrorContext(ctx, "host function failed", "function", fn, "error", err)
				return resp, err
			}

			attrs := append([]slog.Attr{slog.String("function", fn)}, call.Notes()...)
			attrs = append(attrs,
				slog.Int("request_bytes", len(payload)),
				slog.Int("response_bytes", len(resp)),
				slog.Duration("duration", time.Since(start)))
			logger.LogAttrs(ctx, slog.LevelDebug, "host function completed", attrs...)
			return resp, nil
		}
	}
}
