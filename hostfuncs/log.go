package hostfuncs

import (
	"context"
	"log/slog"

	"github.com/wordsdk/wordsdk-go/engine"
	"github.com/wordsdk/wordsdk-go/internal/abi"
)

// Guest log levels passed to log_message.
const (
	GuestLevelError = 0
	GuestLevelWarn  = 1
	GuestLevelInfo  = 2
	GuestLevelDebug = 3
)

// LogMessageFunction returns log_message(level i32, ptr i32, len i32), which
// forwards guest log lines to logger. A line is emitted when its level is at
// most verbose+1: errors and warnings always pass, info needs verbose >= 1
// and debug needs verbose >= 2.
func LogMessageFunction(logger *slog.Logger, verbose int) engine.HostFunction {
	if logger == nil {
		logger = slog.Default()
	}
	return engine.HostFunction{
		Name:   FuncLogMessage,
		Params: []engine.ValueType{engine.ValueTypeI32, engine.ValueTypeI32, engine.ValueTypeI32},
		Func: func(ctx context.Context, caller engine.Caller, params []uint64) []uint64 {
			level := int(int32(uint32(params[0]))) //nolint:gosec // G115: i32 param
			if level > verbose+1 {
				return nil
			}
			msg, err := abi.ReadBytes(caller, uint32(params[1]), uint32(params[2])) //nolint:gosec // G115: i32 params
			if err != nil {
				logger.WarnContext(ctx, "hostfuncs: unreadable guest log message", "error", err)
				return nil
			}
			logger.Log(ctx, slogLevel(level), string(msg), "source", "guest")
			return nil
		},
	}
}

func slogLevel(level int) slog.Level {
	switch {
	case level <= GuestLevelError:
		return slog.LevelError
	case level == GuestLevelWarn:
		return slog.LevelWarn
	case level == GuestLevelInfo:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}
