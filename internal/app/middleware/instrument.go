package middleware

import (
	"context"
	"log/slog"
	"time"

	"luxrent/internal/app/commands"
)

// Observer receives the outcome of every dispatched command.
type Observer interface {
	ObserveCommand(key string, elapsed time.Duration, err error)
}

// Instrument logs each dispatch at debug level and reports it to observer.
func Instrument(logger *slog.Logger, observer Observer) CommandMiddleware {
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			start := time.Now()
			res, err := next.Dispatch(ctx, cmd)
			elapsed := time.Since(start)
			if observer != nil {
				observer.ObserveCommand(cmd.Key(), elapsed, err)
			}
			if logger != nil {
				logger.DebugContext(ctx, "command dispatched", "command", cmd.Key(), "duration", elapsed, "error", err)
			}
			return res, err
		})
	}
}
