package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/brokewise/pkg/api"
)

// ErrorKindHeader carries the error kind of a rejected request.
const ErrorKindHeader = "Brokewise-Error-Kind"

// LoggingInterceptor returns a Connect interceptor that logs every RPC call
// with its procedure, group, duration and outcome. Rejected input logs at
// INFO, failed preconditions and auth at WARN, everything else at ERROR.
func LoggingInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			resp, err := next(ctx, req)

			attrs := []slog.Attr{
				slog.String("procedure", req.Spec().Procedure),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()),
			}
			if scoped, ok := req.Any().(api.GroupScoped); ok {
				attrs = append(attrs, slog.String("group_id", scoped.GetGroupID()))
			}
			if err == nil {
				slog.LogAttrs(ctx, slog.LevelInfo, "RPC ok", attrs...)
				return resp, nil
			}

			var connectErr *connect.Error
			if !errors.As(err, &connectErr) {
				slog.LogAttrs(ctx, slog.LevelError, "RPC error", append(attrs, slog.Any("error", err))...)
				return resp, err
			}
			attrs = append(attrs, slog.String("code", connectErr.Code().String()))
			if kind := connectErr.Meta().Get(ErrorKindHeader); kind != "" {
				attrs = append(attrs, slog.String("kind", kind))
			}
			attrs = append(attrs, slog.String("error", connectErr.Message()))
			slog.LogAttrs(ctx, levelFor(connectErr.Code()), "RPC error", attrs...)
			return resp, err
		}
	}
}

func levelFor(code connect.Code) slog.Level {
	switch code {
	case connect.CodeInvalidArgument, connect.CodeNotFound, connect.CodeAlreadyExists:
		return slog.LevelInfo
	case connect.CodeFailedPrecondition, connect.CodeUnauthenticated, connect.CodePermissionDenied:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
