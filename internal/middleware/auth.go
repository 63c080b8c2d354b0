package middleware

import (
	"context"
	"errors"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/brokewise/internal/auth"
	"github.com/mmynk/brokewise/pkg/api"
)

// RequireGroupToken returns an interceptor that requires a valid edit token
// for the given procedures. The token must be sent as "Authorization: Bearer
// <token>" and its group claim must match the group the request acts on.
// Other procedures pass through untouched. A nil jwtManager disables the check.
func RequireGroupToken(jwtManager *auth.JWTManager, procedures ...string) connect.UnaryInterceptorFunc {
	guarded := make(map[string]bool, len(procedures))
	for _, p := range procedures {
		guarded[p] = true
	}

	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if jwtManager == nil || !guarded[req.Spec().Procedure] {
				return next(ctx, req)
			}

			scoped, ok := req.Any().(api.GroupScoped)
			if !ok {
				return nil, connect.NewError(connect.CodeInternal, auth.ErrInvalidToken)
			}
			groupID := scoped.GetGroupID()

			// Extract Authorization header
			authHeader := req.Header().Get("Authorization")
			if authHeader == "" {
				return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
			}

			// Parse Bearer token
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrInvalidToken)
			}

			if err := jwtManager.Authorize(parts[1], groupID); err != nil {
				if errors.Is(err, auth.ErrWrongGroup) {
					return nil, connect.NewError(connect.CodePermissionDenied, err)
				}
				return nil, connect.NewError(connect.CodeUnauthenticated, err)
			}

			return next(ctx, req)
		}
	}
}
