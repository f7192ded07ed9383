package middleware

import (
	"context"

	"github.com/boxraffle/backend/pkg/router"
	"github.com/boxraffle/backend/pkg/xcontext"
)

// RequestUser reads the user id the gateway put on the request. The gateway
// owns authentication; by the time a request reaches this service the header
// is trusted.
func RequestUser() router.MiddlewareFunc {
	return func(ctx context.Context) (context.Context, error) {
		userID := xcontext.HTTPRequest(ctx).Header.Get("X-User-Id")
		if userID != "" {
			ctx = xcontext.WithRequestUserID(ctx, userID)
		}

		return ctx, nil
	}
}
