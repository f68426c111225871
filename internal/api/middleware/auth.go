package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"laborgrow/internal/authsvc"
	"laborgrow/internal/logger"
)

// Context keys set by the auth middlewares.
const (
	UserIDKey    = "user_id"
	UserEmailKey = "user_email"
)

// BearerAuth verifies the Authorization bearer token against the hosted
// auth service and stores the caller's identity in the request context.
func BearerAuth(provider authsvc.Provider) app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		header := string(c.GetHeader("Authorization"))
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(consts.StatusUnauthorized, utils.H{"error": "missing bearer token"})
			return
		}

		userID, email, err := provider.Verify(ctx, token)
		if err != nil {
			if errors.Is(err, authsvc.ErrInvalidToken) {
				c.AbortWithStatusJSON(consts.StatusUnauthorized, utils.H{"error": "invalid or expired token"})
				return
			}
			logger.Error().Err(err).Msg("Auth service verify call failed")
			c.AbortWithStatusJSON(consts.StatusServiceUnavailable, utils.H{"error": "authentication service unavailable"})
			return
		}

		c.Set(UserIDKey, userID)
		c.Set(UserEmailKey, email)
		c.Next(ctx)
	}
}
