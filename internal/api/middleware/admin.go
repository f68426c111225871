package middleware

import (
	"context"
	"crypto/subtle"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

// AdminKeyHeader carries the shared secret for /admin routes.
const AdminKeyHeader = "X-Admin-Key"

// AdminKeyAuth guards admin routes with a static shared secret. The
// comparison is constant-time.
func AdminKeyAuth(secret string) app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		if secret == "" {
			// Refusing everything beats running an open admin surface.
			c.AbortWithStatusJSON(consts.StatusForbidden, utils.H{"error": "admin access not configured"})
			return
		}

		provided := string(c.GetHeader(AdminKeyHeader))
		if subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(consts.StatusForbidden, utils.H{"error": "invalid admin key"})
			return
		}
		c.Next(ctx)
	}
}
