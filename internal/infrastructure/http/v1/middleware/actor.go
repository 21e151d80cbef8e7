package middleware

import (
	"github.com/gin-gonic/gin"

	appctx "stockledger/internal/core/context"
)

// HeaderUserID identifies the acting user. Authentication happens at the
// gateway in front of this service; the header is trusted as-is.
const HeaderUserID = "X-User-ID"

// Actor middleware propagates the acting user into the request context so
// domain operations can attribute approvals and audit entries.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID := c.GetHeader(HeaderUserID)
		if actorID == "" {
			actorID = "anonymous"
		}

		ctx := appctx.WithActor(c.Request.Context(), actorID)
		c.Request = c.Request.WithContext(ctx)
		c.Set("actor_id", actorID)

		c.Next()
	}
}
