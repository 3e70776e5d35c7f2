package middleware

import (
	"context"
	"strconv"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"github.com/yi-nology/photo_bridge/pkg/common"
)

const (
	HeaderUserID   = "X-User-Id"
	HeaderUserRole = "X-User-Role"
)

// Identify returns a middleware that reads the caller identity from request
// headers when present. It does NOT enforce authentication.
func Identify() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		if id, ok := identityFromHeaders(c); ok {
			ctx = common.ContextWithIdentity(ctx, id)
		}
		c.Next(ctx)
	}
}

// RequireAuth returns a middleware that enforces authentication.
// Requests without a valid X-User-Id header will be rejected with 401.
func RequireAuth() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		if len(c.GetHeader(HeaderUserID)) == 0 {
			abortJSON(c, consts.StatusUnauthorized, "authentication required", "missing X-User-Id header")
			return
		}
		id, ok := identityFromHeaders(c)
		if !ok {
			abortJSON(c, consts.StatusUnauthorized, "authentication required", "invalid X-User-Id header")
			return
		}
		c.Next(common.ContextWithIdentity(ctx, id))
	}
}

// RequireAdmin rejects authenticated callers without the admin role.
// It must run after RequireAuth.
func RequireAdmin() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		id, ok := common.GetIdentity(ctx)
		if !ok {
			abortJSON(c, consts.StatusUnauthorized, "authentication required", "missing identity")
			return
		}
		if !id.IsAdmin() {
			abortJSON(c, consts.StatusForbidden, "forbidden", "admin role required")
			return
		}
		c.Next(ctx)
	}
}

func identityFromHeaders(c *app.RequestContext) (common.Identity, bool) {
	raw := strings.TrimSpace(string(c.GetHeader(HeaderUserID)))
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return common.Identity{}, false
	}
	role := strings.ToLower(strings.TrimSpace(string(c.GetHeader(HeaderUserRole))))
	if role != common.RoleAdmin {
		role = common.RoleUser
	}
	return common.Identity{UserID: uint(id), Role: role}, true
}

func abortJSON(c *app.RequestContext, status int, errMsg, msg string) {
	c.JSON(status, map[string]any{
		"code":  status,
		"error": errMsg,
		"msg":   msg,
	})
	c.Abort()
}
