package middleware

import (
	"context"
	"runtime/debug"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"github.com/yi-nology/photo_bridge/pkg/common"
)

// Recovery returns a middleware that recovers from panics and logs the error.
// The panic value is logged but never sent to the client.
func Recovery() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		defer func() {
			if r := recover(); r != nil {
				hlog.CtxErrorf(ctx, "[%s] panic recovered on %s: %v\n%s",
					RequestID(ctx), c.Request.URI().Path(), r, debug.Stack())
				c.AbortWithStatusJSON(consts.StatusInternalServerError, common.CommonResponse{
					Code:  consts.StatusInternalServerError,
					Msg:   "internal error",
					Error: "internal server error",
				})
			}
		}()

		c.Next(ctx)
	}
}
