package middleware

import (
	"context"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/google/uuid"
)

// HeaderRequestID carries the request id in both directions.
const HeaderRequestID = "X-Request-Id"

type requestIDKey struct{}

// RequestID returns the id stored by Logging, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Logging returns a middleware that tags each request with an id and logs
// the access line once the handler chain has finished.
func Logging() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		start := time.Now()
		reqID := string(c.GetHeader(HeaderRequestID))
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Response.Header.Set(HeaderRequestID, reqID)
		ctx = context.WithValue(ctx, requestIDKey{}, reqID)

		c.Next(ctx)

		hlog.CtxInfof(ctx, "[%s] %s %s %s %d %dB %v",
			reqID,
			c.ClientIP(),
			c.Request.Method(),
			c.Request.URI().Path(),
			c.Response.StatusCode(),
			c.Response.Header.ContentLength(),
			time.Since(start),
		)
	}
}
