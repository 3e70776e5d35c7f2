package middleware

import (
	"context"
	"errors"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"github.com/yi-nology/photo_bridge/pkg/lock"
)

// WriteLock serialises carousel writes across replicas through m. With a
// nil mutex (Redis disabled) it returns no handlers, so routes run unlocked.
func WriteLock(m *lock.Mutex) []app.HandlerFunc {
	if m == nil {
		return nil
	}
	return []app.HandlerFunc{func(ctx context.Context, c *app.RequestContext) {
		token, err := m.Acquire(ctx)
		if err != nil {
			if errors.Is(err, lock.ErrTimeout) {
				hlog.CtxWarnf(ctx, "write lock: timed out waiting for %s", c.Request.URI().Path())
			} else {
				hlog.CtxErrorf(ctx, "write lock: acquire failed: %v", err)
			}
			abortJSON(c, consts.StatusServiceUnavailable, "service busy", "service busy, please retry later")
			return
		}
		defer func() {
			if err := m.Release(context.WithoutCancel(ctx), token); err != nil {
				hlog.CtxWarnf(ctx, "write lock: release failed: %v", err)
			}
		}()
		c.Next(ctx)
	}}
}
