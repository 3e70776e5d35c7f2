package middleware

import (
	"context"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"github.com/yi-nology/photo_bridge/pkg/config"
)

// CORS returns a middleware that handles Cross-Origin Resource Sharing.
// AllowOrigin may be "*" or a comma separated list; listed origins are echoed
// back only when they match the request Origin.
func CORS(cfg *config.CORSConfig) app.HandlerFunc {
	origins := []string{"*"}
	allowMethods := "GET,POST,PUT,DELETE,OPTIONS"
	allowHeaders := "*"
	allowCredentials := "false"

	if cfg != nil {
		if list := splitList(cfg.AllowOrigin); len(list) > 0 {
			origins = list
		}
		if cfg.AllowMethods != "" {
			allowMethods = cfg.AllowMethods
		}
		if cfg.AllowHeaders != "" {
			allowHeaders = cfg.AllowHeaders
		}
		if cfg.AllowCredentials {
			allowCredentials = "true"
		}
	}
	wildcard := len(origins) == 1 && origins[0] == "*"

	return func(ctx context.Context, c *app.RequestContext) {
		origin := string(c.Request.Header.Peek("Origin"))
		switch {
		case wildcard:
			c.Response.Header.Set("Access-Control-Allow-Origin", "*")
		case matchOrigin(origins, origin):
			c.Response.Header.Set("Access-Control-Allow-Origin", origin)
			c.Response.Header.Add("Vary", "Origin")
		}
		c.Response.Header.Set("Access-Control-Allow-Methods", allowMethods)
		c.Response.Header.Set("Access-Control-Allow-Headers", allowHeaders)
		c.Response.Header.Set("Access-Control-Allow-Credentials", allowCredentials)

		if string(c.Request.Method()) == consts.MethodOptions {
			c.AbortWithStatus(consts.StatusNoContent)
			return
		}
		c.Next(ctx)
	}
}

func matchOrigin(origins []string, origin string) bool {
	if origin == "" {
		return false
	}
	for _, o := range origins {
		if strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, strings.TrimRight(part, "/"))
		}
	}
	return out
}
