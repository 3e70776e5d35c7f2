package middleware

import (
	"context"
	"net/url"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

// ImmutableCacheControl is sent with every served upload. Keys are never reused.
const ImmutableCacheControl = "public, max-age=31536000, immutable"

// RefererPolicy decides which Referer headers may load uploads.
type RefererPolicy struct {
	prefixes []string
	// wildcards hold scheme and host suffix for entries like "https://*.ngrok.io".
	wildcards []wildcardOrigin
}

type wildcardOrigin struct {
	scheme string
	suffix string
}

// NewRefererPolicy accepts referers that start with any of allowed. An entry
// of the form scheme://*.domain matches every subdomain of domain.
func NewRefererPolicy(allowed ...string) *RefererPolicy {
	p := &RefererPolicy{}
	for _, a := range allowed {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		if scheme, host, ok := strings.Cut(a, "://*."); ok {
			p.wildcards = append(p.wildcards, wildcardOrigin{
				scheme: strings.ToLower(scheme),
				suffix: "." + strings.ToLower(strings.TrimRight(host, "/")),
			})
			continue
		}
		p.prefixes = append(p.prefixes, a)
	}
	return p
}

// Allows reports whether referer may load an upload. An empty referer passes.
func (p *RefererPolicy) Allows(referer string) bool {
	if referer == "" {
		return true
	}
	for _, prefix := range p.prefixes {
		if strings.HasPrefix(referer, prefix) {
			return true
		}
	}
	if len(p.wildcards) == 0 {
		return false
	}
	u, err := url.Parse(referer)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, w := range p.wildcards {
		if strings.EqualFold(u.Scheme, w.scheme) && strings.HasSuffix(host, w.suffix) {
			return true
		}
	}
	return false
}

// HotlinkGuard rejects upload requests from foreign referers with 403 and
// marks every other response as immutable.
func HotlinkGuard(policy *RefererPolicy) app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		referer := string(c.Request.Header.Peek("Referer"))
		if !policy.Allows(referer) {
			hlog.CtxInfof(ctx, "hotlink blocked: %s from %s", c.Request.URI().Path(), referer)
			c.AbortWithStatusJSON(consts.StatusForbidden, map[string]any{"error": "hotlink forbidden"})
			return
		}
		c.Next(ctx)
		c.Response.Header.Set("Cache-Control", ImmutableCacheControl)
	}
}
