package middleware

import (
	"context"
	"testing"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"github.com/yi-nology/photo_bridge/pkg/common"
	"github.com/yi-nology/photo_bridge/pkg/config"
)

func TestRefererPolicy_Allows(t *testing.T) {
	p := NewRefererPolicy(
		"http://localhost:5173",
		"http://localhost:4002",
		"http://192.168.",
		"https://*.ngrok.io",
		" ",
	)
	tests := []struct {
		referer string
		want    bool
	}{
		{"", true},
		{"http://localhost:5173/gallery", true},
		{"http://localhost:4002", true},
		{"http://192.168.1.20:8080/", true},
		{"https://abc.ngrok.io/page", true},
		{"http://abc.ngrok.io/page", false},
		{"https://ngrok.io.evil.com/", false},
		{"https://evil.example.com/", false},
		{"http://localhost:3000/", false},
	}
	for _, tt := range tests {
		if got := p.Allows(tt.referer); got != tt.want {
			t.Errorf("Allows(%q) = %v, want %v", tt.referer, got, tt.want)
		}
	}
}

func newEngine(handlers ...app.HandlerFunc) *server.Hertz {
	h := server.New()
	ok := func(ctx context.Context, c *app.RequestContext) {
		c.String(consts.StatusOK, "ok")
	}
	h.GET("/uploads/*filepath", append(handlers, ok)...)
	return h
}

func TestHotlinkGuard(t *testing.T) {
	h := newEngine(HotlinkGuard(NewRefererPolicy("http://localhost:4002")))

	w := ut.PerformRequest(h.Engine, consts.MethodGet, "/uploads/processed/a.webp", nil,
		ut.Header{Key: "Referer", Value: "https://elsewhere.example/"})
	resp := w.Result()
	if resp.StatusCode() != consts.StatusForbidden {
		t.Fatalf("foreign referer status = %d, want 403", resp.StatusCode())
	}
	if string(resp.Body()) != `{"error":"hotlink forbidden"}` {
		t.Errorf("body = %s", resp.Body())
	}

	w = ut.PerformRequest(h.Engine, consts.MethodGet, "/uploads/processed/a.webp", nil)
	resp = w.Result()
	if resp.StatusCode() != consts.StatusOK {
		t.Fatalf("empty referer status = %d, want 200", resp.StatusCode())
	}
	if got := string(resp.Header.Peek("Cache-Control")); got != ImmutableCacheControl {
		t.Errorf("Cache-Control = %q", got)
	}
}

func TestRequireAuthAndAdmin(t *testing.T) {
	var seen common.Identity
	h := server.New()
	h.GET("/admin", RequireAuth(), RequireAdmin(), func(ctx context.Context, c *app.RequestContext) {
		seen, _ = common.GetIdentity(ctx)
		c.String(consts.StatusOK, "ok")
	})

	tests := []struct {
		name    string
		headers []ut.Header
		want    int
	}{
		{name: "missing id", want: consts.StatusUnauthorized},
		{name: "bad id", headers: []ut.Header{{Key: HeaderUserID, Value: "abc"}}, want: consts.StatusUnauthorized},
		{name: "plain user", headers: []ut.Header{{Key: HeaderUserID, Value: "4"}}, want: consts.StatusForbidden},
		{name: "admin", headers: []ut.Header{{Key: HeaderUserID, Value: "4"}, {Key: HeaderUserRole, Value: "Admin"}}, want: consts.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ut.PerformRequest(h.Engine, consts.MethodGet, "/admin", nil, tt.headers...)
			if got := w.Result().StatusCode(); got != tt.want {
				t.Errorf("status = %d, want %d", got, tt.want)
			}
		})
	}
	if seen.UserID != 4 || !seen.IsAdmin() {
		t.Errorf("identity = %+v", seen)
	}
}

func TestCORS_OriginList(t *testing.T) {
	h := server.New()
	h.Use(CORS(&config.CORSConfig{AllowOrigin: "http://localhost:5173, https://photos.example.com/"}))
	h.GET("/api/photos", func(ctx context.Context, c *app.RequestContext) {
		c.String(consts.StatusOK, "ok")
	})

	w := ut.PerformRequest(h.Engine, consts.MethodGet, "/api/photos", nil,
		ut.Header{Key: "Origin", Value: "https://photos.example.com"})
	if got := string(w.Result().Header.Peek("Access-Control-Allow-Origin")); got != "https://photos.example.com" {
		t.Errorf("allowed origin = %q", got)
	}

	w = ut.PerformRequest(h.Engine, consts.MethodGet, "/api/photos", nil,
		ut.Header{Key: "Origin", Value: "https://other.example.com"})
	if got := string(w.Result().Header.Peek("Access-Control-Allow-Origin")); got != "" {
		t.Errorf("foreign origin echoed: %q", got)
	}
}

func TestWriteLock_Disabled(t *testing.T) {
	if hs := WriteLock(nil); hs != nil {
		t.Errorf("WriteLock(nil) = %d handlers, want none", len(hs))
	}
}
