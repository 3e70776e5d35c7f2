package router

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"strings"
	"testing"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"github.com/yi-nology/photo_bridge/biz/dal/db"
	"github.com/yi-nology/photo_bridge/biz/middleware"
	"github.com/yi-nology/photo_bridge/biz/model/api"
	"github.com/yi-nology/photo_bridge/biz/service"
	"github.com/yi-nology/photo_bridge/pkg/asseturl"
	"github.com/yi-nology/photo_bridge/pkg/config"
	"github.com/yi-nology/photo_bridge/pkg/imaging"
	"github.com/yi-nology/photo_bridge/pkg/storage"
)

func newTestServer(t *testing.T) *server.Hertz {
	t.Helper()
	cfg, err := config.Load("non-existent-config.yaml")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	cfg.Storage.Local.Root = t.TempDir()

	store, err := storage.New(context.Background(), cfg.Storage)
	if err != nil {
		t.Fatalf("storage: %v", err)
	}
	conn := db.SetupTestDB(t)
	t.Cleanup(func() { db.CleanupTestDB(t, conn) })

	svc := service.NewService(service.NewLogic(conn), service.Options{
		Store:         store,
		Transformer:   imaging.New(1),
		Resolver:      asseturl.New(cfg.Storage.Local.AssetBaseURL, asseturl.KeepObjectURLs(store.IsObjectURL)),
		MaxUploadSize: cfg.Upload.MaxSize,
	})
	h := server.New()
	Register(h, cfg, svc, nil)
	return h
}

func multipartPNG(t *testing.T, field string) (*ut.Body, ut.Header) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 32))
	for x := 0; x < 64; x++ {
		img.Set(x, x%32, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, "sunset.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if err := png.Encode(part, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	if err := w.WriteField("tags", "sky, red"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return &ut.Body{Body: &buf, Len: buf.Len()}, ut.Header{Key: "Content-Type", Value: w.FormDataContentType()}
}

func TestUploadAndServe(t *testing.T) {
	h := newTestServer(t)

	body, ct := multipartPNG(t, "files")
	w := ut.PerformRequest(h.Engine, consts.MethodPost, "/api/photos", body, ct)
	if got := w.Result().StatusCode(); got != consts.StatusUnauthorized {
		t.Fatalf("anonymous upload status = %d, want 401", got)
	}

	body, ct = multipartPNG(t, "files")
	w = ut.PerformRequest(h.Engine, consts.MethodPost, "/api/photos", body, ct,
		ut.Header{Key: middleware.HeaderUserID, Value: "7"})
	resp := w.Result()
	if resp.StatusCode() != consts.StatusOK {
		t.Fatalf("upload status = %d: %s", resp.StatusCode(), resp.Body())
	}
	var out struct {
		Data struct {
			Items []api.UploadedPhoto `json:"items"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(out.Data.Items) != 1 {
		t.Fatalf("items = %+v", out.Data.Items)
	}
	item := out.Data.Items[0]
	if !strings.HasPrefix(item.ImageURL, "http://localhost:4002/uploads/processed/") {
		t.Fatalf("image url = %s", item.ImageURL)
	}

	assetPath := strings.TrimPrefix(item.ThumbURL, "http://localhost:4002")
	w = ut.PerformRequest(h.Engine, consts.MethodGet, assetPath, nil)
	resp = w.Result()
	if resp.StatusCode() != consts.StatusOK {
		t.Fatalf("GET %s status = %d", assetPath, resp.StatusCode())
	}
	if got := string(resp.Header.Peek("Cache-Control")); got != middleware.ImmutableCacheControl {
		t.Errorf("Cache-Control = %q", got)
	}

	w = ut.PerformRequest(h.Engine, consts.MethodGet, assetPath, nil,
		ut.Header{Key: "Referer", Value: "https://hotlinker.example/"})
	if got := w.Result().StatusCode(); got != consts.StatusForbidden {
		t.Errorf("hotlinked GET status = %d, want 403", got)
	}

	w = ut.PerformRequest(h.Engine, consts.MethodGet, "/api/photos?tag=sky", nil)
	if got := w.Result().StatusCode(); got != consts.StatusOK {
		t.Errorf("list status = %d", got)
	}
	if !strings.Contains(string(w.Result().Body()), item.ImageURL) {
		t.Errorf("list by tag missing uploaded photo: %s", w.Result().Body())
	}
}

func TestAdminRoutes(t *testing.T) {
	h := newTestServer(t)
	admin := []ut.Header{
		{Key: middleware.HeaderUserID, Value: "1"},
		{Key: middleware.HeaderUserRole, Value: "admin"},
	}

	body, ct := multipartPNG(t, "file")
	w := ut.PerformRequest(h.Engine, consts.MethodPost, "/api/admin/carousel", body, ct,
		ut.Header{Key: middleware.HeaderUserID, Value: "2"})
	if got := w.Result().StatusCode(); got != consts.StatusForbidden {
		t.Fatalf("non-admin carousel add status = %d, want 403", got)
	}

	body, ct = multipartPNG(t, "file")
	w = ut.PerformRequest(h.Engine, consts.MethodPost, "/api/admin/carousel", body, append(admin, ct)...)
	if got := w.Result().StatusCode(); got != consts.StatusOK {
		t.Fatalf("carousel add status = %d: %s", got, w.Result().Body())
	}

	w = ut.PerformRequest(h.Engine, consts.MethodGet, "/api/carousel", nil)
	var slots struct {
		Data struct {
			Items []api.CarouselSlot `json:"items"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Result().Body(), &slots); err != nil {
		t.Fatalf("decode carousel: %v", err)
	}
	if len(slots.Data.Items) != 1 || slots.Data.Items[0].SortOrder != 1 {
		t.Fatalf("carousel = %+v", slots.Data.Items)
	}

	del := &ut.Body{Body: strings.NewReader(`{"url":"photos/a.webp"}`), Len: len(`{"url":"photos/a.webp"}`)}
	w = ut.PerformRequest(h.Engine, consts.MethodPost, "/api/admin/minio-delete", del,
		append(admin, ut.Header{Key: "Content-Type", Value: "application/json"})...)
	if got := w.Result().StatusCode(); got != consts.StatusServiceUnavailable {
		t.Errorf("minio-delete without object store status = %d, want 503", got)
	}
}
