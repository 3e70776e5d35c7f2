package handler

import (
	"context"
	"errors"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"github.com/yi-nology/photo_bridge/biz/model/api"
	"github.com/yi-nology/photo_bridge/biz/service"
)

// PhotoHandler exposes photo upload, listing and object-store maintenance.
type PhotoHandler struct {
	service   *service.Service
	maxUpload int64
}

func NewPhotoHandler(svc *service.Service, maxUpload int64) *PhotoHandler {
	return &PhotoHandler{service: svc, maxUpload: maxUpload}
}

// UploadPhotos accepts one or more "files" parts (or a single "file") plus
// shared metadata fields.
func (h *PhotoHandler) UploadPhotos(ctx context.Context, c *app.RequestContext) {
	actor, ok := identity(ctx, c)
	if !ok {
		return
	}
	form, err := c.MultipartForm()
	if err != nil {
		RespondError(c, consts.StatusBadRequest, err)
		return
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		headers = form.File["file"]
	}
	if len(headers) == 0 {
		RespondError(c, consts.StatusBadRequest, errors.New("no files uploaded"))
		return
	}

	in := service.UploadPhotosInput{
		UserID:      actor.UserID,
		Title:       formValue(c, "title"),
		Description: formValue(c, "description"),
		Camera:      formValue(c, "camera"),
		Settings:    formValue(c, "settings"),
		Category:    formValue(c, "category"),
		Tags:        formValue(c, "tags"),
	}
	for _, fh := range headers {
		f, err := readUpload(fh, h.maxUpload)
		if err != nil {
			WriteError(ctx, c, err)
			return
		}
		in.Files = append(in.Files, f)
	}

	items, err := h.service.UploadPhotos(ctx, in)
	if err != nil {
		WriteError(ctx, c, err)
		return
	}
	RespondData(c, map[string]any{"items": items})
}

func (h *PhotoHandler) ListPhotos(ctx context.Context, c *app.RequestContext) {
	var req api.PhotoListRequest
	if err := c.BindQuery(&req); err != nil {
		RespondError(c, consts.StatusBadRequest, err)
		return
	}
	photos, err := h.service.ListPhotos(ctx, req)
	if err != nil {
		WriteError(ctx, c, err)
		return
	}
	RespondData(c, map[string]any{"items": photos, "page": max(req.Page, 1)})
}

func (h *PhotoHandler) GetPhoto(ctx context.Context, c *app.RequestContext) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	photo, err := h.service.GetPhoto(ctx, id)
	if err != nil {
		WriteError(ctx, c, err)
		return
	}
	RespondData(c, photo)
}

func (h *PhotoHandler) UpdatePhoto(ctx context.Context, c *app.RequestContext) {
	actor, ok := identity(ctx, c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req api.PhotoUpdateRequest
	if err := c.Bind(&req); err != nil {
		RespondError(c, consts.StatusBadRequest, err)
		return
	}
	photo, err := h.service.UpdatePhoto(ctx, id, req, actor)
	if err != nil {
		WriteError(ctx, c, err)
		return
	}
	RespondData(c, photo)
}

func (h *PhotoHandler) DeletePhoto(ctx context.Context, c *app.RequestContext) {
	actor, ok := identity(ctx, c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.service.DeletePhoto(ctx, id, actor); err != nil {
		WriteError(ctx, c, err)
		return
	}
	RespondOK(c)
}

func (h *PhotoHandler) MyPhotos(ctx context.Context, c *app.RequestContext) {
	actor, ok := identity(ctx, c)
	if !ok {
		return
	}
	var req api.PhotoListRequest
	if err := c.BindQuery(&req); err != nil {
		RespondError(c, consts.StatusBadRequest, err)
		return
	}
	photos, err := h.service.MyPhotos(ctx, actor, req.Page, req.PageSize)
	if err != nil {
		WriteError(ctx, c, err)
		return
	}
	RespondData(c, map[string]any{"items": photos})
}

func (h *PhotoHandler) MyStats(ctx context.Context, c *app.RequestContext) {
	actor, ok := identity(ctx, c)
	if !ok {
		return
	}
	stats, err := h.service.UserStats(ctx, actor.UserID)
	if err != nil {
		WriteError(ctx, c, err)
		return
	}
	RespondData(c, stats)
}

// ImportObject catalogs an object that already lives in the bucket.
func (h *PhotoHandler) ImportObject(ctx context.Context, c *app.RequestContext) {
	actor, ok := identity(ctx, c)
	if !ok {
		return
	}
	var req api.ObjectImportRequest
	if err := c.Bind(&req); err != nil {
		RespondError(c, consts.StatusBadRequest, err)
		return
	}
	photo, err := h.service.ImportObject(ctx, service.ImportInput{
		UserID:      actor.UserID,
		Ref:         req.URL,
		Title:       req.Title,
		Description: req.Description,
		Camera:      req.Camera,
		Settings:    req.Settings,
		Category:    req.Category,
		Tags:        req.Tags,
	})
	if err != nil {
		WriteError(ctx, c, err)
		return
	}
	RespondData(c, photo)
}

// DeleteObject removes an object; remove_related defaults to true.
func (h *PhotoHandler) DeleteObject(ctx context.Context, c *app.RequestContext) {
	var req api.ObjectDeleteRequest
	if err := c.Bind(&req); err != nil {
		RespondError(c, consts.StatusBadRequest, err)
		return
	}
	removeRelated := req.RemoveRelated == nil || *req.RemoveRelated
	removed, err := h.service.DeleteObjectByURL(ctx, req.URL, removeRelated)
	if err != nil {
		WriteError(ctx, c, err)
		return
	}
	RespondData(c, map[string]any{"removed_photos": removed})
}

func formValue(c *app.RequestContext, key string) string {
	return strings.TrimSpace(string(c.FormValue(key)))
}
