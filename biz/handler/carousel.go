package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"github.com/yi-nology/photo_bridge/biz/model/api"
	"github.com/yi-nology/photo_bridge/biz/service"
)

// CarouselHandler serves the public carousel and its admin maintenance.
type CarouselHandler struct {
	service   *service.Service
	maxUpload int64
}

func NewCarouselHandler(svc *service.Service, maxUpload int64) *CarouselHandler {
	return &CarouselHandler{service: svc, maxUpload: maxUpload}
}

func (h *CarouselHandler) List(ctx context.Context, c *app.RequestContext) {
	slots, err := h.service.ListSlots(ctx)
	if err != nil {
		WriteError(ctx, c, err)
		return
	}
	RespondData(c, map[string]any{"items": slots})
}

func (h *CarouselHandler) Add(ctx context.Context, c *app.RequestContext) {
	in, ok := h.upload(ctx, c)
	if !ok {
		return
	}
	slot, err := h.service.AddSlot(ctx, in)
	if err != nil {
		WriteError(ctx, c, err)
		return
	}
	RespondData(c, slot)
}

func (h *CarouselHandler) Replace(ctx context.Context, c *app.RequestContext) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	in, ok := h.upload(ctx, c)
	if !ok {
		return
	}
	slot, err := h.service.ReplaceSlot(ctx, id, in)
	if err != nil {
		WriteError(ctx, c, err)
		return
	}
	RespondData(c, slot)
}

func (h *CarouselHandler) Delete(ctx context.Context, c *app.RequestContext) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteSlot(ctx, id); err != nil {
		WriteError(ctx, c, err)
		return
	}
	RespondOK(c)
}

func (h *CarouselHandler) Sort(ctx context.Context, c *app.RequestContext) {
	var req api.CarouselSortRequest
	if err := c.BindJSON(&req); err != nil {
		RespondError(c, consts.StatusBadRequest, err)
		return
	}
	slots, err := h.service.Reorder(ctx, req.IDs)
	if err != nil {
		WriteError(ctx, c, err)
		return
	}
	RespondData(c, map[string]any{"items": slots})
}

// upload reads the single "file" part of a carousel request.
func (h *CarouselHandler) upload(ctx context.Context, c *app.RequestContext) (service.CarouselUpload, bool) {
	actor, ok := identity(ctx, c)
	if !ok {
		return service.CarouselUpload{}, false
	}
	fh, err := c.FormFile("file")
	if err != nil {
		RespondError(c, consts.StatusBadRequest, err)
		return service.CarouselUpload{}, false
	}
	f, err := readUpload(fh, h.maxUpload)
	if err != nil {
		WriteError(ctx, c, err)
		return service.CarouselUpload{}, false
	}
	return service.CarouselUpload{UserID: actor.UserID, File: f}, true
}
