package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"github.com/yi-nology/photo_bridge/biz/service"
	"github.com/yi-nology/photo_bridge/pkg/common"
	"github.com/yi-nology/photo_bridge/pkg/imaging"
	"github.com/yi-nology/photo_bridge/pkg/validator"
)

// Ping answers liveness probes.
func Ping(ctx context.Context, c *app.RequestContext) {
	c.JSON(consts.StatusOK, common.CommonResponse{Code: consts.StatusOK, Msg: "pong"})
}

// --------------------- Response helpers ---------------------

func RespondData(c *app.RequestContext, data any) {
	c.JSON(consts.StatusOK, common.CommonResponse{
		Code: consts.StatusOK,
		Msg:  http.StatusText(consts.StatusOK),
		Data: data,
	})
}

func RespondOK(c *app.RequestContext) {
	c.JSON(consts.StatusOK, common.CommonResponse{Code: consts.StatusOK, Msg: http.StatusText(consts.StatusOK)})
}

func RespondError(c *app.RequestContext, status int, err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, common.CommonResponse{
		Code:  status,
		Msg:   msg,
		Error: msg,
	})
}

// WriteError maps service errors onto HTTP statuses. Unknown errors are
// logged and reported as 500 without their text.
func WriteError(ctx context.Context, c *app.RequestContext, err error) {
	status := StatusFor(err)
	if status == consts.StatusInternalServerError {
		hlog.CtxErrorf(ctx, "%s %s: %v", c.Request.Method(), c.Request.URI().Path(), err)
		c.JSON(status, common.CommonResponse{
			Code:  status,
			Msg:   "internal error",
			Error: "internal error",
		})
		return
	}
	RespondError(c, status, err)
}

// StatusFor returns the HTTP status for a service error.
func StatusFor(err error) int {
	var quota *service.QuotaExceededError
	var ingest *service.IngestFailedError
	switch {
	case err == nil:
		return consts.StatusOK
	case errors.As(err, &quota):
		return consts.StatusTooManyRequests
	case errors.As(err, &ingest), errors.Is(err, service.ErrStoreWriteFailure):
		return consts.StatusBadGateway
	case errors.Is(err, service.ErrCarouselFull),
		errors.Is(err, service.ErrInvalidInput),
		imaging.IsDecodeError(err):
		return consts.StatusBadRequest
	case errors.Is(err, service.ErrForbidden):
		return consts.StatusForbidden
	case errors.Is(err, service.ErrPhotoNotFound),
		errors.Is(err, service.ErrSlotNotFound),
		errors.Is(err, service.ErrAssetNotFound):
		return consts.StatusNotFound
	case errors.Is(err, service.ErrObjectStoreOff):
		return consts.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return consts.StatusRequestTimeout
	default:
		return consts.StatusInternalServerError
	}
}

// --------------------- Request helpers ---------------------

func identity(ctx context.Context, c *app.RequestContext) (common.Identity, bool) {
	id, ok := common.GetIdentity(ctx)
	if !ok {
		RespondError(c, consts.StatusUnauthorized, errors.New("authentication required"))
	}
	return id, ok
}

func pathID(c *app.RequestContext, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		RespondError(c, consts.StatusBadRequest, fmt.Errorf("invalid %s", name))
		return 0, false
	}
	return uint(id), true
}

// readUpload loads one multipart file, refusing more than limit bytes.
func readUpload(fh *multipart.FileHeader, limit int64) (service.UploadFile, error) {
	if limit <= 0 {
		limit = validator.DefaultMaxUploadSize
	}
	if fh.Size > limit {
		return service.UploadFile{}, fmt.Errorf("%w: %s: %v", service.ErrInvalidInput, fh.Filename, validator.ErrFileTooLarge)
	}
	f, err := fh.Open()
	if err != nil {
		return service.UploadFile{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return service.UploadFile{}, err
	}
	if int64(len(data)) > limit {
		return service.UploadFile{}, fmt.Errorf("%w: %s: %v", service.ErrInvalidInput, fh.Filename, validator.ErrFileTooLarge)
	}
	return service.UploadFile{
		FileName:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
