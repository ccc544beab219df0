package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/bike-marketplace/internal/service"
	"github.com/iliyamo/bike-marketplace/internal/storage"
)

// PublicHandler serves stored blobs when no CDN sits in front of the
// bucket.  Reads are charged as class B operations by the store.
type PublicHandler struct {
	Blobs *storage.Accounted
	Log   *zap.SugaredLogger
}

func NewPublicHandler(blobs *storage.Accounted, log *zap.SugaredLogger) *PublicHandler {
	return &PublicHandler{Blobs: blobs, Log: orNop(log)}
}

// Snapshot serves the public listing document.
func (h *PublicHandler) Snapshot(c echo.Context) error {
	return h.serve(c, service.SnapshotKey)
}

// Image serves a listing image under /img/*.
func (h *PublicHandler) Image(c echo.Context) error {
	rest := strings.TrimLeft(c.Param("*"), "/")
	if rest == "" {
		return fail(c, http.StatusNotFound, "Not found.")
	}
	return h.serve(c, "img/"+rest)
}

func (h *PublicHandler) serve(c echo.Context, key string) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	obj, err := h.Blobs.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fail(c, http.StatusNotFound, "Not found.")
		}
		h.Log.Warnw("blob read failed", "key", key, "error", err)
		return fail(c, http.StatusInternalServerError, service.MsgInternal)
	}
	if obj.CacheControl != "" {
		c.Response().Header().Set("Cache-Control", obj.CacheControl)
	}
	ct := obj.ContentType
	if ct == "" {
		ct = echo.MIMEOctetStream
	}
	return c.Blob(http.StatusOK, ct, obj.Data)
}
