package sync

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"scorekeeper/internal/domain/sync"
)

type Handler struct {
	service    sync.Servicer
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service sync.Servicer, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		log:        log.With("component", "sync_handler"),
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.batchOp(), h.batch)
	huma.Register(api, h.changesOp(), h.changes)
	huma.Register(api, h.countOp(), h.count)
	huma.Register(api, h.matchPhotoOp(), h.matchPhoto)
}

func (h *Handler) batch(ctx context.Context, input *batchInput) (*batchOutput, error) {
	result, err := h.service.UpsertBatch(ctx, input.Body)
	if err != nil {
		return nil, h.toHTTPError(err)
	}
	return &batchOutput{Body: *result}, nil
}

func (h *Handler) changes(ctx context.Context, input *changesInput) (*changesOutput, error) {
	response, err := h.service.Changes(ctx, input.Since)
	if err != nil {
		return nil, h.toHTTPError(err)
	}
	return &changesOutput{Body: *response}, nil
}

func (h *Handler) count(ctx context.Context, _ *countInput) (*countOutput, error) {
	count, err := h.service.Count(ctx)
	if err != nil {
		return nil, h.toHTTPError(err)
	}
	return &countOutput{Body: sync.CountResponse{Count: count}}, nil
}

func (h *Handler) matchPhoto(ctx context.Context, input *matchPhotoInput) (*struct{}, error) {
	if err := h.service.SetMatchPhoto(ctx, input.ID, input.Body.PhotoURL); err != nil {
		return nil, h.toHTTPError(err)
	}
	return nil, nil
}

func (h *Handler) toHTTPError(err error) error {
	switch {
	case errors.Is(err, sync.ErrUnauthenticated):
		return huma.Error401Unauthorized("unauthorized")
	case errors.Is(err, sync.ErrBatchTooLarge):
		return huma.NewError(http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, sync.ErrInvalidReference), errors.Is(err, sync.ErrInvalidRow):
		return huma.Error422UnprocessableEntity(err.Error())
	case errors.Is(err, sync.ErrForeignRow):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, sync.ErrRecordNotFound):
		return huma.Error404NotFound(err.Error())
	}

	h.log.Error("sync request failed", "error", err)
	return huma.Error500InternalServerError("internal error")
}
