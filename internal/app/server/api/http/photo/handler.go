package photo

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"

	"scorekeeper/internal/app/server/api/http/middleware/auth"
	"scorekeeper/internal/infrastructure/storage/blob"
)

// MaxPhotoBytes предел тела загрузки; клиент сжимает фото до 1920px
const MaxPhotoBytes = 10 << 20

// Uploader хранилище объектов с публичными ссылками
type Uploader interface {
	Put(ctx context.Context, key string, data []byte) (string, error)
}

type Handler struct {
	bucket     Uploader
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(bucket Uploader, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		bucket:     bucket,
		log:        log.With("component", "photo_handler"),
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.uploadOp(), h.upload)
}

func (h *Handler) upload(ctx context.Context, input *uploadInput) (*uploadOutput, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok || userID == "" {
		return nil, huma.Error401Unauthorized("unauthorized")
	}
	if input.User != userID {
		return nil, huma.Error403Forbidden("photo key belongs to another user")
	}

	if len(input.RawBody) == 0 {
		return nil, huma.Error400BadRequest("empty body")
	}
	if ct := http.DetectContentType(input.RawBody); ct != "image/jpeg" {
		return nil, huma.Error415UnsupportedMediaType("expected image/jpeg, got " + ct)
	}

	url, err := h.bucket.Put(ctx, input.User+"/"+input.File, input.RawBody)
	if errors.Is(err, blob.ErrInvalidKey) {
		return nil, huma.Error400BadRequest(err.Error())
	}
	if err != nil {
		h.log.Error("photo upload failed", "user_id", userID, "file", input.File, "error", err)
		return nil, huma.Error500InternalServerError("upload failed")
	}

	h.log.Debug("photo stored", "user_id", userID, "file", input.File, "bytes", len(input.RawBody))

	out := &uploadOutput{}
	out.Body.URL = url
	return out, nil
}
