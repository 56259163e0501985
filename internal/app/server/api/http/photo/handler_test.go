package photo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image/color"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"scorekeeper/internal/app/server/api/http/middleware/auth"
	"scorekeeper/internal/domain/sync"
	"scorekeeper/internal/infrastructure/storage/blob"
)

const testUser = "user-1"

func asUser(userID string) huma.Middlewares {
	return huma.Middlewares{
		func(ctx huma.Context, next func(huma.Context)) {
			if userID != "" {
				ctx = huma.WithContext(ctx, auth.WithUserID(ctx.Context(), userID))
			}
			next(ctx)
		},
	}
}

func jpegBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, imaging.New(8, 8, color.White), imaging.JPEG))
	return buf.Bytes()
}

type failingUploader struct{}

func (failingUploader) Put(context.Context, string, []byte) (string, error) {
	return "", errors.New("disk full")
}

func newTestAPI(t *testing.T, bucket Uploader, userID string) humatest.TestAPI {
	t.Helper()
	_, api := humatest.New(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	NewHandler(bucket, log, asUser(userID)).SetupRoutes(api)
	return api
}

func TestHandler_Upload(t *testing.T) {
	dir := t.TempDir()
	bucket, err := blob.NewBucket(dir, "http://localhost:8080/storage/photos")
	require.NoError(t, err)

	api := newTestAPI(t, bucket, testUser)
	data := jpegBytes(t)

	resp := api.Put("/api/storage/photos/user-1/12_1717000000000.jpg",
		"Content-Type: image/jpeg", bytes.NewReader(data))

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var out sync.PhotoUploadResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	assert.Equal(t, "http://localhost:8080/storage/photos/user-1/12_1717000000000.jpg", out.URL)

	stored, err := os.ReadFile(filepath.Join(dir, "user-1", "12_1717000000000.jpg"))
	require.NoError(t, err)
	assert.Equal(t, data, stored)
}

func TestHandler_Upload_Errors(t *testing.T) {
	tests := []struct {
		name       string
		bucket     Uploader
		userID     string
		path       string
		body       []byte
		wantStatus int
	}{
		{
			name:       "без аутентификации",
			path:       "/api/storage/photos/user-1/a.jpg",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "чужой ключ",
			userID:     testUser,
			path:       "/api/storage/photos/user-2/a.jpg",
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "не JPEG",
			userID:     testUser,
			path:       "/api/storage/photos/user-1/a.jpg",
			body:       []byte("plain text, not an image"),
			wantStatus: http.StatusUnsupportedMediaType,
		},
		{
			name:       "ошибка хранилища",
			bucket:     failingUploader{},
			userID:     testUser,
			path:       "/api/storage/photos/user-1/a.jpg",
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bucket := tt.bucket
			if bucket == nil {
				b, err := blob.NewBucket(t.TempDir(), "http://localhost")
				require.NoError(t, err)
				bucket = b
			}
			body := tt.body
			if body == nil {
				body = jpegBytes(t)
			}

			api := newTestAPI(t, bucket, tt.userID)
			resp := api.Put(tt.path, "Content-Type: image/jpeg", bytes.NewReader(body))

			assert.Equal(t, tt.wantStatus, resp.Code)
			assert.NotContains(t, resp.Body.String(), "disk full")
		})
	}
}
