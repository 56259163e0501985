package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/exp/slog"

	"scorekeeper/internal/app/client/config"
	"scorekeeper/internal/domain/entity"
	"scorekeeper/internal/domain/sync"
)

// HTTPError ответ сервера с ошибочным статусом
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("сервер вернул статус %d: %s", e.Status, e.Body)
}

type httpClient struct {
	client    *http.Client
	log       *slog.Logger
	baseURL   string
	token     string
	userAgent string
}

func NewHTTPClient(cfg *config.Config, log *slog.Logger) *httpClient {
	client := &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			IdleConnTimeout:     90 * time.Second,
			MaxIdleConnsPerHost: 10,
		},
	}

	return &httpClient{
		client:    client,
		log:       log.With("component", "http_client"),
		baseURL:   cfg.BaseURL(),
		token:     cfg.APIToken,
		userAgent: "Scorekeeper-Client/1.0",
	}
}

// HealthCheck проверяет доступность сервера
func (h *httpClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+"/api/v1/health", nil)
	if err != nil {
		return fmt.Errorf("ошибка создания запроса: %w", err)
	}

	req.Header.Set("User-Agent", h.userAgent)

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOffline, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: статус %d", ErrOffline, resp.StatusCode)
	}

	return nil
}

// CountRecords число записей пользователя на сервере
func (h *httpClient) CountRecords(ctx context.Context, _ string) (int, error) {
	var out sync.CountResponse
	if err := h.doJSON(ctx, http.MethodGet, "/api/sync/count", nil, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

// Upsert отправляет пакет строк
func (h *httpClient) Upsert(ctx context.Context, _ string, batch entity.ChangeSet) (*entity.UpsertResult, error) {
	var out entity.UpsertResult
	if err := h.doJSON(ctx, http.MethodPost, "/api/sync/batch", batch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Changes получает изменения после курсора
func (h *httpClient) Changes(ctx context.Context, _ string, sinceMs int64) (*sync.ChangesResponse, error) {
	path := "/api/sync/changes?since=" + strconv.FormatInt(sinceMs, 10)

	var out sync.ChangesResponse
	if err := h.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetMatchPhoto привязывает ссылку на фото к удаленному матчу
func (h *httpClient) SetMatchPhoto(ctx context.Context, _ string, matchRemoteID, photoURL string) error {
	path := "/api/sync/matches/" + url.PathEscape(matchRemoteID) + "/photo"
	return h.doJSON(ctx, http.MethodPut, path, sync.MatchPhotoRequest{PhotoURL: photoURL}, nil)
}

// UploadPhoto загружает JPEG по ключу {userId}/{file}
func (h *httpClient) UploadPhoto(ctx context.Context, key string, data []byte) (string, error) {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}

	req, err := h.newRequest(ctx, http.MethodPut, "/api/storage/photos/"+strings.Join(segments, "/"), bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "image/jpeg")

	var out sync.PhotoUploadResponse
	if err := h.do(req, &out); err != nil {
		return "", err
	}
	return out.URL, nil
}

func (h *httpClient) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания запроса: %w", err)
	}

	req.Header.Set("User-Agent", h.userAgent)
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}
	return req, nil
}

func (h *httpClient) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("ошибка маршалинга тела запроса: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := h.newRequest(ctx, method, path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return h.do(req, out)
}

func (h *httpClient) do(req *http.Request, out any) error {
	start := time.Now()

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("ошибка выполнения запроса %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	h.log.Debug("HTTP request",
		slog.String("method", req.Method),
		slog.String("path", req.URL.Path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &HTTPError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("ошибка разбора ответа: %w", err)
	}
	return nil
}
