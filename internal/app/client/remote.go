package client

import (
	"context"

	"scorekeeper/internal/domain/entity"
	"scorekeeper/internal/domain/sync"
)

// RemoteStore удаленное хранилище записей, доступ ограничен пользователем
type RemoteStore interface {
	CountRecords(ctx context.Context, userID string) (int, error)
	Upsert(ctx context.Context, userID string, batch entity.ChangeSet) (*entity.UpsertResult, error)
	Changes(ctx context.Context, userID string, sinceMs int64) (*sync.ChangesResponse, error)
	SetMatchPhoto(ctx context.Context, userID, matchRemoteID, url string) error
}

// BlobStore хранилище фотографий; возвращает публичную ссылку
type BlobStore interface {
	UploadPhoto(ctx context.Context, key string, data []byte) (string, error)
}

// HealthChecker проверка доступности сервера
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
