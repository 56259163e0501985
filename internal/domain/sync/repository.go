package sync

import (
	"context"

	"scorekeeper/internal/domain/entity"
)

// Repository удаленное хранилище записей пользователя
type Repository interface {
	// Upsert записывает строки в одной транзакции, родители раньше детей.
	// Строка другого пользователя с тем же id дает ErrForeignRow.
	Upsert(ctx context.Context, userID string, set entity.ChangeSet) (*entity.UpsertResult, error)

	// Changes возвращает неудаленные строки с last_modified_ms > sinceMs
	Changes(ctx context.Context, userID string, sinceMs int64) (*entity.ChangeSet, error)

	// Count возвращает число неудаленных строк всех типов
	Count(ctx context.Context, userID string) (int, error)

	// SetMatchPhoto обновляет ссылку на фото матча
	SetMatchPhoto(ctx context.Context, userID, matchID, url string, nowMs int64) error
}
