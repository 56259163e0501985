package client

import (
	"context"
	"errors"

	"scorekeeper/internal/domain/entity"
)

var (
	ErrNotFound        = errors.New("запись не найдена")
	ErrOffline         = errors.New("нет соединения с сервером")
	ErrUnauthenticated = errors.New("требуется аутентификация")
)

// Ключи таблицы sync_meta
const (
	metaMigrationCompleted = "migration_completed"
	metaLastSyncTimestamp  = "last_sync_timestamp"
	metaLastSyncError      = "last_sync_error"
	metaDeviceID           = "device_id"
)

// PushedRecord запись, отправленная на сервер в той ревизии, в которой ее прочитали
type PushedRecord struct {
	Kind     entity.Kind
	LocalID  int64
	Revision int64
}

// Storage локальное хранилище устройства. Никакой логики синхронизации.
type Storage interface {
	CountRecords(ctx context.Context) (int, error)
	HasPendingChanges(ctx context.Context) (bool, error)

	Players(ctx context.Context) ([]entity.Player, error)
	Venues(ctx context.Context) ([]entity.Venue, error)
	Matches(ctx context.Context) ([]entity.Match, error)
	Games(ctx context.Context) ([]entity.Game, error)
	RallyAnalyses(ctx context.Context) ([]entity.RallyAnalysis, error)
	Match(ctx context.Context, id int64) (*entity.Match, error)

	SavePlayer(ctx context.Context, p *entity.Player) error
	SaveVenue(ctx context.Context, v *entity.Venue) error
	SaveMatch(ctx context.Context, m *entity.Match) error
	SaveGame(ctx context.Context, g *entity.Game) error
	SaveRallyAnalysis(ctx context.Context, r *entity.RallyAnalysis) error

	SetRemoteID(ctx context.Context, kind entity.Kind, localID int64, remoteID string) error
	LocalID(ctx context.Context, kind entity.Kind, remoteID string) (int64, bool, error)
	ClearDirty(ctx context.Context, pushed []PushedRecord) error
	SetMatchPhoto(ctx context.Context, matchID int64, url string) error

	Meta(ctx context.Context, key string) (string, bool, error)
	SetMeta(ctx context.Context, key, value string) error
	DeviceID(ctx context.Context) (string, error)
	DataVersion(ctx context.Context) (int64, error)

	EnqueuePhoto(ctx context.Context, e *entity.PhotoEntry) error
	PhotoQueue(ctx context.Context) ([]entity.PhotoEntry, error)
	UpdatePhotoRetry(ctx context.Context, id int64, retryCount int) error
	DeletePhoto(ctx context.Context, id int64) error

	Close() error
}
