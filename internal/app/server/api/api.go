// Удаленное хранилище синхронизации:
//
//	GET  /api/v1/health                       # Доступность (публичный)
//	POST /api/sync/batch                      # Пакет upsert (auth)
//	GET  /api/sync/changes?since=<ms>         # Изменения после курсора (auth)
//	GET  /api/sync/count                      # Число записей (auth)
//	PUT  /api/sync/matches/{id}/photo         # Ссылка на фото матча (auth)
//	PUT  /api/storage/photos/{user}/{file}    # Загрузка JPEG (auth)
//	GET  /storage/photos/*                    # Раздача фото (публичный)
package api

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"golang.org/x/exp/slog"

	"scorekeeper/internal/app/server/api/http/health"
	"scorekeeper/internal/app/server/api/http/middleware"
	"scorekeeper/internal/app/server/api/http/middleware/auth"
	"scorekeeper/internal/app/server/api/http/middleware/logger"
	photoAPI "scorekeeper/internal/app/server/api/http/photo"
	syncAPI "scorekeeper/internal/app/server/api/http/sync"
	"scorekeeper/internal/app/server/config"
	"scorekeeper/internal/domain/session"
	"scorekeeper/internal/domain/sync"
	"scorekeeper/internal/infrastructure/storage/blob"
	"scorekeeper/internal/infrastructure/storage/postgres"
)

// PhotosPath префикс публичной раздачи фото
const PhotosPath = "/storage/photos"

type Handlers struct {
	Health *health.Handler
	Sync   *syncAPI.Handler
	Photo  *photoAPI.Handler
}

// New создает *chi.Mux со всеми операциями через huma.Register
func New(storage *postgres.Storage, bucket *blob.Bucket, cfg *config.Config, log *slog.Logger) *chi.Mux {
	mux := chi.NewMux()

	humaConfig := huma.DefaultConfig("Scorekeeper API", "1.0.0")
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {Type: "http", Scheme: "bearer"},
	}

	API := humachi.New(mux, humaConfig)

	h := handlers(storage, bucket, cfg, log)
	h.Health.SetupRoutes(API)
	h.Sync.SetupRoutes(API)
	h.Photo.SetupRoutes(API)

	files := http.StripPrefix(PhotosPath+"/", http.FileServer(bucket.FileSystem()))
	mux.Handle(PhotosPath+"/*", files)

	return mux
}

func handlers(storage *postgres.Storage, bucket *blob.Bucket, cfg *config.Config, log *slog.Logger) *Handlers {
	sessionRepo := postgres.NewSessionRepository(storage, log)
	sessionService := session.NewService(sessionRepo, log, cfg.Session.TTL)

	middlewares := middleware.NewContainer(
		logger.New(log).Middleware(),
		auth.New(sessionService, log).Middleware(),
	)

	syncRepo := postgres.NewSyncRepository(storage, log)
	syncService := sync.NewService(syncRepo, log, nil)

	return &Handlers{
		Health: health.NewHandler(storage, log, middlewares.Public()),
		Sync:   syncAPI.NewHandler(syncService, log, middlewares.Protected()),
		Photo:  photoAPI.NewHandler(bucket, log, middlewares.Protected()),
	}
}
