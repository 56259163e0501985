package client

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/exp/slog"

	"scorekeeper/internal/domain/entity"
)

// MaxPhotoRetries число неудачных загрузок, после которого фото удаляется из очереди
const MaxPhotoRetries = 5

// OnlineReporter сообщает последнее известное состояние сети
type OnlineReporter interface {
	Online() bool
}

// DrainStats итог одного прохода по очереди
type DrainStats struct {
	Uploaded int `json:"uploaded"`
	Retried  int `json:"retried"`
	Dropped  int `json:"dropped"`
}

// PhotoQueue офлайн-очередь загрузки фотографий матчей
type PhotoQueue struct {
	store    Storage
	blobs    BlobStore
	remote   RemoteStore
	online   OnlineReporter
	log      *slog.Logger
	metrics  *Metrics
	userID   string
	draining atomic.Bool
	now      func() time.Time
}

func NewPhotoQueue(store Storage, blobs BlobStore, remote RemoteStore, online OnlineReporter, userID string, log *slog.Logger, metrics *Metrics) *PhotoQueue {
	return &PhotoQueue{
		store:   store,
		blobs:   blobs,
		remote:  remote,
		online:  online,
		log:     log.With("component", "photo_queue"),
		metrics: metrics,
		userID:  userID,
		now:     time.Now,
	}
}

// PhotoFilename имя файла фото матча: {matchId}_{unixMillis}.jpg
func PhotoFilename(matchID int64, at time.Time) string {
	return strconv.FormatInt(matchID, 10) + "_" + strconv.FormatInt(at.UnixMilli(), 10) + ".jpg"
}

// PhotoKey ключ объекта в хранилище: {userId}/{file}
func PhotoKey(userID, filename string) string {
	return userID + "/" + filename
}

// Enqueue ставит сжатое фото в очередь с нулевым счетчиком попыток
func (q *PhotoQueue) Enqueue(ctx context.Context, matchID int64, blob []byte, filename string) (*entity.PhotoEntry, error) {
	entry := &entity.PhotoEntry{
		MatchID:  matchID,
		Blob:     base64.StdEncoding.EncodeToString(blob),
		Filename: filename,
	}
	if err := q.store.EnqueuePhoto(ctx, entry); err != nil {
		return nil, err
	}

	q.log.Debug("фото поставлено в очередь", "match_id", matchID, "filename", filename)
	return entry, nil
}

// AttachPhoto сжимает фото и загружает его сразу, если есть сеть, иначе
// ставит в очередь. Ошибки загрузки только логируются: запись матча от них
// не зависит. Возвращает ссылку, если загрузка прошла сразу.
func (q *PhotoQueue) AttachPhoto(ctx context.Context, matchID int64, raw []byte) (string, error) {
	if _, err := q.store.Match(ctx, matchID); err != nil {
		return "", err
	}

	blob, err := Compress(raw)
	if err != nil {
		return "", err
	}
	filename := PhotoFilename(matchID, q.now())

	if q.userID != "" && q.isOnline() {
		url, err := q.upload(ctx, matchID, blob, filename)
		if err == nil {
			return url, nil
		}
		q.log.Warn("загрузка фото не удалась, фото поставлено в очередь",
			"match_id", matchID,
			"error", err,
		)
	}

	if _, err := q.Enqueue(ctx, matchID, blob, filename); err != nil {
		return "", err
	}
	return "", nil
}

// DrainQueue пытается загрузить все фото из очереди. Параллельный вызов
// ничего не делает.
func (q *PhotoQueue) DrainQueue(ctx context.Context) (DrainStats, error) {
	var stats DrainStats

	if q.userID == "" {
		return stats, ErrUnauthenticated
	}
	if !q.draining.CompareAndSwap(false, true) {
		q.log.Debug("очередь фото уже обрабатывается")
		return stats, nil
	}
	defer q.draining.Store(false)

	entries, err := q.store.PhotoQueue(ctx)
	if err != nil {
		return stats, err
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		if err := q.drainEntry(ctx, entry); err != nil {
			next := entry.RetryCount + 1
			if next >= MaxPhotoRetries {
				q.log.Warn("фото удалено из очереди после исчерпания попыток",
					"entry_id", entry.ID,
					"match_id", entry.MatchID,
					"error", err,
				)
				if err := q.store.DeletePhoto(ctx, entry.ID); err != nil {
					return stats, err
				}
				stats.Dropped++
				continue
			}

			q.log.Info("загрузка фото не удалась",
				"entry_id", entry.ID,
				"retry", next,
				"error", err,
			)
			if err := q.store.UpdatePhotoRetry(ctx, entry.ID, next); err != nil {
				return stats, err
			}
			stats.Retried++
			continue
		}

		if err := q.store.DeletePhoto(ctx, entry.ID); err != nil {
			return stats, err
		}
		stats.Uploaded++
	}

	if len(entries) > 0 {
		q.log.Info("очередь фото обработана",
			"uploaded", stats.Uploaded,
			"retried", stats.Retried,
			"dropped", stats.Dropped,
		)
	}
	return stats, nil
}

func (q *PhotoQueue) drainEntry(ctx context.Context, entry entity.PhotoEntry) error {
	blob, err := base64.StdEncoding.DecodeString(entry.Blob)
	if err != nil {
		return fmt.Errorf("ошибка декодирования фото: %w", err)
	}

	_, err = q.upload(ctx, entry.MatchID, blob, entry.Filename)
	if errors.Is(err, ErrNotFound) {
		// матч удален локально, загружать некуда
		q.log.Warn("матч фото не найден", "entry_id", entry.ID, "match_id", entry.MatchID)
		return nil
	}
	return err
}

// upload загружает фото и привязывает ссылку к матчу локально и, если матч
// уже на сервере, удаленно
func (q *PhotoQueue) upload(ctx context.Context, matchID int64, blob []byte, filename string) (string, error) {
	url, err := q.blobs.UploadPhoto(ctx, PhotoKey(q.userID, filename), blob)
	if err != nil {
		q.metrics.photoUpload(ctx, "failure")
		return "", err
	}
	q.metrics.photoUpload(ctx, "success")

	if err := q.store.SetMatchPhoto(ctx, matchID, url); err != nil {
		return "", err
	}

	match, err := q.store.Match(ctx, matchID)
	if err != nil {
		return "", err
	}
	if match.RemoteID != "" {
		// при ошибке ссылка уйдет со следующим push: матч помечен измененным
		if err := q.remote.SetMatchPhoto(ctx, q.userID, match.RemoteID, url); err != nil {
			q.log.Warn("не удалось обновить фото матча на сервере",
				"match_id", matchID,
				"error", err,
			)
		}
	}

	q.log.Info("фото загружено", "match_id", matchID, "url", url)
	return url, nil
}

func (q *PhotoQueue) isOnline() bool {
	if q.online == nil {
		return true
	}
	return q.online.Online()
}
