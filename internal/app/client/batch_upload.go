package client

import (
	"context"
	"fmt"

	"scorekeeper/internal/domain/entity"
)

// BatchError ошибка отправки одного пакета
type BatchError struct {
	Kind  entity.Kind
	Index int
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("пакет %d (%s): %v", e.Index, e.Kind, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// rowRef локальная запись в той ревизии, из которой построена строка
type rowRef struct {
	localID  int64
	revision int64
}

// pendingRow удаленная строка вместе с локальной записью, из которой она построена
type pendingRow[R any] struct {
	rowRef
	row R
}

// batchHandler вызывается после успешной отправки пакета с идентификаторами,
// которые вернул сервер для каждой строки пакета.
type batchHandler func(refs []rowRef, remoteIDs []string) error

// upsertBatches отправляет строки пакетами строго последовательно.
// Первая ошибка прерывает отправку.
func upsertBatches[R any](
	ctx context.Context,
	remote RemoteStore,
	userID string,
	kind entity.Kind,
	rows []pendingRow[R],
	size int,
	wrap func([]R) entity.ChangeSet,
	onBatch batchHandler,
) (int, error) {
	sent := 0

	for i, chunk := range entity.Chunk(rows, size) {
		payload := make([]R, len(chunk))
		refs := make([]rowRef, len(chunk))
		for j, p := range chunk {
			payload[j] = p.row
			refs[j] = p.rowRef
		}

		res, err := remote.Upsert(ctx, userID, wrap(payload))
		if err != nil {
			return sent, &BatchError{Kind: kind, Index: i, Err: err}
		}

		ids := res.IDs(kind)
		if len(ids) != len(chunk) {
			return sent, &BatchError{
				Kind:  kind,
				Index: i,
				Err:   fmt.Errorf("сервер вернул %d идентификаторов вместо %d", len(ids), len(chunk)),
			}
		}

		if onBatch != nil {
			if err := onBatch(refs, ids); err != nil {
				return sent, err
			}
		}
		sent += len(chunk)
	}

	return sent, nil
}

func wrapPlayers(rows []entity.PlayerRow) entity.ChangeSet { return entity.ChangeSet{Players: rows} }
func wrapVenues(rows []entity.VenueRow) entity.ChangeSet   { return entity.ChangeSet{Venues: rows} }
func wrapMatches(rows []entity.MatchRow) entity.ChangeSet  { return entity.ChangeSet{Matches: rows} }
func wrapGames(rows []entity.GameRow) entity.ChangeSet     { return entity.ChangeSet{Games: rows} }

func wrapRallyAnalyses(rows []entity.RallyAnalysisRow) entity.ChangeSet {
	return entity.ChangeSet{RallyAnalyses: rows}
}
