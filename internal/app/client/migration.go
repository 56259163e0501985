package client

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/exp/slog"

	"scorekeeper/internal/domain/entity"
)

// ProgressFunc получает число перенесенных записей, их общее число и название этапа
type ProgressFunc func(done, total int, label string)

// Migration однократный перенос локальных данных устройства в удаленное хранилище
type Migration struct {
	store     Storage
	remote    RemoteStore
	log       *slog.Logger
	batchSize int
}

func NewMigration(store Storage, remote RemoteStore, batchSize int, log *slog.Logger) *Migration {
	if batchSize <= 0 {
		batchSize = entity.DefaultBatchSize
	}
	return &Migration{
		store:     store,
		remote:    remote,
		log:       log.With("component", "migration"),
		batchSize: batchSize,
	}
}

// IsMigrationNeeded true, если перенос еще не выполнялся, на сервере у
// пользователя нет записей, а локально есть хотя бы одна.
func (m *Migration) IsMigrationNeeded(ctx context.Context, userID string) (bool, error) {
	done, err := m.completed(ctx)
	if err != nil {
		return false, err
	}
	if done {
		return false, nil
	}

	remoteCount, err := m.remote.CountRecords(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("ошибка подсчета удаленных записей: %w", err)
	}
	if remoteCount > 0 {
		return false, nil
	}

	localCount, err := m.store.CountRecords(ctx)
	if err != nil {
		return false, err
	}
	return localCount > 0, nil
}

func (m *Migration) completed(ctx context.Context) (bool, error) {
	v, ok, err := m.store.Meta(ctx, metaMigrationCompleted)
	if err != nil {
		return false, err
	}
	return ok && v == "true", nil
}

// migrationRun состояние одного прогона переноса
type migrationRun struct {
	*Migration
	userID     string
	deviceID   string
	mapper     *IDMapper
	done       int
	total      int
	onProgress ProgressFunc
	pushed     []PushedRecord
}

// RunMigration переносит все типы записей в порядке зависимостей.
// Первая ошибка пакета передается в onError без изменений, уже отправленные
// пакеты не откатываются. Повторный запуск безопасен: идентификаторы
// детерминированы.
func (m *Migration) RunMigration(ctx context.Context, userID string, onProgress ProgressFunc, onError func(error)) bool {
	if onProgress == nil {
		onProgress = func(int, int, string) {}
	}
	if onError == nil {
		onError = func(error) {}
	}

	if err := m.run(ctx, userID, onProgress); err != nil {
		var batchErr *BatchError
		if errors.As(err, &batchErr) {
			m.log.Error("ошибка переноса пакета",
				"kind", batchErr.Kind,
				"batch", batchErr.Index,
				"error", batchErr.Err,
			)
			onError(batchErr.Err)
		} else {
			m.log.Error("ошибка переноса", "error", err)
			onError(err)
		}
		return false
	}

	return true
}

func (m *Migration) run(ctx context.Context, userID string, onProgress ProgressFunc) error {
	if userID == "" {
		return ErrUnauthenticated
	}

	deviceID, err := m.store.DeviceID(ctx)
	if err != nil {
		return err
	}

	total, err := m.store.CountRecords(ctx)
	if err != nil {
		return err
	}

	r := &migrationRun{
		Migration:  m,
		userID:     userID,
		deviceID:   deviceID,
		mapper:     NewIDMapper(),
		total:      total,
		onProgress: onProgress,
	}

	m.log.Info("начат перенос данных", "total", total)
	onProgress(0, total, entity.KindPlayer.DisplayName())

	steps := []func(context.Context) error{
		r.players,
		r.venues,
		r.matches,
		r.games,
		r.rallyAnalyses,
	}
	for _, step := range steps {
		if err := step(ctx); err != nil {
			return err
		}
	}

	// отправленные записи уже на сервере с теми же полями
	if err := m.store.ClearDirty(ctx, r.pushed); err != nil {
		return err
	}
	if err := m.store.SetMeta(ctx, metaMigrationCompleted, "true"); err != nil {
		return err
	}

	m.log.Info("перенос данных завершен", "total", total)
	return nil
}

// id возвращает существующий или детерминированный идентификатор записи
func (r *migrationRun) id(kind entity.Kind, existing string, localID int64) string {
	return remoteIDFor(existing, r.userID, r.deviceID, kind, localID)
}

// parentID идентификатор родителя из mapper, иначе тот, с которым родитель
// был бы создан
func (r *migrationRun) parentID(kind entity.Kind, localID int64) string {
	if id, ok := r.mapper.Get(kind, localID); ok {
		return id
	}
	return entity.MintID(r.userID, r.deviceID, kind, localID)
}

// onBatch сохраняет идентификаторы и сообщает прогресс после пакета
func (r *migrationRun) onBatch(ctx context.Context, kind entity.Kind) batchHandler {
	return func(refs []rowRef, remoteIDs []string) error {
		for i, ref := range refs {
			if err := r.store.SetRemoteID(ctx, kind, ref.localID, remoteIDs[i]); err != nil {
				return err
			}
			if kind.HasDependents() {
				r.mapper.Set(kind, ref.localID, remoteIDs[i])
			}
			r.pushed = append(r.pushed, PushedRecord{Kind: kind, LocalID: ref.localID, Revision: ref.revision})
		}
		r.done += len(refs)
		r.onProgress(r.done, r.total, kind.DisplayName())
		return nil
	}
}

func (r *migrationRun) skip(kind entity.Kind, n int) {
	if n == 0 {
		return
	}
	r.log.Warn("записи без родителя пропущены", "kind", kind, "count", n)
	r.done += n
	r.onProgress(r.done, r.total, kind.DisplayName())
}

func (r *migrationRun) players(ctx context.Context) error {
	players, err := r.store.Players(ctx)
	if err != nil {
		return err
	}

	rows := make([]pendingRow[entity.PlayerRow], 0, len(players))
	for _, p := range players {
		id := r.id(entity.KindPlayer, p.RemoteID, p.ID)
		rows = append(rows, pendingRow[entity.PlayerRow]{rowRef{p.ID, p.Revision}, entity.PlayerToRow(p, id, r.userID)})
	}

	_, err = upsertBatches(ctx, r.remote, r.userID, entity.KindPlayer, rows, r.batchSize,
		wrapPlayers, r.onBatch(ctx, entity.KindPlayer))
	return err
}

func (r *migrationRun) venues(ctx context.Context) error {
	venues, err := r.store.Venues(ctx)
	if err != nil {
		return err
	}

	rows := make([]pendingRow[entity.VenueRow], 0, len(venues))
	for _, v := range venues {
		id := r.id(entity.KindVenue, v.RemoteID, v.ID)
		rows = append(rows, pendingRow[entity.VenueRow]{rowRef{v.ID, v.Revision}, entity.VenueToRow(v, id, r.userID)})
	}

	_, err = upsertBatches(ctx, r.remote, r.userID, entity.KindVenue, rows, r.batchSize,
		wrapVenues, r.onBatch(ctx, entity.KindVenue))
	return err
}

func (r *migrationRun) matches(ctx context.Context) error {
	matches, err := r.store.Matches(ctx)
	if err != nil {
		return err
	}

	rows := make([]pendingRow[entity.MatchRow], 0, len(matches))
	for _, m := range matches {
		id := r.id(entity.KindMatch, m.RemoteID, m.ID)
		opponentID := r.parentID(entity.KindPlayer, m.OpponentID)
		venueID := ""
		if m.VenueID != nil {
			venueID = r.parentID(entity.KindVenue, *m.VenueID)
		}
		rows = append(rows, pendingRow[entity.MatchRow]{rowRef{m.ID, m.Revision}, entity.MatchToRow(m, id, r.userID, opponentID, venueID)})
	}

	_, err = upsertBatches(ctx, r.remote, r.userID, entity.KindMatch, rows, r.batchSize,
		wrapMatches, r.onBatch(ctx, entity.KindMatch))
	return err
}

func (r *migrationRun) games(ctx context.Context) error {
	games, err := r.store.Games(ctx)
	if err != nil {
		return err
	}

	rows := make([]pendingRow[entity.GameRow], 0, len(games))
	skipped := 0
	for _, g := range games {
		matchID, ok := r.mapper.Get(entity.KindMatch, g.MatchID)
		if !ok {
			skipped++
			continue
		}
		id := r.id(entity.KindGame, g.RemoteID, g.ID)
		rows = append(rows, pendingRow[entity.GameRow]{rowRef{g.ID, g.Revision}, entity.GameToRow(g, id, r.userID, matchID)})
	}

	_, err = upsertBatches(ctx, r.remote, r.userID, entity.KindGame, rows, r.batchSize,
		wrapGames, r.onBatch(ctx, entity.KindGame))
	if err != nil {
		return err
	}
	r.skip(entity.KindGame, skipped)
	return nil
}

func (r *migrationRun) rallyAnalyses(ctx context.Context) error {
	rallies, err := r.store.RallyAnalyses(ctx)
	if err != nil {
		return err
	}

	rows := make([]pendingRow[entity.RallyAnalysisRow], 0, len(rallies))
	skipped := 0
	for _, ra := range rallies {
		matchID, ok := r.mapper.Get(entity.KindMatch, ra.MatchID)
		if !ok {
			skipped++
			continue
		}
		id := r.id(entity.KindRallyAnalysis, ra.RemoteID, ra.ID)
		rows = append(rows, pendingRow[entity.RallyAnalysisRow]{rowRef{ra.ID, ra.Revision}, entity.RallyAnalysisToRow(ra, id, r.userID, matchID)})
	}

	_, err = upsertBatches(ctx, r.remote, r.userID, entity.KindRallyAnalysis, rows, r.batchSize,
		wrapRallyAnalyses, r.onBatch(ctx, entity.KindRallyAnalysis))
	if err != nil {
		return err
	}
	r.skip(entity.KindRallyAnalysis, skipped)
	return nil
}
