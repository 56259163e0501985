package client

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/exp/slog"

	"scorekeeper/internal/domain/entity"
)

// SyncConfig конфигурация синхронизации
type SyncConfig struct {
	UserID     string
	BatchSize  int
	MaxRetries int
}

// SyncEngine двусторонняя синхронизация: Push локальных изменений, затем Pull
// удаленных, с повторами по экспоненциальной паузе.
type SyncEngine struct {
	store   Storage
	remote  RemoteStore
	log     *slog.Logger
	metrics *Metrics
	config  SyncConfig
	state   *SyncState
	sleep   func(ctx context.Context, d time.Duration) error
	now     func() time.Time
}

// EngineOption настройка SyncEngine
type EngineOption func(*SyncEngine)

// WithSleeper подменяет паузу между попытками
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) EngineOption {
	return func(e *SyncEngine) { e.sleep = sleep }
}

// WithMetrics подключает счетчики
func WithMetrics(m *Metrics) EngineOption {
	return func(e *SyncEngine) { e.metrics = m }
}

// NewSyncEngine создает движок и восстанавливает курсор и последнюю ошибку из хранилища
func NewSyncEngine(ctx context.Context, store Storage, remote RemoteStore, cfg SyncConfig, log *slog.Logger, opts ...EngineOption) (*SyncEngine, error) {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = entity.DefaultBatchSize
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}

	var lastSync int64
	if v, ok, err := store.Meta(ctx, metaLastSyncTimestamp); err != nil {
		return nil, err
	} else if ok {
		lastSync, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("ошибка разбора %s: %w", metaLastSyncTimestamp, err)
		}
	}

	lastError, _, err := store.Meta(ctx, metaLastSyncError)
	if err != nil {
		return nil, err
	}

	e := &SyncEngine{
		store:  store,
		remote: remote,
		log:    log.With("component", "sync_engine"),
		config: cfg,
		state:  NewSyncState(lastSync, lastError),
		sleep:  sleepContext,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// Status возвращает снимок состояния
func (e *SyncEngine) Status() SyncSnapshot {
	return e.state.Snapshot()
}

// RequestSync запускает прогон. Если прогон уже идет, ничего не делает.
func (e *SyncEngine) RequestSync(ctx context.Context) error {
	return e.run(ctx, false)
}

// RequestManualSync сбрасывает счетчик попыток и запускает прогон
func (e *SyncEngine) RequestManualSync(ctx context.Context) error {
	return e.run(ctx, true)
}

func (e *SyncEngine) run(ctx context.Context, manual bool) error {
	if e.config.UserID == "" {
		return ErrUnauthenticated
	}

	if !e.state.begin(manual) {
		e.log.Debug("синхронизация уже выполняется")
		return nil
	}

	for {
		start := e.now()

		pushed, pulled, cursor, err := e.attempt(ctx)
		if err == nil {
			e.state.succeed(cursor, pushed, pulled, time.Since(start))
			e.metrics.syncRun(ctx, "success")
			e.log.Info("синхронизация завершена",
				"pushed", pushed,
				"pulled", pulled,
				"duration", time.Since(start),
			)
			return nil
		}

		e.metrics.syncRun(ctx, "failure")
		delay, retry := e.state.fail(err, e.config.MaxRetries)
		e.persistError(ctx, err)

		if !retry {
			e.log.Error("синхронизация не удалась, попытки исчерпаны", "error", err)
			return err
		}

		e.metrics.syncRetry(ctx)
		e.log.Warn("ошибка синхронизации, повтор",
			"error", err,
			"retry", e.state.Snapshot().RetryCount,
			"delay", delay,
		)

		if err := e.sleep(ctx, delay); err != nil {
			e.state.abort(err)
			return fmt.Errorf("синхронизация прервана: %w", err)
		}
		e.state.enterSyncing()
	}
}

// attempt одна попытка: Push, затем Pull. Pull только после успешного Push.
func (e *SyncEngine) attempt(ctx context.Context) (int, int, int64, error) {
	pushed, records, err := e.Push(ctx)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("push: %w", err)
	}

	pulled, cursor, err := e.Pull(ctx)
	if err != nil {
		return pushed, 0, 0, fmt.Errorf("pull: %w", err)
	}

	if err := e.store.SetMeta(ctx, metaLastSyncTimestamp, strconv.FormatInt(cursor, 10)); err != nil {
		return pushed, pulled, 0, err
	}
	if err := e.store.ClearDirty(ctx, records); err != nil {
		return pushed, pulled, 0, err
	}
	if err := e.store.SetMeta(ctx, metaLastSyncError, ""); err != nil {
		e.log.Warn("не удалось сбросить сохраненную ошибку", "error", err)
	}

	return pushed, pulled, cursor, nil
}

func (e *SyncEngine) persistError(ctx context.Context, err error) {
	if serr := e.store.SetMeta(ctx, metaLastSyncError, err.Error()); serr != nil {
		e.log.Warn("не удалось сохранить ошибку синхронизации", "error", serr)
	}
}

func needsPush(dirty bool, remoteID string) bool {
	return dirty || remoteID == ""
}

func remoteIDFor(existing, userID, deviceID string, kind entity.Kind, localID int64) string {
	if existing != "" {
		return existing
	}
	return entity.MintID(userID, deviceID, kind, localID)
}

// persistIDs сохраняет выданные идентификаторы в хранилище и в mapper и
// запоминает отправленные записи
func (e *SyncEngine) persistIDs(ctx context.Context, kind entity.Kind, mapper *IDMapper, pushed *[]PushedRecord) batchHandler {
	return func(refs []rowRef, remoteIDs []string) error {
		for i, ref := range refs {
			*pushed = append(*pushed, PushedRecord{Kind: kind, LocalID: ref.localID, Revision: ref.revision})

			if prev, ok := mapper.Get(kind, ref.localID); ok && prev == remoteIDs[i] {
				continue
			}
			if err := e.store.SetRemoteID(ctx, kind, ref.localID, remoteIDs[i]); err != nil {
				return err
			}
			mapper.Set(kind, ref.localID, remoteIDs[i])
		}
		return nil
	}
}

// Push отправляет новые и измененные записи всех типов в порядке зависимостей.
// Дочерняя запись, у родителя которой нет глобального ID, пропускается до
// следующего прогона. Возвращает отправленные записи для сброса признака
// изменений.
func (e *SyncEngine) Push(ctx context.Context) (int, []PushedRecord, error) {
	userID := e.config.UserID

	deviceID, err := e.store.DeviceID(ctx)
	if err != nil {
		return 0, nil, err
	}

	players, err := e.store.Players(ctx)
	if err != nil {
		return 0, nil, err
	}
	venues, err := e.store.Venues(ctx)
	if err != nil {
		return 0, nil, err
	}
	matches, err := e.store.Matches(ctx)
	if err != nil {
		return 0, nil, err
	}
	games, err := e.store.Games(ctx)
	if err != nil {
		return 0, nil, err
	}
	rallies, err := e.store.RallyAnalyses(ctx)
	if err != nil {
		return 0, nil, err
	}

	// уже известные глобальные ID родителей
	known := NewIDMapper()
	for _, p := range players {
		if p.RemoteID != "" {
			known.Set(entity.KindPlayer, p.ID, p.RemoteID)
		}
	}
	for _, v := range venues {
		if v.RemoteID != "" {
			known.Set(entity.KindVenue, v.ID, v.RemoteID)
		}
	}
	for _, m := range matches {
		if m.RemoteID != "" {
			known.Set(entity.KindMatch, m.ID, m.RemoteID)
		}
	}

	total, skipped := 0, 0
	var pushed []PushedRecord

	var playerRows []pendingRow[entity.PlayerRow]
	for _, p := range players {
		if needsPush(p.Dirty, p.RemoteID) {
			id := remoteIDFor(p.RemoteID, userID, deviceID, entity.KindPlayer, p.ID)
			playerRows = append(playerRows, pendingRow[entity.PlayerRow]{rowRef{p.ID, p.Revision}, entity.PlayerToRow(p, id, userID)})
		}
	}
	n, err := upsertBatches(ctx, e.remote, userID, entity.KindPlayer, playerRows, e.config.BatchSize,
		wrapPlayers, e.persistIDs(ctx, entity.KindPlayer, known, &pushed))
	total += n
	if err != nil {
		return total, nil, err
	}

	var venueRows []pendingRow[entity.VenueRow]
	for _, v := range venues {
		if needsPush(v.Dirty, v.RemoteID) {
			id := remoteIDFor(v.RemoteID, userID, deviceID, entity.KindVenue, v.ID)
			venueRows = append(venueRows, pendingRow[entity.VenueRow]{rowRef{v.ID, v.Revision}, entity.VenueToRow(v, id, userID)})
		}
	}
	n, err = upsertBatches(ctx, e.remote, userID, entity.KindVenue, venueRows, e.config.BatchSize,
		wrapVenues, e.persistIDs(ctx, entity.KindVenue, known, &pushed))
	total += n
	if err != nil {
		return total, nil, err
	}

	var matchRows []pendingRow[entity.MatchRow]
	for _, m := range matches {
		if !needsPush(m.Dirty, m.RemoteID) {
			continue
		}
		opponentID, ok := known.Get(entity.KindPlayer, m.OpponentID)
		if !ok {
			skipped++
			continue
		}
		venueID := ""
		if m.VenueID != nil {
			if venueID, ok = known.Get(entity.KindVenue, *m.VenueID); !ok {
				skipped++
				continue
			}
		}
		id := remoteIDFor(m.RemoteID, userID, deviceID, entity.KindMatch, m.ID)
		matchRows = append(matchRows, pendingRow[entity.MatchRow]{rowRef{m.ID, m.Revision}, entity.MatchToRow(m, id, userID, opponentID, venueID)})
	}
	n, err = upsertBatches(ctx, e.remote, userID, entity.KindMatch, matchRows, e.config.BatchSize,
		wrapMatches, e.persistIDs(ctx, entity.KindMatch, known, &pushed))
	total += n
	if err != nil {
		return total, nil, err
	}

	var gameRows []pendingRow[entity.GameRow]
	for _, g := range games {
		if !needsPush(g.Dirty, g.RemoteID) {
			continue
		}
		matchID, ok := known.Get(entity.KindMatch, g.MatchID)
		if !ok {
			skipped++
			continue
		}
		id := remoteIDFor(g.RemoteID, userID, deviceID, entity.KindGame, g.ID)
		gameRows = append(gameRows, pendingRow[entity.GameRow]{rowRef{g.ID, g.Revision}, entity.GameToRow(g, id, userID, matchID)})
	}
	n, err = upsertBatches(ctx, e.remote, userID, entity.KindGame, gameRows, e.config.BatchSize,
		wrapGames, e.persistIDs(ctx, entity.KindGame, known, &pushed))
	total += n
	if err != nil {
		return total, nil, err
	}

	var rallyRows []pendingRow[entity.RallyAnalysisRow]
	for _, r := range rallies {
		if !needsPush(r.Dirty, r.RemoteID) {
			continue
		}
		matchID, ok := known.Get(entity.KindMatch, r.MatchID)
		if !ok {
			skipped++
			continue
		}
		id := remoteIDFor(r.RemoteID, userID, deviceID, entity.KindRallyAnalysis, r.ID)
		rallyRows = append(rallyRows, pendingRow[entity.RallyAnalysisRow]{rowRef{r.ID, r.Revision}, entity.RallyAnalysisToRow(r, id, userID, matchID)})
	}
	n, err = upsertBatches(ctx, e.remote, userID, entity.KindRallyAnalysis, rallyRows, e.config.BatchSize,
		wrapRallyAnalyses, e.persistIDs(ctx, entity.KindRallyAnalysis, known, &pushed))
	total += n
	if err != nil {
		return total, nil, err
	}

	if skipped > 0 {
		e.log.Debug("записи без родителя пропущены", "skipped", skipped)
	}
	e.metrics.recordsPushed(ctx, total)

	return total, pushed, nil
}

// Pull получает изменения после курсора и применяет их локально: сервер
// всегда прав. Строка ищется по remote_id и перезаписывается, иначе
// вставляется. Ссылки на родителей переводятся в локальные ID.
func (e *SyncEngine) Pull(ctx context.Context) (int, int64, error) {
	resp, err := e.remote.Changes(ctx, e.config.UserID, e.state.cursor())
	if err != nil {
		return 0, 0, err
	}

	cursor := resp.ServerTimeMs
	if cursor <= 0 {
		cursor = e.now().UnixMilli()
	}

	changes := resp.Changes
	applied := 0

	for _, row := range changes.Players {
		if row.DeletedAt != nil {
			continue
		}
		id, _, err := e.store.LocalID(ctx, entity.KindPlayer, row.ID)
		if err != nil {
			return applied, 0, err
		}
		p := entity.Player{ID: id}
		entity.ApplyPlayerRow(&p, row)
		if err := e.store.SavePlayer(ctx, &p); err != nil {
			return applied, 0, err
		}
		applied++
	}

	for _, row := range changes.Venues {
		if row.DeletedAt != nil {
			continue
		}
		id, _, err := e.store.LocalID(ctx, entity.KindVenue, row.ID)
		if err != nil {
			return applied, 0, err
		}
		v := entity.Venue{ID: id}
		entity.ApplyVenueRow(&v, row)
		if err := e.store.SaveVenue(ctx, &v); err != nil {
			return applied, 0, err
		}
		applied++
	}

	for _, row := range changes.Matches {
		if row.DeletedAt != nil {
			continue
		}
		opponentID, ok, err := e.store.LocalID(ctx, entity.KindPlayer, row.OpponentID)
		if err != nil {
			return applied, 0, err
		}
		if !ok {
			e.log.Debug("матч без известного соперника пропущен", "match_id", row.ID)
			continue
		}

		var venueID *int64
		if row.VenueID != nil {
			id, ok, err := e.store.LocalID(ctx, entity.KindVenue, *row.VenueID)
			if err != nil {
				return applied, 0, err
			}
			if ok {
				venueID = &id
			}
		}

		id, _, err := e.store.LocalID(ctx, entity.KindMatch, row.ID)
		if err != nil {
			return applied, 0, err
		}
		m := entity.Match{ID: id}
		entity.ApplyMatchRow(&m, row, opponentID, venueID)
		if err := e.store.SaveMatch(ctx, &m); err != nil {
			return applied, 0, err
		}
		applied++
	}

	for _, row := range changes.Games {
		if row.DeletedAt != nil {
			continue
		}
		matchID, ok, err := e.store.LocalID(ctx, entity.KindMatch, row.MatchID)
		if err != nil {
			return applied, 0, err
		}
		if !ok {
			continue
		}
		id, _, err := e.store.LocalID(ctx, entity.KindGame, row.ID)
		if err != nil {
			return applied, 0, err
		}
		g := entity.Game{ID: id}
		entity.ApplyGameRow(&g, row, matchID)
		if err := e.store.SaveGame(ctx, &g); err != nil {
			return applied, 0, err
		}
		applied++
	}

	for _, row := range changes.RallyAnalyses {
		if row.DeletedAt != nil {
			continue
		}
		matchID, ok, err := e.store.LocalID(ctx, entity.KindMatch, row.MatchID)
		if err != nil {
			return applied, 0, err
		}
		if !ok {
			continue
		}
		id, _, err := e.store.LocalID(ctx, entity.KindRallyAnalysis, row.ID)
		if err != nil {
			return applied, 0, err
		}
		r := entity.RallyAnalysis{ID: id}
		entity.ApplyRallyAnalysisRow(&r, row, matchID)
		if err := e.store.SaveRallyAnalysis(ctx, &r); err != nil {
			return applied, 0, err
		}
		applied++
	}

	e.log.Debug("изменения применены",
		"received", changes.Len(),
		"applied", applied,
		"cursor", cursor,
	)
	e.metrics.recordsPulled(ctx, applied)

	return applied, cursor, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
