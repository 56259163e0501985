package client

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scorekeeper/internal/domain/entity"
	"scorekeeper/internal/domain/sync"
)

func newTestEngine(t *testing.T, store Storage, remote RemoteStore, sleeper *recordingSleeper) *SyncEngine {
	t.Helper()

	engine, err := NewSyncEngine(context.Background(), store, remote,
		SyncConfig{UserID: testUserID, BatchSize: entity.DefaultBatchSize, MaxRetries: DefaultMaxRetries},
		testLogger(), WithSleeper(sleeper.sleep))
	require.NoError(t, err)
	return engine
}

// seedMatch создает игрока, площадку, матч, гейм и анализ розыгрышей
func seedMatch(t *testing.T, s Storage) *entity.Match {
	t.Helper()
	ctx := context.Background()

	player := &entity.Player{Name: "Соперник", Dirty: true}
	require.NoError(t, s.SavePlayer(ctx, player))
	venue := &entity.Venue{Name: "Корт", Dirty: true}
	require.NoError(t, s.SaveVenue(ctx, venue))

	match := &entity.Match{
		OpponentID: player.ID,
		VenueID:    &venue.ID,
		Date:       "2024-06-01",
		Format:     "best_of_3",
		UserScore:  2,
		Result:     entity.ResultWin,
		Dirty:      true,
	}
	require.NoError(t, s.SaveMatch(ctx, match))
	require.NoError(t, s.SaveGame(ctx, &entity.Game{MatchID: match.ID, GameNumber: 1, UserScore: 11, OpponentScore: 9, Dirty: true}))
	require.NoError(t, s.SaveRallyAnalysis(ctx, &entity.RallyAnalysis{MatchID: match.ID, RallyData: map[string]any{"n": float64(3)}, Dirty: true}))

	return match
}

func TestSyncEngine_PushAssignsIDs(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)
	remote := newFakeRemote()
	engine := newTestEngine(t, store, remote, &recordingSleeper{})

	seedMatch(t, store)
	require.NoError(t, engine.RequestSync(ctx))

	assert.Equal(t, []int{1, 1, 1, 1, 1}, remote.calls())
	assert.Len(t, remote.players, 1)
	assert.Len(t, remote.matches, 1)

	players, err := store.Players(ctx)
	require.NoError(t, err)
	require.Len(t, players, 1)
	assert.NotEmpty(t, players[0].RemoteID)
	assert.False(t, players[0].Dirty)

	matches, err := store.Matches(ctx)
	require.NoError(t, err)
	require.Len(t, matches, 1)

	// внешние ключи на сервере ссылаются на глобальные ID родителей
	row := remote.matches[matches[0].RemoteID]
	assert.Equal(t, players[0].RemoteID, row.OpponentID)
	require.NotNil(t, row.VenueID)
	assert.Equal(t, testUserID, row.UserID)

	pending, err := store.HasPendingChanges(ctx)
	require.NoError(t, err)
	assert.False(t, pending)

	snap := engine.Status()
	assert.Equal(t, StatusIdle, snap.Status)
	assert.Equal(t, 5, snap.Stats.TotalPushed)
	assert.NotZero(t, snap.LastSyncTimestamp)

	cursor, ok, err := store.Meta(ctx, metaLastSyncTimestamp)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, strconv.FormatInt(snap.LastSyncTimestamp, 10), cursor)
}

func TestSyncEngine_PushIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)
	remote := newFakeRemote()
	engine := newTestEngine(t, store, remote, &recordingSleeper{})

	seedMatch(t, store)
	require.NoError(t, engine.RequestSync(ctx))

	players, err := store.Players(ctx)
	require.NoError(t, err)
	firstID := players[0].RemoteID

	// без изменений повторный прогон ничего не отправляет
	require.NoError(t, engine.RequestSync(ctx))
	assert.Len(t, remote.calls(), 5)

	// изменение дает upsert по тому же идентификатору
	p := players[0]
	p.Name = "Новое имя"
	p.Dirty = true
	require.NoError(t, store.SavePlayer(ctx, &p))
	require.NoError(t, engine.RequestSync(ctx))

	assert.Len(t, remote.players, 1)
	assert.Equal(t, "Новое имя", remote.players[firstID].Name)
}

func TestSyncEngine_IDsStableAcrossFailedRun(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)
	remote := newFakeRemote()
	engine := newTestEngine(t, store, remote, &recordingSleeper{})

	seedMatch(t, store)
	remote.changesErr = errors.New("pull недоступен")

	err := engine.RequestSync(ctx)
	require.Error(t, err)

	// каждая попытка повторно отправила одни и те же строки
	assert.Len(t, remote.players, 1)
	assert.Len(t, remote.matches, 1)
	assert.Len(t, remote.games, 1)

	pending, err := store.HasPendingChanges(ctx)
	require.NoError(t, err)
	assert.True(t, pending)
}

func TestSyncEngine_PushBatches(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)
	remote := newFakeRemote()
	engine := newTestEngine(t, store, remote, &recordingSleeper{})

	for i := 0; i < 120; i++ {
		require.NoError(t, store.SavePlayer(ctx, &entity.Player{Name: "Игрок " + strconv.Itoa(i), Dirty: true}))
	}

	require.NoError(t, engine.RequestSync(ctx))
	assert.Equal(t, []int{50, 50, 20}, remote.calls())
	assert.Len(t, remote.players, 120)
}

func TestSyncEngine_IDCountMismatch(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)
	remote := newFakeRemote()
	remote.dropIDs = true

	engine, err := NewSyncEngine(ctx, store, remote,
		SyncConfig{UserID: testUserID, BatchSize: 50, MaxRetries: 0}, testLogger())
	require.NoError(t, err)

	require.NoError(t, store.SavePlayer(ctx, &entity.Player{Name: "Игрок", Dirty: true}))

	err = engine.RequestSync(ctx)
	require.Error(t, err)

	var batchErr *BatchError
	require.ErrorAs(t, err, &batchErr)
	assert.Equal(t, entity.KindPlayer, batchErr.Kind)
	assert.Equal(t, 0, batchErr.Index)
}

func TestSyncEngine_RetryBackoff(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)
	remote := newFakeRemote()
	remote.upsertErr = errors.New("сервер недоступен")
	sleeper := &recordingSleeper{}
	engine := newTestEngine(t, store, remote, sleeper)

	require.NoError(t, store.SavePlayer(ctx, &entity.Player{Name: "Игрок", Dirty: true}))

	err := engine.RequestSync(ctx)
	require.Error(t, err)

	assert.Equal(t, []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		8 * time.Second,
	}, sleeper.recorded())
	assert.Len(t, remote.calls(), 6)

	snap := engine.Status()
	assert.Equal(t, StatusFailed, snap.Status)
	assert.False(t, snap.Running)
	assert.Equal(t, 0, snap.RetryCount)
	assert.Contains(t, snap.LastError, "сервер недоступен")
	assert.Equal(t, 6, snap.Stats.TotalRuns)
	assert.Equal(t, 5, snap.Stats.TotalRetries)

	stored, ok, err := store.Meta(ctx, metaLastSyncError)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, stored, "сервер недоступен")

	// ручной запуск начинает с чистым бюджетом
	remote.mu.Lock()
	remote.upsertErr = nil
	remote.mu.Unlock()

	require.NoError(t, engine.RequestManualSync(ctx))
	snap = engine.Status()
	assert.Equal(t, StatusIdle, snap.Status)
	assert.Empty(t, snap.LastError)
	assert.Len(t, sleeper.recorded(), 5)

	stored, _, err = store.Meta(ctx, metaLastSyncError)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestSyncEngine_RecoversAfterRetry(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)
	remote := newFakeRemote()
	remote.failUpserts = 2
	sleeper := &recordingSleeper{}
	engine := newTestEngine(t, store, remote, sleeper)

	require.NoError(t, store.SavePlayer(ctx, &entity.Player{Name: "Игрок", Dirty: true}))

	require.NoError(t, engine.RequestSync(ctx))
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, sleeper.recorded())

	snap := engine.Status()
	assert.Equal(t, StatusIdle, snap.Status)
	assert.Equal(t, 0, snap.RetryCount)
	assert.Len(t, remote.players, 1)
}

func TestSyncEngine_CancelDuringBackoff(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)
	remote := newFakeRemote()
	remote.upsertErr = errors.New("сервер недоступен")
	sleeper := &recordingSleeper{err: context.Canceled}
	engine := newTestEngine(t, store, remote, sleeper)

	require.NoError(t, store.SavePlayer(ctx, &entity.Player{Name: "Игрок", Dirty: true}))

	err := engine.RequestSync(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, remote.calls(), 1)

	snap := engine.Status()
	assert.Equal(t, StatusFailed, snap.Status)
	assert.False(t, snap.Running)
}

func TestSyncEngine_SingleFlight(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)
	remote := newFakeRemote()
	remote.entered = make(chan struct{})
	remote.release = make(chan struct{})
	engine := newTestEngine(t, store, remote, &recordingSleeper{})

	require.NoError(t, store.SavePlayer(ctx, &entity.Player{Name: "Игрок", Dirty: true}))

	done := make(chan error, 1)
	go func() { done <- engine.RequestSync(ctx) }()

	<-remote.entered
	assert.True(t, engine.Status().Running)
	assert.Equal(t, StatusSyncing, engine.Status().Status)

	// второй запрос не начинает прогон
	require.NoError(t, engine.RequestSync(ctx))
	require.NoError(t, engine.RequestManualSync(ctx))

	close(remote.release)
	require.NoError(t, <-done)
	assert.Len(t, remote.calls(), 1)
	assert.False(t, engine.Status().Running)
}

func TestSyncEngine_RequiresUser(t *testing.T) {
	store := newTestStorage(t)
	engine, err := NewSyncEngine(context.Background(), store, newFakeRemote(), SyncConfig{}, testLogger())
	require.NoError(t, err)

	err = engine.RequestSync(context.Background())
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestSyncEngine_Pull(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)
	remote := newFakeRemote()
	engine := newTestEngine(t, store, remote, &recordingSleeper{})

	playerID := uuid.NewString()
	venueID := uuid.NewString()
	matchID := uuid.NewString()
	energy := 2

	remote.changes = &sync.ChangesResponse{
		ServerTimeMs: 1_717_000_000_000,
		Changes: entity.ChangeSet{
			Players: []entity.PlayerRow{{ID: playerID, Name: "Борис", LastModifiedMs: 1_716_000_000_000}},
			Venues:  []entity.VenueRow{{ID: venueID, Name: "Зал"}},
			Matches: []entity.MatchRow{
				{ID: matchID, OpponentID: playerID, VenueID: &venueID, Date: "2024-05-30", Format: "best_of_5",
					UserScore: 3, OpponentScore: 1, Result: entity.ResultWin, EnergyLevel: &energy, Tags: []string{"лига"}},
				// соперник неизвестен
				{ID: uuid.NewString(), OpponentID: uuid.NewString(), Date: "2024-05-31", Format: "best_of_3", Result: entity.ResultLoss},
			},
			Games: []entity.GameRow{
				{ID: uuid.NewString(), MatchID: matchID, GameNumber: 1, UserScore: 11, OpponentScore: 4},
				// матч неизвестен
				{ID: uuid.NewString(), MatchID: uuid.NewString(), GameNumber: 1},
			},
			RallyAnalyses: []entity.RallyAnalysisRow{
				{ID: uuid.NewString(), MatchID: matchID, RallyData: map[string]any{"longest": float64(21)}},
			},
		},
	}

	require.NoError(t, engine.RequestSync(ctx))
	assert.Empty(t, remote.calls())
	assert.Equal(t, 5, engine.Status().Stats.TotalPulled)

	players, err := store.Players(ctx)
	require.NoError(t, err)
	require.Len(t, players, 1)
	assert.Equal(t, playerID, players[0].RemoteID)
	assert.False(t, players[0].Dirty)

	venues, err := store.Venues(ctx)
	require.NoError(t, err)
	require.Len(t, venues, 1)

	matches, err := store.Matches(ctx)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, players[0].ID, matches[0].OpponentID)
	require.NotNil(t, matches[0].VenueID)
	assert.Equal(t, venues[0].ID, *matches[0].VenueID)
	assert.Equal(t, []string{"лига"}, matches[0].Tags)
	require.NotNil(t, matches[0].EnergyLevel)
	assert.Equal(t, 2, *matches[0].EnergyLevel)

	games, err := store.Games(ctx)
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.Equal(t, matches[0].ID, games[0].MatchID)

	rallies, err := store.RallyAnalyses(ctx)
	require.NoError(t, err)
	require.Len(t, rallies, 1)

	assert.Equal(t, int64(1_717_000_000_000), engine.Status().LastSyncTimestamp)

	// повторное получение обновляет ту же запись, курсор передается серверу
	remote.mu.Lock()
	remote.changes = &sync.ChangesResponse{
		ServerTimeMs: 1_717_000_100_000,
		Changes: entity.ChangeSet{
			Players: []entity.PlayerRow{{ID: playerID, Name: "Борис Петров"}},
		},
	}
	remote.mu.Unlock()

	require.NoError(t, engine.RequestSync(ctx))

	players, err = store.Players(ctx)
	require.NoError(t, err)
	require.Len(t, players, 1)
	assert.Equal(t, "Борис Петров", players[0].Name)
	assert.Equal(t, []int64{0, 1_717_000_000_000}, remote.sinces)
}

func TestSyncEngine_RestoresCursor(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)
	require.NoError(t, store.SetMeta(ctx, metaLastSyncTimestamp, "42"))
	require.NoError(t, store.SetMeta(ctx, metaLastSyncError, "старая ошибка"))

	remote := newFakeRemote()
	engine := newTestEngine(t, store, remote, &recordingSleeper{})

	snap := engine.Status()
	assert.Equal(t, int64(42), snap.LastSyncTimestamp)
	assert.Equal(t, StatusFailed, snap.Status)
	assert.Equal(t, "старая ошибка", snap.LastError)

	require.NoError(t, engine.RequestSync(ctx))
	assert.Equal(t, []int64{42}, remote.sinces)
}

func TestSyncEngine_KeepsEditMadeDuringRun(t *testing.T) {
	tests := []struct {
		name string
		// запись изменена до прогона и отправляется в нем
		pushedInRun bool
	}{
		{name: "запись не отправлялась в прогоне", pushedInRun: false},
		{name: "запись отправлена в том же прогоне", pushedInRun: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := newTestStorage(t)
			remote := newFakeRemote()
			engine := newTestEngine(t, store, remote, &recordingSleeper{})

			require.NoError(t, store.SavePlayer(ctx, &entity.Player{Name: "Исходное", Dirty: true}))
			require.NoError(t, engine.RequestSync(ctx))

			players, err := store.Players(ctx)
			require.NoError(t, err)
			require.Len(t, players, 1)
			remoteID := players[0].RemoteID

			if tt.pushedInRun {
				p := players[0]
				p.Name = "Промежуточное"
				p.Dirty = true
				require.NoError(t, store.SavePlayer(ctx, &p))
			}

			edited := false
			remote.onChanges = func() {
				if edited {
					return
				}
				edited = true

				current, err := store.Players(ctx)
				require.NoError(t, err)
				p := current[0]
				p.Name = "Изменено"
				p.Dirty = true
				require.NoError(t, store.SavePlayer(ctx, &p))
			}

			require.NoError(t, engine.RequestSync(ctx))
			require.True(t, edited)

			pending, err := store.HasPendingChanges(ctx)
			require.NoError(t, err)
			assert.True(t, pending)

			require.NoError(t, engine.RequestSync(ctx))

			assert.Equal(t, "Изменено", remote.players[remoteID].Name)
			pending, err = store.HasPendingChanges(ctx)
			require.NoError(t, err)
			assert.False(t, pending)
		})
	}
}

func TestSyncEngine_SkipsChildWithoutParentID(t *testing.T) {
	ctx := context.Background()
	store := newTestStorage(t)
	remote := newFakeRemote()
	engine := newTestEngine(t, store, remote, &recordingSleeper{})

	// соперника с таким локальным ID еще нет
	match := &entity.Match{OpponentID: 1, Date: "2024-06-02", Format: "best_of_3", Result: entity.ResultLoss, Dirty: true}
	require.NoError(t, store.SaveMatch(ctx, match))
	require.NoError(t, store.SaveGame(ctx, &entity.Game{MatchID: match.ID, GameNumber: 1, Dirty: true}))

	require.NoError(t, engine.RequestSync(ctx))

	assert.Empty(t, remote.calls())
	assert.Empty(t, remote.matches)
	assert.Empty(t, remote.games)

	pending, err := store.HasPendingChanges(ctx)
	require.NoError(t, err)
	assert.True(t, pending)

	matches, err := store.Matches(ctx)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Empty(t, matches[0].RemoteID)
	assert.True(t, matches[0].Dirty)

	player := &entity.Player{Name: "Соперник", Dirty: true}
	require.NoError(t, store.SavePlayer(ctx, player))
	require.Equal(t, match.OpponentID, player.ID)

	require.NoError(t, engine.RequestSync(ctx))

	assert.Equal(t, []int{1, 1, 1}, remote.calls())
	require.Len(t, remote.matches, 1)
	require.Len(t, remote.games, 1)

	players, err := store.Players(ctx)
	require.NoError(t, err)
	matches, err = store.Matches(ctx)
	require.NoError(t, err)
	row := remote.matches[matches[0].RemoteID]
	assert.Equal(t, players[0].RemoteID, row.OpponentID)

	pending, err = store.HasPendingChanges(ctx)
	require.NoError(t, err)
	assert.False(t, pending)
}
