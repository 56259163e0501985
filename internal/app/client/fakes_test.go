package client

import (
	"context"
	"io"
	gosync "sync"
	"time"

	"golang.org/x/exp/slog"

	"scorekeeper/internal/domain/entity"
	"scorekeeper/internal/domain/sync"
)

const testUserID = "7d7c6f0e-3c38-4c2b-9a64-2f0f4b1c9e11"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeRemote удаленное хранилище в памяти
type fakeRemote struct {
	mu gosync.Mutex

	players map[string]entity.PlayerRow
	venues  map[string]entity.VenueRow
	matches map[string]entity.MatchRow
	games   map[string]entity.GameRow
	rallies map[string]entity.RallyAnalysisRow
	photos  map[string]string

	upsertCalls []int
	failUpserts int
	upsertErr   error
	dropIDs     bool

	changes    *sync.ChangesResponse
	changesErr error
	sinces     []int64
	// onChanges вызывается при каждом запросе изменений
	onChanges func()

	count    int
	countErr error

	entered chan struct{}
	release chan struct{}
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		players: make(map[string]entity.PlayerRow),
		venues:  make(map[string]entity.VenueRow),
		matches: make(map[string]entity.MatchRow),
		games:   make(map[string]entity.GameRow),
		rallies: make(map[string]entity.RallyAnalysisRow),
		photos:  make(map[string]string),
	}
}

func (f *fakeRemote) CountRecords(_ context.Context, _ string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count, f.countErr
}

func (f *fakeRemote) Upsert(_ context.Context, _ string, batch entity.ChangeSet) (*entity.UpsertResult, error) {
	if f.entered != nil {
		f.entered <- struct{}{}
		<-f.release
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.upsertCalls = append(f.upsertCalls, batch.Len())

	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	if f.failUpserts > 0 {
		f.failUpserts--
		return nil, &HTTPError{Status: 503, Body: "unavailable"}
	}

	res := &entity.UpsertResult{}
	for _, r := range batch.Players {
		f.players[r.ID] = r
		res.Append(entity.KindPlayer, r.ID)
	}
	for _, r := range batch.Venues {
		f.venues[r.ID] = r
		res.Append(entity.KindVenue, r.ID)
	}
	for _, r := range batch.Matches {
		f.matches[r.ID] = r
		res.Append(entity.KindMatch, r.ID)
	}
	for _, r := range batch.Games {
		f.games[r.ID] = r
		res.Append(entity.KindGame, r.ID)
	}
	for _, r := range batch.RallyAnalyses {
		f.rallies[r.ID] = r
		res.Append(entity.KindRallyAnalysis, r.ID)
	}

	if f.dropIDs {
		res = &entity.UpsertResult{}
	}
	return res, nil
}

func (f *fakeRemote) Changes(_ context.Context, _ string, sinceMs int64) (*sync.ChangesResponse, error) {
	if f.onChanges != nil {
		f.onChanges()
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.sinces = append(f.sinces, sinceMs)
	if f.changesErr != nil {
		return nil, f.changesErr
	}
	if f.changes != nil {
		return f.changes, nil
	}
	return &sync.ChangesResponse{}, nil
}

func (f *fakeRemote) SetMatchPhoto(_ context.Context, _ string, matchRemoteID, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.photos[matchRemoteID] = url
	return nil
}

func (f *fakeRemote) calls() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.upsertCalls...)
}

// recordingSleeper запоминает паузы и не ждет
type recordingSleeper struct {
	mu     gosync.Mutex
	delays []time.Duration
	err    error
}

func (r *recordingSleeper) sleep(_ context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return r.err
}

func (r *recordingSleeper) recorded() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

// fakeBlobs хранилище фото в памяти
type fakeBlobs struct {
	mu      gosync.Mutex
	objects map[string][]byte
	err     error
	entered chan struct{}
	release chan struct{}
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{objects: make(map[string][]byte)}
}

func (f *fakeBlobs) UploadPhoto(_ context.Context, key string, data []byte) (string, error) {
	if f.entered != nil {
		f.entered <- struct{}{}
		<-f.release
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return "", f.err
	}
	f.objects[key] = data
	return "https://photos.example.com/" + key, nil
}

func (f *fakeBlobs) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

type staticOnline bool

func (s staticOnline) Online() bool { return bool(s) }
