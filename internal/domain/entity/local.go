package entity

import "time"

// Локальные записи хранятся на устройстве и имеют небольшой целочисленный ID,
// который присваивает локальное хранилище при вставке.
// RemoteID пуст, пока запись не получила глобальный идентификатор.
// Dirty помечает несинхронизированные локальные изменения.
// Revision хранилище увеличивает при каждом изменении записи.

type Player struct {
	ID            int64
	RemoteID      string
	Name          string
	IsCurrentUser bool
	CreatedAt     time.Time
	Dirty         bool
	Revision      int64
}

type Venue struct {
	ID        int64
	RemoteID  string
	Name      string
	CreatedAt time.Time
	Dirty     bool
	Revision  int64
}

type Match struct {
	ID            int64
	RemoteID      string
	OpponentID    int64
	VenueID       *int64
	Date          string
	Format        string
	UserScore     int
	OpponentScore int
	Result        MatchResult
	EnergyLevel   *int
	Note          string
	PhotoURL      string
	Tags          []string
	CreatedAt     time.Time
	Dirty         bool
	Revision      int64
}

type Game struct {
	ID            int64
	RemoteID      string
	MatchID       int64
	GameNumber    int
	UserScore     int
	OpponentScore int
	CreatedAt     time.Time
	Dirty         bool
	Revision      int64
}

type RallyAnalysis struct {
	ID        int64
	RemoteID  string
	MatchID   int64
	RallyData map[string]any
	CreatedAt time.Time
	Dirty     bool
	Revision  int64
}

// PhotoEntry элемент очереди загрузки фотографий.
// Blob хранит сжатое изображение в base64.
type PhotoEntry struct {
	ID         int64
	MatchID    int64
	Blob       string
	Filename   string
	CreatedAt  time.Time
	RetryCount int
}
