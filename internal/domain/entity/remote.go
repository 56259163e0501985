package entity

import (
	"fmt"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

// MatchResult итог матча
type MatchResult string

const (
	ResultWin  MatchResult = "win"
	ResultLoss MatchResult = "loss"
)

// Schema реализует huma.SchemaProvider.
func (MatchResult) Schema(_ huma.Registry) *huma.Schema {
	return &huma.Schema{
		Type:        huma.TypeString,
		Enum:        []any{string(ResultWin), string(ResultLoss)},
		Description: "Итог матча",
		Examples:    []any{ResultWin},
	}
}

// Validate проверяет значение итога.
func (r MatchResult) Validate() error {
	switch r {
	case ResultWin, ResultLoss:
		return nil
	}
	return fmt.Errorf("неверный итог матча: %s", r)
}

// Строки удаленного хранилища. Внешние ключи - UUID, а не локальные ID.

type PlayerRow struct {
	ID             string     `json:"id" format:"uuid"`
	UserID         string     `json:"user_id,omitempty"`
	Name           string     `json:"name"`
	IsCurrentUser  bool       `json:"is_current_user"`
	LastModifiedMs int64      `json:"last_modified_ms,omitempty"`
	DeletedAt      *time.Time `json:"deleted_at,omitempty"`
}

type VenueRow struct {
	ID             string     `json:"id" format:"uuid"`
	UserID         string     `json:"user_id,omitempty"`
	Name           string     `json:"name"`
	LastModifiedMs int64      `json:"last_modified_ms,omitempty"`
	DeletedAt      *time.Time `json:"deleted_at,omitempty"`
}

type MatchRow struct {
	ID             string      `json:"id" format:"uuid"`
	UserID         string      `json:"user_id,omitempty"`
	OpponentID     string      `json:"opponent_id" format:"uuid"`
	VenueID        *string     `json:"venue_id,omitempty"`
	Date           string      `json:"date"`
	Format         string      `json:"format"`
	UserScore      int         `json:"user_score"`
	OpponentScore  int         `json:"opponent_score"`
	Result         MatchResult `json:"result"`
	EnergyLevel    *int        `json:"energy_level,omitempty" minimum:"1" maximum:"3"`
	Note           *string     `json:"note,omitempty"`
	PhotoURL       *string     `json:"photo_url,omitempty"`
	Tags           []string    `json:"tags,omitempty"`
	LastModifiedMs int64       `json:"last_modified_ms,omitempty"`
	DeletedAt      *time.Time  `json:"deleted_at,omitempty"`
}

type GameRow struct {
	ID             string     `json:"id" format:"uuid"`
	UserID         string     `json:"user_id,omitempty"`
	MatchID        string     `json:"match_id" format:"uuid"`
	GameNumber     int        `json:"game_number"`
	UserScore      int        `json:"user_score"`
	OpponentScore  int        `json:"opponent_score"`
	LastModifiedMs int64      `json:"last_modified_ms,omitempty"`
	DeletedAt      *time.Time `json:"deleted_at,omitempty"`
}

type RallyAnalysisRow struct {
	ID             string         `json:"id" format:"uuid"`
	UserID         string         `json:"user_id,omitempty"`
	MatchID        string         `json:"match_id" format:"uuid"`
	RallyData      map[string]any `json:"rally_data,omitempty"`
	LastModifiedMs int64          `json:"last_modified_ms,omitempty"`
	DeletedAt      *time.Time     `json:"deleted_at,omitempty"`
}

// ChangeSet набор строк всех типов. Используется и для отправки пакета,
// и для ответа на запрос изменений.
type ChangeSet struct {
	Players       []PlayerRow        `json:"players,omitempty"`
	Venues        []VenueRow         `json:"venues,omitempty"`
	Matches       []MatchRow         `json:"matches,omitempty"`
	Games         []GameRow          `json:"games,omitempty"`
	RallyAnalyses []RallyAnalysisRow `json:"rally_analyses,omitempty"`
}

// Count возвращает число строк указанного типа.
func (c ChangeSet) Count(k Kind) int {
	switch k {
	case KindPlayer:
		return len(c.Players)
	case KindVenue:
		return len(c.Venues)
	case KindMatch:
		return len(c.Matches)
	case KindGame:
		return len(c.Games)
	case KindRallyAnalysis:
		return len(c.RallyAnalyses)
	}
	return 0
}

// Len возвращает общее число строк.
func (c ChangeSet) Len() int {
	total := 0
	for _, k := range Kinds {
		total += c.Count(k)
	}
	return total
}

// UpsertResult идентификаторы записанных строк в порядке запроса.
type UpsertResult struct {
	Players       []string `json:"players,omitempty"`
	Venues        []string `json:"venues,omitempty"`
	Matches       []string `json:"matches,omitempty"`
	Games         []string `json:"games,omitempty"`
	RallyAnalyses []string `json:"rally_analyses,omitempty"`
}

// IDs возвращает идентификаторы для указанного типа.
func (r *UpsertResult) IDs(k Kind) []string {
	if r == nil {
		return nil
	}
	switch k {
	case KindPlayer:
		return r.Players
	case KindVenue:
		return r.Venues
	case KindMatch:
		return r.Matches
	case KindGame:
		return r.Games
	case KindRallyAnalysis:
		return r.RallyAnalyses
	}
	return nil
}

// Append добавляет идентификатор к списку указанного типа.
func (r *UpsertResult) Append(k Kind, id string) {
	switch k {
	case KindPlayer:
		r.Players = append(r.Players, id)
	case KindVenue:
		r.Venues = append(r.Venues, id)
	case KindMatch:
		r.Matches = append(r.Matches, id)
	case KindGame:
		r.Games = append(r.Games, id)
	case KindRallyAnalysis:
		r.RallyAnalyses = append(r.RallyAnalyses, id)
	}
}
