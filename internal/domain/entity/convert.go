package entity

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// MintID возвращает детерминированный глобальный идентификатор локальной записи.
// Одна и та же тройка (пользователь+устройство, тип, локальный ID) всегда дает
// один и тот же UUID, поэтому повторная отправка не создает дублей.
func MintID(userID, deviceID string, kind Kind, localID int64) string {
	ns := uuid.NewSHA1(uuid.NameSpaceURL, []byte("scorekeeper:"+userID+":"+deviceID))
	return uuid.NewSHA1(ns, []byte(kind.String()+":"+strconv.FormatInt(localID, 10))).String()
}

// ToMillis переводит время в миллисекунды с начала эпохи.
func ToMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

// FromMillis обратное преобразование; 0 дает нулевое время.
func FromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// PlayerToRow строит удаленную строку игрока.
func PlayerToRow(p Player, id, userID string) PlayerRow {
	return PlayerRow{
		ID:             id,
		UserID:         userID,
		Name:           p.Name,
		IsCurrentUser:  p.IsCurrentUser,
		LastModifiedMs: ToMillis(p.CreatedAt),
	}
}

// VenueToRow строит удаленную строку площадки.
func VenueToRow(v Venue, id, userID string) VenueRow {
	return VenueRow{
		ID:             id,
		UserID:         userID,
		Name:           v.Name,
		LastModifiedMs: ToMillis(v.CreatedAt),
	}
}

// MatchToRow строит удаленную строку матча. venueID пуст, если площадки нет.
func MatchToRow(m Match, id, userID, opponentID, venueID string) MatchRow {
	return MatchRow{
		ID:             id,
		UserID:         userID,
		OpponentID:     opponentID,
		VenueID:        optional(venueID),
		Date:           m.Date,
		Format:         m.Format,
		UserScore:      m.UserScore,
		OpponentScore:  m.OpponentScore,
		Result:         m.Result,
		EnergyLevel:    m.EnergyLevel,
		Note:           optional(m.Note),
		PhotoURL:       optional(m.PhotoURL),
		Tags:           m.Tags,
		LastModifiedMs: ToMillis(m.CreatedAt),
	}
}

// GameToRow строит удаленную строку гейма.
func GameToRow(g Game, id, userID, matchID string) GameRow {
	return GameRow{
		ID:             id,
		UserID:         userID,
		MatchID:        matchID,
		GameNumber:     g.GameNumber,
		UserScore:      g.UserScore,
		OpponentScore:  g.OpponentScore,
		LastModifiedMs: ToMillis(g.CreatedAt),
	}
}

// RallyAnalysisToRow строит удаленную строку анализа розыгрышей.
func RallyAnalysisToRow(r RallyAnalysis, id, userID, matchID string) RallyAnalysisRow {
	return RallyAnalysisRow{
		ID:             id,
		UserID:         userID,
		MatchID:        matchID,
		RallyData:      r.RallyData,
		LastModifiedMs: ToMillis(r.CreatedAt),
	}
}

// Обратные преобразования применяют полученную строку поверх локальной записи.
// Локальные ID и внешние ключи заполняет вызывающий код.

func ApplyPlayerRow(p *Player, row PlayerRow) {
	p.RemoteID = row.ID
	p.Name = row.Name
	p.IsCurrentUser = row.IsCurrentUser
	if p.CreatedAt.IsZero() {
		p.CreatedAt = FromMillis(row.LastModifiedMs)
	}
	p.Dirty = false
}

func ApplyVenueRow(v *Venue, row VenueRow) {
	v.RemoteID = row.ID
	v.Name = row.Name
	if v.CreatedAt.IsZero() {
		v.CreatedAt = FromMillis(row.LastModifiedMs)
	}
	v.Dirty = false
}

func ApplyMatchRow(m *Match, row MatchRow, opponentID int64, venueID *int64) {
	m.RemoteID = row.ID
	m.OpponentID = opponentID
	m.VenueID = venueID
	m.Date = row.Date
	m.Format = row.Format
	m.UserScore = row.UserScore
	m.OpponentScore = row.OpponentScore
	m.Result = row.Result
	m.EnergyLevel = row.EnergyLevel
	m.Note = deref(row.Note)
	m.PhotoURL = deref(row.PhotoURL)
	m.Tags = row.Tags
	if m.CreatedAt.IsZero() {
		m.CreatedAt = FromMillis(row.LastModifiedMs)
	}
	m.Dirty = false
}

func ApplyGameRow(g *Game, row GameRow, matchID int64) {
	g.RemoteID = row.ID
	g.MatchID = matchID
	g.GameNumber = row.GameNumber
	g.UserScore = row.UserScore
	g.OpponentScore = row.OpponentScore
	if g.CreatedAt.IsZero() {
		g.CreatedAt = FromMillis(row.LastModifiedMs)
	}
	g.Dirty = false
}

func ApplyRallyAnalysisRow(r *RallyAnalysis, row RallyAnalysisRow, matchID int64) {
	r.RemoteID = row.ID
	r.MatchID = matchID
	r.RallyData = row.RallyData
	if r.CreatedAt.IsZero() {
		r.CreatedAt = FromMillis(row.LastModifiedMs)
	}
	r.Dirty = false
}
