package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"golang.org/x/exp/slog"

	"scorekeeper/internal/domain/entity"
	"scorekeeper/internal/domain/sync"
)

// Строка чужого пользователя с тем же id не обновляется и не попадает в
// RETURNING, это отличает ее от успешной записи.
const (
	upsertPlayerSQL = `
		INSERT INTO players (id, user_id, name, is_current_user, last_modified_ms, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			is_current_user = EXCLUDED.is_current_user,
			deleted_at = COALESCE(EXCLUDED.deleted_at, players.deleted_at),
			last_modified_ms = GREATEST(players.last_modified_ms, EXCLUDED.last_modified_ms)
		WHERE players.user_id = EXCLUDED.user_id
		RETURNING id::text`

	upsertVenueSQL = `
		INSERT INTO venues (id, user_id, name, last_modified_ms, deleted_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			deleted_at = COALESCE(EXCLUDED.deleted_at, venues.deleted_at),
			last_modified_ms = GREATEST(venues.last_modified_ms, EXCLUDED.last_modified_ms)
		WHERE venues.user_id = EXCLUDED.user_id
		RETURNING id::text`

	upsertMatchSQL = `
		INSERT INTO matches (
			id, user_id, opponent_id, venue_id, date, format, user_score, opponent_score,
			result, energy_level, note, photo_url, tags, last_modified_ms, deleted_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, COALESCE($13::text[], '{}'), $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			opponent_id = EXCLUDED.opponent_id,
			venue_id = EXCLUDED.venue_id,
			date = EXCLUDED.date,
			format = EXCLUDED.format,
			user_score = EXCLUDED.user_score,
			opponent_score = EXCLUDED.opponent_score,
			result = EXCLUDED.result,
			energy_level = EXCLUDED.energy_level,
			note = EXCLUDED.note,
			photo_url = COALESCE(EXCLUDED.photo_url, matches.photo_url),
			tags = EXCLUDED.tags,
			deleted_at = COALESCE(EXCLUDED.deleted_at, matches.deleted_at),
			last_modified_ms = GREATEST(matches.last_modified_ms, EXCLUDED.last_modified_ms)
		WHERE matches.user_id = EXCLUDED.user_id
		RETURNING id::text`

	upsertGameSQL = `
		INSERT INTO games (id, user_id, match_id, game_number, user_score, opponent_score, last_modified_ms, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			match_id = EXCLUDED.match_id,
			game_number = EXCLUDED.game_number,
			user_score = EXCLUDED.user_score,
			opponent_score = EXCLUDED.opponent_score,
			deleted_at = COALESCE(EXCLUDED.deleted_at, games.deleted_at),
			last_modified_ms = GREATEST(games.last_modified_ms, EXCLUDED.last_modified_ms)
		WHERE games.user_id = EXCLUDED.user_id
		RETURNING id::text`

	upsertRallySQL = `
		INSERT INTO rally_analyses (id, user_id, match_id, rally_data, last_modified_ms, deleted_at)
		VALUES ($1, $2, $3, COALESCE($4::jsonb, '{}'::jsonb), $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			match_id = EXCLUDED.match_id,
			rally_data = EXCLUDED.rally_data,
			deleted_at = COALESCE(EXCLUDED.deleted_at, rally_analyses.deleted_at),
			last_modified_ms = GREATEST(rally_analyses.last_modified_ms, EXCLUDED.last_modified_ms)
		WHERE rally_analyses.user_id = EXCLUDED.user_id
		RETURNING id::text`
)

// SyncRepository хранилище строк синхронизации в PostgreSQL
type SyncRepository struct {
	db  *Storage
	log *slog.Logger
}

// NewSyncRepository создает новый репозиторий синхронизации
func NewSyncRepository(db *Storage, log *slog.Logger) *SyncRepository {
	return &SyncRepository{
		db:  db,
		log: log.With("component", "sync_repository"),
	}
}

// Upsert записывает пакет одной транзакцией. Строки уходят одним pgx.Batch
// в порядке Kinds, поэтому результат совпадает с порядком запроса.
func (r *SyncRepository) Upsert(ctx context.Context, userID string, set entity.ChangeSet) (*entity.UpsertResult, error) {
	tx, err := r.db.Pool().Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	kinds := make([]entity.Kind, 0, set.Len())

	for _, p := range set.Players {
		batch.Queue(upsertPlayerSQL, p.ID, userID, p.Name, p.IsCurrentUser, p.LastModifiedMs, p.DeletedAt)
		kinds = append(kinds, entity.KindPlayer)
	}
	for _, v := range set.Venues {
		batch.Queue(upsertVenueSQL, v.ID, userID, v.Name, v.LastModifiedMs, v.DeletedAt)
		kinds = append(kinds, entity.KindVenue)
	}
	for _, m := range set.Matches {
		batch.Queue(upsertMatchSQL,
			m.ID, userID, m.OpponentID, m.VenueID, m.Date, m.Format, m.UserScore, m.OpponentScore,
			string(m.Result), m.EnergyLevel, m.Note, m.PhotoURL, m.Tags, m.LastModifiedMs, m.DeletedAt,
		)
		kinds = append(kinds, entity.KindMatch)
	}
	for _, g := range set.Games {
		batch.Queue(upsertGameSQL, g.ID, userID, g.MatchID, g.GameNumber, g.UserScore, g.OpponentScore, g.LastModifiedMs, g.DeletedAt)
		kinds = append(kinds, entity.KindGame)
	}
	for _, ra := range set.RallyAnalyses {
		batch.Queue(upsertRallySQL, ra.ID, userID, ra.MatchID, ra.RallyData, ra.LastModifiedMs, ra.DeletedAt)
		kinds = append(kinds, entity.KindRallyAnalysis)
	}

	results := tx.SendBatch(ctx, batch)
	out := &entity.UpsertResult{}

	for _, kind := range kinds {
		var id string
		if err := results.QueryRow().Scan(&id); err != nil {
			results.Close()
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("%w: %s", sync.ErrForeignRow, kind)
			}
			return nil, fmt.Errorf("failed to upsert %s: %w", kind, err)
		}
		out.Append(kind, id)
	}

	if err := results.Close(); err != nil {
		return nil, fmt.Errorf("failed to close batch: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return out, nil
}

// Changes возвращает неудаленные строки, измененные после sinceMs
func (r *SyncRepository) Changes(ctx context.Context, userID string, sinceMs int64) (*entity.ChangeSet, error) {
	set := &entity.ChangeSet{}
	var err error

	if set.Players, err = r.players(ctx, userID, sinceMs); err != nil {
		return nil, err
	}
	if set.Venues, err = r.venues(ctx, userID, sinceMs); err != nil {
		return nil, err
	}
	if set.Matches, err = r.matches(ctx, userID, sinceMs); err != nil {
		return nil, err
	}
	if set.Games, err = r.games(ctx, userID, sinceMs); err != nil {
		return nil, err
	}
	if set.RallyAnalyses, err = r.rallyAnalyses(ctx, userID, sinceMs); err != nil {
		return nil, err
	}

	return set, nil
}

func (r *SyncRepository) players(ctx context.Context, userID string, sinceMs int64) ([]entity.PlayerRow, error) {
	rows, err := r.db.Pool().Query(ctx, `
		SELECT id::text, user_id, name, is_current_user, last_modified_ms, deleted_at
		FROM players
		WHERE user_id = $1 AND last_modified_ms > $2 AND deleted_at IS NULL
		ORDER BY last_modified_ms ASC
	`, userID, sinceMs)
	if err != nil {
		return nil, fmt.Errorf("failed to query players: %w", err)
	}
	defer rows.Close()

	var items []entity.PlayerRow
	for rows.Next() {
		var v entity.PlayerRow
		if err := rows.Scan(&v.ID, &v.UserID, &v.Name, &v.IsCurrentUser, &v.LastModifiedMs, &v.DeletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		items = append(items, v)
	}
	return items, rows.Err()
}

func (r *SyncRepository) venues(ctx context.Context, userID string, sinceMs int64) ([]entity.VenueRow, error) {
	rows, err := r.db.Pool().Query(ctx, `
		SELECT id::text, user_id, name, last_modified_ms, deleted_at
		FROM venues
		WHERE user_id = $1 AND last_modified_ms > $2 AND deleted_at IS NULL
		ORDER BY last_modified_ms ASC
	`, userID, sinceMs)
	if err != nil {
		return nil, fmt.Errorf("failed to query venues: %w", err)
	}
	defer rows.Close()

	var items []entity.VenueRow
	for rows.Next() {
		var v entity.VenueRow
		if err := rows.Scan(&v.ID, &v.UserID, &v.Name, &v.LastModifiedMs, &v.DeletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan venue: %w", err)
		}
		items = append(items, v)
	}
	return items, rows.Err()
}

func (r *SyncRepository) matches(ctx context.Context, userID string, sinceMs int64) ([]entity.MatchRow, error) {
	rows, err := r.db.Pool().Query(ctx, `
		SELECT id::text, user_id, opponent_id::text, venue_id::text, date, format,
		       user_score, opponent_score, result, energy_level::int, note, photo_url, tags,
		       last_modified_ms, deleted_at
		FROM matches
		WHERE user_id = $1 AND last_modified_ms > $2 AND deleted_at IS NULL
		ORDER BY last_modified_ms ASC
	`, userID, sinceMs)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	var items []entity.MatchRow
	for rows.Next() {
		var v entity.MatchRow
		var result string
		if err := rows.Scan(
			&v.ID, &v.UserID, &v.OpponentID, &v.VenueID, &v.Date, &v.Format,
			&v.UserScore, &v.OpponentScore, &result, &v.EnergyLevel, &v.Note, &v.PhotoURL, &v.Tags,
			&v.LastModifiedMs, &v.DeletedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		v.Result = entity.MatchResult(result)
		items = append(items, v)
	}
	return items, rows.Err()
}

func (r *SyncRepository) games(ctx context.Context, userID string, sinceMs int64) ([]entity.GameRow, error) {
	rows, err := r.db.Pool().Query(ctx, `
		SELECT id::text, user_id, match_id::text, game_number, user_score, opponent_score, last_modified_ms, deleted_at
		FROM games
		WHERE user_id = $1 AND last_modified_ms > $2 AND deleted_at IS NULL
		ORDER BY last_modified_ms ASC
	`, userID, sinceMs)
	if err != nil {
		return nil, fmt.Errorf("failed to query games: %w", err)
	}
	defer rows.Close()

	var items []entity.GameRow
	for rows.Next() {
		var v entity.GameRow
		if err := rows.Scan(&v.ID, &v.UserID, &v.MatchID, &v.GameNumber, &v.UserScore, &v.OpponentScore, &v.LastModifiedMs, &v.DeletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		items = append(items, v)
	}
	return items, rows.Err()
}

func (r *SyncRepository) rallyAnalyses(ctx context.Context, userID string, sinceMs int64) ([]entity.RallyAnalysisRow, error) {
	rows, err := r.db.Pool().Query(ctx, `
		SELECT id::text, user_id, match_id::text, rally_data, last_modified_ms, deleted_at
		FROM rally_analyses
		WHERE user_id = $1 AND last_modified_ms > $2 AND deleted_at IS NULL
		ORDER BY last_modified_ms ASC
	`, userID, sinceMs)
	if err != nil {
		return nil, fmt.Errorf("failed to query rally analyses: %w", err)
	}
	defer rows.Close()

	var items []entity.RallyAnalysisRow
	for rows.Next() {
		var v entity.RallyAnalysisRow
		if err := rows.Scan(&v.ID, &v.UserID, &v.MatchID, &v.RallyData, &v.LastModifiedMs, &v.DeletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan rally analysis: %w", err)
		}
		items = append(items, v)
	}
	return items, rows.Err()
}

// Count возвращает число неудаленных строк всех типов
func (r *SyncRepository) Count(ctx context.Context, userID string) (int, error) {
	var count int64
	err := r.db.Pool().QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM players WHERE user_id = $1 AND deleted_at IS NULL) +
			(SELECT count(*) FROM venues WHERE user_id = $1 AND deleted_at IS NULL) +
			(SELECT count(*) FROM matches WHERE user_id = $1 AND deleted_at IS NULL) +
			(SELECT count(*) FROM games WHERE user_id = $1 AND deleted_at IS NULL) +
			(SELECT count(*) FROM rally_analyses WHERE user_id = $1 AND deleted_at IS NULL)
	`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return int(count), nil
}

// SetMatchPhoto обновляет ссылку на фото; чужой или отсутствующий матч дает ErrRecordNotFound
func (r *SyncRepository) SetMatchPhoto(ctx context.Context, userID, matchID, url string, nowMs int64) error {
	tag, err := r.db.Pool().Exec(ctx, `
		UPDATE matches
		SET photo_url = $1, last_modified_ms = GREATEST(last_modified_ms, $2)
		WHERE id = $3 AND user_id = $4 AND deleted_at IS NULL
	`, url, nowMs, matchID, userID)
	if err != nil {
		return fmt.Errorf("failed to set match photo: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sync.ErrRecordNotFound
	}

	r.log.Debug("match photo updated", "user_id", userID, "match_id", matchID)
	return nil
}
