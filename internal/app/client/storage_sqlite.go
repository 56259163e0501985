package client

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"scorekeeper/internal/domain/entity"
)

type SQLiteStorage struct {
	db *sql.DB
}

func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия базы данных: %w", err)
	}

	// одно соединение, иначе PRAGMA data_version учитывает и свои коммиты
	db.SetMaxOpenConns(1)

	storage := &SQLiteStorage{db: db}

	// Создаем таблицы
	if err := storage.initTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ошибка инициализации таблиц: %w", err)
	}

	return storage, nil
}

func (s *SQLiteStorage) initTables() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS players (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			remote_id TEXT UNIQUE,
			name TEXT NOT NULL,
			is_current_user BOOLEAN NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL,
			dirty BOOLEAN NOT NULL DEFAULT 1,
			revision INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS venues (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			remote_id TEXT UNIQUE,
			name TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			dirty BOOLEAN NOT NULL DEFAULT 1,
			revision INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS matches (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			remote_id TEXT UNIQUE,
			opponent_id INTEGER NOT NULL,
			venue_id INTEGER,
			date TEXT NOT NULL,
			format TEXT NOT NULL DEFAULT '',
			user_score INTEGER NOT NULL DEFAULT 0,
			opponent_score INTEGER NOT NULL DEFAULT 0,
			result TEXT NOT NULL,
			energy_level INTEGER,
			note TEXT NOT NULL DEFAULT '',
			photo_url TEXT NOT NULL DEFAULT '',
			tags TEXT NOT NULL DEFAULT '[]',
			created_at INTEGER NOT NULL,
			dirty BOOLEAN NOT NULL DEFAULT 1,
			revision INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS games (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			remote_id TEXT UNIQUE,
			match_id INTEGER NOT NULL,
			game_number INTEGER NOT NULL,
			user_score INTEGER NOT NULL DEFAULT 0,
			opponent_score INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL,
			dirty BOOLEAN NOT NULL DEFAULT 1,
			revision INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS rally_analyses (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			remote_id TEXT UNIQUE,
			match_id INTEGER NOT NULL,
			rally_data TEXT NOT NULL DEFAULT '{}',
			created_at INTEGER NOT NULL,
			dirty BOOLEAN NOT NULL DEFAULT 1,
			revision INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS photo_queue (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			match_id INTEGER NOT NULL,
			blob TEXT NOT NULL,
			filename TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			retry_count INTEGER NOT NULL DEFAULT 0 CHECK (retry_count BETWEEN 0 AND 5)
		);

		CREATE TABLE IF NOT EXISTS sync_meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_matches_opponent ON matches(opponent_id);
		CREATE INDEX IF NOT EXISTS idx_games_match ON games(match_id);
		CREATE INDEX IF NOT EXISTS idx_rally_match ON rally_analyses(match_id);
	`)
	if err != nil {
		return err
	}

	return s.addRevisionColumns()
}

// addRevisionColumns добавляет колонку revision в базы, созданные без нее
func (s *SQLiteStorage) addRevisionColumns() error {
	for _, kind := range entity.Kinds {
		var exists bool
		err := s.db.QueryRow(
			`SELECT EXISTS(SELECT 1 FROM pragma_table_info(?) WHERE name = 'revision')`, kind.String(),
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("ошибка чтения схемы %s: %w", kind, err)
		}
		if exists {
			continue
		}
		if _, err := s.db.Exec(`ALTER TABLE ` + kind.String() + ` ADD COLUMN revision INTEGER NOT NULL DEFAULT 0`); err != nil {
			return fmt.Errorf("ошибка добавления revision в %s: %w", kind, err)
		}
	}
	return nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func tableFor(kind entity.Kind) (string, error) {
	if err := kind.Validate(); err != nil {
		return "", err
	}
	return kind.String(), nil
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func createdAt(t *time.Time) int64 {
	if t.IsZero() {
		*t = time.Now()
	}
	return t.UnixMilli()
}

// CountRecords возвращает число записей во всех синхронизируемых таблицах
func (s *SQLiteStorage) CountRecords(ctx context.Context) (int, error) {
	var total int
	err := s.db.QueryRowContext(ctx, `
		SELECT (SELECT COUNT(*) FROM players)
		     + (SELECT COUNT(*) FROM venues)
		     + (SELECT COUNT(*) FROM matches)
		     + (SELECT COUNT(*) FROM games)
		     + (SELECT COUNT(*) FROM rally_analyses)
	`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчета записей: %w", err)
	}
	return total, nil
}

// HasPendingChanges сообщает, есть ли записи, которые нужно отправить
func (s *SQLiteStorage) HasPendingChanges(ctx context.Context) (bool, error) {
	var pending bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM players WHERE dirty = 1 OR remote_id IS NULL)
		    OR EXISTS(SELECT 1 FROM venues WHERE dirty = 1 OR remote_id IS NULL)
		    OR EXISTS(SELECT 1 FROM matches WHERE dirty = 1 OR remote_id IS NULL)
		    OR EXISTS(SELECT 1 FROM games WHERE dirty = 1 OR remote_id IS NULL)
		    OR EXISTS(SELECT 1 FROM rally_analyses WHERE dirty = 1 OR remote_id IS NULL)
	`).Scan(&pending)
	if err != nil {
		return false, fmt.Errorf("ошибка проверки изменений: %w", err)
	}
	return pending, nil
}

func (s *SQLiteStorage) Players(ctx context.Context) ([]entity.Player, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, remote_id, name, is_current_user, created_at, dirty, revision
		FROM players ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения игроков: %w", err)
	}
	defer rows.Close()

	var players []entity.Player
	for rows.Next() {
		var (
			p        entity.Player
			remoteID sql.NullString
			created  int64
		)
		if err := rows.Scan(&p.ID, &remoteID, &p.Name, &p.IsCurrentUser, &created, &p.Dirty, &p.Revision); err != nil {
			return nil, fmt.Errorf("ошибка чтения игрока: %w", err)
		}
		p.RemoteID = remoteID.String
		p.CreatedAt = time.UnixMilli(created)
		players = append(players, p)
	}

	return players, rows.Err()
}

func (s *SQLiteStorage) Venues(ctx context.Context) ([]entity.Venue, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, remote_id, name, created_at, dirty, revision
		FROM venues ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения площадок: %w", err)
	}
	defer rows.Close()

	var venues []entity.Venue
	for rows.Next() {
		var (
			v        entity.Venue
			remoteID sql.NullString
			created  int64
		)
		if err := rows.Scan(&v.ID, &remoteID, &v.Name, &created, &v.Dirty, &v.Revision); err != nil {
			return nil, fmt.Errorf("ошибка чтения площадки: %w", err)
		}
		v.RemoteID = remoteID.String
		v.CreatedAt = time.UnixMilli(created)
		venues = append(venues, v)
	}

	return venues, rows.Err()
}

const matchColumns = `id, remote_id, opponent_id, venue_id, date, format, user_score, opponent_score,
	result, energy_level, note, photo_url, tags, created_at, dirty, revision`

type scanner interface {
	Scan(dest ...any) error
}

func scanMatch(row scanner) (*entity.Match, error) {
	var (
		m        entity.Match
		remoteID sql.NullString
		venueID  sql.NullInt64
		energy   sql.NullInt64
		tags     string
		created  int64
	)

	err := row.Scan(&m.ID, &remoteID, &m.OpponentID, &venueID, &m.Date, &m.Format,
		&m.UserScore, &m.OpponentScore, &m.Result, &energy, &m.Note, &m.PhotoURL,
		&tags, &created, &m.Dirty, &m.Revision)
	if err != nil {
		return nil, err
	}

	m.RemoteID = remoteID.String
	if venueID.Valid {
		id := venueID.Int64
		m.VenueID = &id
	}
	if energy.Valid {
		level := int(energy.Int64)
		m.EnergyLevel = &level
	}
	if err := json.Unmarshal([]byte(tags), &m.Tags); err != nil {
		return nil, fmt.Errorf("ошибка парсинга тегов: %w", err)
	}
	m.CreatedAt = time.UnixMilli(created)

	return &m, nil
}

func (s *SQLiteStorage) Matches(ctx context.Context) ([]entity.Match, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+matchColumns+` FROM matches ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения матчей: %w", err)
	}
	defer rows.Close()

	var matches []entity.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка чтения матча: %w", err)
		}
		matches = append(matches, *m)
	}

	return matches, rows.Err()
}

func (s *SQLiteStorage) Match(ctx context.Context, id int64) (*entity.Match, error) {
	m, err := scanMatch(s.db.QueryRowContext(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("матч %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка получения матча: %w", err)
	}
	return m, nil
}

func (s *SQLiteStorage) Games(ctx context.Context) ([]entity.Game, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, remote_id, match_id, game_number, user_score, opponent_score, created_at, dirty, revision
		FROM games ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения геймов: %w", err)
	}
	defer rows.Close()

	var games []entity.Game
	for rows.Next() {
		var (
			g        entity.Game
			remoteID sql.NullString
			created  int64
		)
		if err := rows.Scan(&g.ID, &remoteID, &g.MatchID, &g.GameNumber, &g.UserScore,
			&g.OpponentScore, &created, &g.Dirty, &g.Revision); err != nil {
			return nil, fmt.Errorf("ошибка чтения гейма: %w", err)
		}
		g.RemoteID = remoteID.String
		g.CreatedAt = time.UnixMilli(created)
		games = append(games, g)
	}

	return games, rows.Err()
}

func (s *SQLiteStorage) RallyAnalyses(ctx context.Context) ([]entity.RallyAnalysis, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, remote_id, match_id, rally_data, created_at, dirty, revision
		FROM rally_analyses ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения анализа розыгрышей: %w", err)
	}
	defer rows.Close()

	var analyses []entity.RallyAnalysis
	for rows.Next() {
		var (
			r        entity.RallyAnalysis
			remoteID sql.NullString
			data     string
			created  int64
		)
		if err := rows.Scan(&r.ID, &remoteID, &r.MatchID, &data, &created, &r.Dirty, &r.Revision); err != nil {
			return nil, fmt.Errorf("ошибка чтения анализа розыгрышей: %w", err)
		}
		if err := json.Unmarshal([]byte(data), &r.RallyData); err != nil {
			return nil, fmt.Errorf("ошибка парсинга анализа розыгрышей: %w", err)
		}
		r.RemoteID = remoteID.String
		r.CreatedAt = time.UnixMilli(created)
		analyses = append(analyses, r)
	}

	return analyses, rows.Err()
}

// save вставляет запись при id == 0, иначе обновляет существующую
func (s *SQLiteStorage) save(ctx context.Context, id *int64, insert, update string, args ...any) error {
	if *id == 0 {
		res, err := s.db.ExecContext(ctx, insert, args...)
		if err != nil {
			return err
		}
		newID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		*id = newID
		return nil
	}

	res, err := s.db.ExecContext(ctx, update, append(args, *id)...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStorage) SavePlayer(ctx context.Context, p *entity.Player) error {
	err := s.save(ctx, &p.ID,
		`INSERT INTO players (remote_id, name, is_current_user, created_at, dirty) VALUES (?, ?, ?, ?, ?)`,
		`UPDATE players SET remote_id = ?, name = ?, is_current_user = ?, created_at = ?, dirty = ?, revision = revision + 1 WHERE id = ?`,
		nullString(p.RemoteID), p.Name, p.IsCurrentUser, createdAt(&p.CreatedAt), p.Dirty,
	)
	if err != nil {
		return fmt.Errorf("ошибка сохранения игрока: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) SaveVenue(ctx context.Context, v *entity.Venue) error {
	err := s.save(ctx, &v.ID,
		`INSERT INTO venues (remote_id, name, created_at, dirty) VALUES (?, ?, ?, ?)`,
		`UPDATE venues SET remote_id = ?, name = ?, created_at = ?, dirty = ?, revision = revision + 1 WHERE id = ?`,
		nullString(v.RemoteID), v.Name, createdAt(&v.CreatedAt), v.Dirty,
	)
	if err != nil {
		return fmt.Errorf("ошибка сохранения площадки: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) SaveMatch(ctx context.Context, m *entity.Match) error {
	tags := m.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("ошибка сериализации тегов: %w", err)
	}

	err = s.save(ctx, &m.ID,
		`INSERT INTO matches (remote_id, opponent_id, venue_id, date, format, user_score, opponent_score,
			result, energy_level, note, photo_url, tags, created_at, dirty)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		`UPDATE matches SET remote_id = ?, opponent_id = ?, venue_id = ?, date = ?, format = ?,
			user_score = ?, opponent_score = ?, result = ?, energy_level = ?, note = ?, photo_url = ?,
			tags = ?, created_at = ?, dirty = ?, revision = revision + 1
		 WHERE id = ?`,
		nullString(m.RemoteID), m.OpponentID, nullInt64(m.VenueID), m.Date, m.Format, m.UserScore,
		m.OpponentScore, string(m.Result), nullInt(m.EnergyLevel), m.Note, m.PhotoURL,
		string(tagsJSON), createdAt(&m.CreatedAt), m.Dirty,
	)
	if err != nil {
		return fmt.Errorf("ошибка сохранения матча: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) SaveGame(ctx context.Context, g *entity.Game) error {
	err := s.save(ctx, &g.ID,
		`INSERT INTO games (remote_id, match_id, game_number, user_score, opponent_score, created_at, dirty)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		`UPDATE games SET remote_id = ?, match_id = ?, game_number = ?, user_score = ?,
			opponent_score = ?, created_at = ?, dirty = ?, revision = revision + 1
		 WHERE id = ?`,
		nullString(g.RemoteID), g.MatchID, g.GameNumber, g.UserScore, g.OpponentScore,
		createdAt(&g.CreatedAt), g.Dirty,
	)
	if err != nil {
		return fmt.Errorf("ошибка сохранения гейма: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) SaveRallyAnalysis(ctx context.Context, r *entity.RallyAnalysis) error {
	data := r.RallyData
	if data == nil {
		data = map[string]any{}
	}
	dataJSON, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("ошибка сериализации анализа розыгрышей: %w", err)
	}

	err = s.save(ctx, &r.ID,
		`INSERT INTO rally_analyses (remote_id, match_id, rally_data, created_at, dirty) VALUES (?, ?, ?, ?, ?)`,
		`UPDATE rally_analyses SET remote_id = ?, match_id = ?, rally_data = ?, created_at = ?, dirty = ?, revision = revision + 1 WHERE id = ?`,
		nullString(r.RemoteID), r.MatchID, string(dataJSON), createdAt(&r.CreatedAt), r.Dirty,
	)
	if err != nil {
		return fmt.Errorf("ошибка сохранения анализа розыгрышей: %w", err)
	}
	return nil
}

// SetRemoteID сохраняет глобальный идентификатор, не трогая признак изменений
func (s *SQLiteStorage) SetRemoteID(ctx context.Context, kind entity.Kind, localID int64, remoteID string) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `UPDATE `+table+` SET remote_id = ? WHERE id = ?`, remoteID, localID)
	if err != nil {
		return fmt.Errorf("ошибка сохранения remote_id (%s %d): %w", kind, localID, err)
	}
	return nil
}

// LocalID ищет локальный ID по глобальному идентификатору
func (s *SQLiteStorage) LocalID(ctx context.Context, kind entity.Kind, remoteID string) (int64, bool, error) {
	table, err := tableFor(kind)
	if err != nil {
		return 0, false, err
	}

	var id int64
	err = s.db.QueryRowContext(ctx, `SELECT id FROM `+table+` WHERE remote_id = ?`, remoteID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("ошибка поиска по remote_id (%s): %w", kind, err)
	}
	return id, true, nil
}

// ClearDirty снимает признак изменений с отправленных записей. Запись,
// измененная после чтения для отправки, остается помеченной.
func (s *SQLiteStorage) ClearDirty(ctx context.Context, pushed []PushedRecord) error {
	if len(pushed) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback()

	for _, rec := range pushed {
		table, err := tableFor(rec.Kind)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE `+table+` SET dirty = 0 WHERE id = ? AND revision = ? AND remote_id IS NOT NULL`,
			rec.LocalID, rec.Revision); err != nil {
			return fmt.Errorf("ошибка сброса признака изменений (%s %d): %w", rec.Kind, rec.LocalID, err)
		}
	}

	return tx.Commit()
}

// SetMatchPhoto записывает ссылку на фото и помечает матч измененным
func (s *SQLiteStorage) SetMatchPhoto(ctx context.Context, matchID int64, url string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE matches SET photo_url = ?, dirty = 1, revision = revision + 1 WHERE id = ?`, url, matchID)
	if err != nil {
		return fmt.Errorf("ошибка сохранения фото матча: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("ошибка сохранения фото матча: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("матч %d: %w", matchID, ErrNotFound)
	}
	return nil
}

// DataVersion меняется при каждом коммите из другого процесса
func (s *SQLiteStorage) DataVersion(ctx context.Context) (int64, error) {
	var v int64
	if err := s.db.QueryRowContext(ctx, `PRAGMA data_version`).Scan(&v); err != nil {
		return 0, fmt.Errorf("ошибка чтения data_version: %w", err)
	}
	return v, nil
}

func (s *SQLiteStorage) Meta(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM sync_meta WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("ошибка чтения %s: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLiteStorage) SetMeta(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("ошибка записи %s: %w", key, err)
	}
	return nil
}

// DeviceID возвращает идентификатор устройства, создавая его при первом обращении
func (s *SQLiteStorage) DeviceID(ctx context.Context) (string, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO sync_meta (key, value) VALUES (?, ?)`, metaDeviceID, uuid.NewString())
	if err != nil {
		return "", fmt.Errorf("ошибка создания идентификатора устройства: %w", err)
	}

	id, _, err := s.Meta(ctx, metaDeviceID)
	return id, err
}

func (s *SQLiteStorage) EnqueuePhoto(ctx context.Context, e *entity.PhotoEntry) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO photo_queue (match_id, blob, filename, created_at, retry_count)
		VALUES (?, ?, ?, ?, ?)
	`, e.MatchID, e.Blob, e.Filename, createdAt(&e.CreatedAt), e.RetryCount)
	if err != nil {
		return fmt.Errorf("ошибка постановки фото в очередь: %w", err)
	}

	e.ID, err = res.LastInsertId()
	return err
}

func (s *SQLiteStorage) PhotoQueue(ctx context.Context) ([]entity.PhotoEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, match_id, blob, filename, created_at, retry_count
		FROM photo_queue ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения очереди фото: %w", err)
	}
	defer rows.Close()

	var entries []entity.PhotoEntry
	for rows.Next() {
		var (
			e       entity.PhotoEntry
			created int64
		)
		if err := rows.Scan(&e.ID, &e.MatchID, &e.Blob, &e.Filename, &created, &e.RetryCount); err != nil {
			return nil, fmt.Errorf("ошибка чтения элемента очереди: %w", err)
		}
		e.CreatedAt = time.UnixMilli(created)
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

func (s *SQLiteStorage) UpdatePhotoRetry(ctx context.Context, id int64, retryCount int) error {
	_, err := s.db.ExecContext(ctx, `UPDATE photo_queue SET retry_count = ? WHERE id = ?`, retryCount, id)
	if err != nil {
		return fmt.Errorf("ошибка обновления счетчика попыток: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) DeletePhoto(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM photo_queue WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления элемента очереди: %w", err)
	}
	return nil
}
