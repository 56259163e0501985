package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"scorekeeper/internal/app/server/api/http/middleware/auth"
	"scorekeeper/internal/domain/entity"
)

// Servicer интерфейс сервиса синхронизации
type Servicer interface {
	// UpsertBatch записывает пакет строк текущего пользователя
	UpsertBatch(ctx context.Context, set entity.ChangeSet) (*entity.UpsertResult, error)

	// Changes возвращает изменения после курсора
	Changes(ctx context.Context, sinceMs int64) (*ChangesResponse, error)

	// Count возвращает число записей пользователя
	Count(ctx context.Context) (int, error)

	// SetMatchPhoto привязывает фото к матчу
	SetMatchPhoto(ctx context.Context, matchID, url string) error
}

// ServiceConfig ограничения сервиса
type ServiceConfig struct {
	MaxBatchSize int
}

// Service реализация сервиса синхронизации
type Service struct {
	repo   Repository
	log    *slog.Logger
	config *ServiceConfig
	now    func() time.Time
}

// NewService создает новый сервис синхронизации
func NewService(repo Repository, log *slog.Logger, config *ServiceConfig) *Service {
	if config == nil {
		config = &ServiceConfig{
			MaxBatchSize: 500,
		}
	}

	return &Service{
		repo:   repo,
		log:    log.With("component", "sync_service"),
		config: config,
		now:    time.Now,
	}
}

func (s *Service) userID(ctx context.Context) (string, error) {
	userID, ok := auth.GetUserID(ctx)
	if !ok || userID == "" {
		return "", ErrUnauthenticated
	}
	return userID, nil
}

// UpsertBatch записывает пакет. Владелец строк всегда берется из сессии,
// last_modified_ms проставляет сервер.
func (s *Service) UpsertBatch(ctx context.Context, set entity.ChangeSet) (*entity.UpsertResult, error) {
	userID, err := s.userID(ctx)
	if err != nil {
		return nil, err
	}

	total := set.Len()
	if total == 0 {
		return &entity.UpsertResult{}, nil
	}
	if total > s.config.MaxBatchSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrBatchTooLarge, total, s.config.MaxBatchSize)
	}

	if err := validate(set); err != nil {
		return nil, err
	}

	stamp(&set, userID, s.now().UnixMilli())

	result, err := s.repo.Upsert(ctx, userID, set)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert batch: %w", err)
	}

	s.log.Debug("batch upserted", "user_id", userID, "rows", total)

	return result, nil
}

// Changes возвращает изменения. Курсор сдвинут на 1 мс назад, чтобы не
// потерять строки, записанные в ту же миллисекунду.
func (s *Service) Changes(ctx context.Context, sinceMs int64) (*ChangesResponse, error) {
	userID, err := s.userID(ctx)
	if err != nil {
		return nil, err
	}

	if sinceMs < 0 {
		sinceMs = 0
	}
	serverTime := s.now().UnixMilli()

	changes, err := s.repo.Changes(ctx, userID, sinceMs)
	if err != nil {
		return nil, fmt.Errorf("failed to get changes: %w", err)
	}

	return &ChangesResponse{
		Changes:      *changes,
		ServerTimeMs: serverTime - 1,
	}, nil
}

func (s *Service) Count(ctx context.Context) (int, error) {
	userID, err := s.userID(ctx)
	if err != nil {
		return 0, err
	}

	count, err := s.repo.Count(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}

func (s *Service) SetMatchPhoto(ctx context.Context, matchID, url string) error {
	userID, err := s.userID(ctx)
	if err != nil {
		return err
	}

	if _, err := uuid.Parse(matchID); err != nil {
		return fmt.Errorf("%w: match id %q", ErrInvalidReference, matchID)
	}

	return s.repo.SetMatchPhoto(ctx, userID, matchID, url, s.now().UnixMilli())
}

func checkUUID(field, value string) error {
	if _, err := uuid.Parse(value); err != nil {
		return fmt.Errorf("%w: %s %q", ErrInvalidReference, field, value)
	}
	return nil
}

func validate(set entity.ChangeSet) error {
	for _, p := range set.Players {
		if err := checkUUID("players.id", p.ID); err != nil {
			return err
		}
	}
	for _, v := range set.Venues {
		if err := checkUUID("venues.id", v.ID); err != nil {
			return err
		}
	}
	for _, m := range set.Matches {
		if err := checkUUID("matches.id", m.ID); err != nil {
			return err
		}
		if err := checkUUID("matches.opponent_id", m.OpponentID); err != nil {
			return err
		}
		if m.VenueID != nil {
			if err := checkUUID("matches.venue_id", *m.VenueID); err != nil {
				return err
			}
		}
		if err := m.Result.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidRow, err)
		}
		if m.EnergyLevel != nil && (*m.EnergyLevel < 1 || *m.EnergyLevel > 3) {
			return fmt.Errorf("%w: energy_level вне диапазона 1-3: %d", ErrInvalidRow, *m.EnergyLevel)
		}
	}
	for _, g := range set.Games {
		if err := checkUUID("games.id", g.ID); err != nil {
			return err
		}
		if err := checkUUID("games.match_id", g.MatchID); err != nil {
			return err
		}
	}
	for _, r := range set.RallyAnalyses {
		if err := checkUUID("rally_analyses.id", r.ID); err != nil {
			return err
		}
		if err := checkUUID("rally_analyses.match_id", r.MatchID); err != nil {
			return err
		}
	}
	return nil
}

// stamp проставляет владельца и время изменения. Время не меньше присланного
// клиентом, поэтому last_modified_ms строки не убывает.
func stamp(set *entity.ChangeSet, userID string, nowMs int64) {
	for i := range set.Players {
		set.Players[i].UserID = userID
		set.Players[i].LastModifiedMs = max(set.Players[i].LastModifiedMs, nowMs)
	}
	for i := range set.Venues {
		set.Venues[i].UserID = userID
		set.Venues[i].LastModifiedMs = max(set.Venues[i].LastModifiedMs, nowMs)
	}
	for i := range set.Matches {
		set.Matches[i].UserID = userID
		set.Matches[i].LastModifiedMs = max(set.Matches[i].LastModifiedMs, nowMs)
	}
	for i := range set.Games {
		set.Games[i].UserID = userID
		set.Games[i].LastModifiedMs = max(set.Games[i].LastModifiedMs, nowMs)
	}
	for i := range set.RallyAnalyses {
		set.RallyAnalyses[i].UserID = userID
		set.RallyAnalyses[i].LastModifiedMs = max(set.RallyAnalyses[i].LastModifiedMs, nowMs)
	}
}
