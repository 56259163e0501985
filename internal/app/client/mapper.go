package client

import (
	gosync "sync"

	"scorekeeper/internal/domain/entity"
)

// IDMapper сопоставляет локальные ID глобальным идентификаторам по типам сущностей
type IDMapper struct {
	mu  gosync.RWMutex
	ids map[entity.Kind]map[int64]string
}

func NewIDMapper() *IDMapper {
	return &IDMapper{ids: make(map[entity.Kind]map[int64]string)}
}

func (m *IDMapper) Set(kind entity.Kind, localID int64, remoteID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	byKind, ok := m.ids[kind]
	if !ok {
		byKind = make(map[int64]string)
		m.ids[kind] = byKind
	}
	byKind[localID] = remoteID
}

func (m *IDMapper) Get(kind entity.Kind, localID int64) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.ids[kind][localID]
	return id, ok
}

func (m *IDMapper) Len(kind entity.Kind) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.ids[kind])
}
