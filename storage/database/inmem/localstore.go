package inmemdb

import (
	"context"
	"sync"

	"github.com/trezcool/studentportal/core/session"
)

type localStorage struct {
	mutex sync.RWMutex
	table map[string]map[string]string // {clientID: {key: value}}
}

var _ session.Storage = (*localStorage)(nil)

func NewLocalStorage() session.Storage {
	return &localStorage{table: make(map[string]map[string]string)}
}

func (s *localStorage) GetItem(_ context.Context, clientID, key string) (string, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if val, ok := s.table[clientID][key]; ok {
		return val, nil
	}
	return "", session.ErrNoItem
}

func (s *localStorage) SetItem(_ context.Context, clientID, key, value string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	items, ok := s.table[clientID]
	if !ok {
		items = make(map[string]string)
		s.table[clientID] = items
	}
	items[key] = value
	return nil
}

func (s *localStorage) RemoveItem(_ context.Context, clientID, key string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	items, ok := s.table[clientID]
	if !ok {
		return nil
	}
	delete(items, key)
	if len(items) == 0 {
		delete(s.table, clientID)
	}
	return nil
}
