package memory

import (
	"maps"
	"sync"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/config/configval"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigStore keeps settings in a map and never touches disk. Tests use it
// to drive the settings service.
type ConfigStore struct {
	mu     sync.RWMutex
	values map[string]any
}

func NewConfigStore() *ConfigStore {
	return NewConfigStoreFrom(nil)
}

// NewConfigStoreFrom copies values into a new store.
func NewConfigStoreFrom(values map[string]any) *ConfigStore {
	return &ConfigStore{values: maps.Clone(values)}
}

func (s *ConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *ConfigStore) value(key string) any {
	v, _ := s.Get(key)
	return v
}

func (s *ConfigStore) GetString(key string) string        { return configval.String(s.value(key)) }
func (s *ConfigStore) GetInt(key string) int              { return configval.Int(s.value(key)) }
func (s *ConfigStore) GetFloat(key string) float64        { return configval.Float(s.value(key)) }
func (s *ConfigStore) GetBool(key string) bool            { return configval.Bool(s.value(key)) }
func (s *ConfigStore) GetStringSlice(key string) []string { return configval.Strings(s.value(key)) }

func (s *ConfigStore) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.values == nil {
		s.values = make(map[string]any)
	}
	s.values[key] = value
	return nil
}

// Save and Load have nothing to sync with.
func (s *ConfigStore) Save() error { return nil }
func (s *ConfigStore) Load() error { return nil }

// Path is empty; the store has no backing file.
func (s *ConfigStore) Path() string { return "" }
