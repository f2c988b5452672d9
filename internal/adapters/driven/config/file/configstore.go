package file

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/config/configval"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

var _ driven.ConfigStore = (*ConfigStore)(nil)

// DirName is the per-user configuration directory under $HOME.
const DirName = ".sercha-rag"

const configFile = "config.toml"

// ConfigStore keeps settings in config.toml. Sections become dotted keys,
// so [retrieval] per_retriever_k is "retrieval.per_retriever_k".
//
// Environment overrides live in a separate overlay. They shadow the file
// for reads and are never written back.
type ConfigStore struct {
	mu      sync.RWMutex
	path    string
	values  map[string]any
	overlay map[string]any
}

// DefaultDir returns ~/.sercha-rag.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate home directory: %w", err)
	}
	return filepath.Join(home, DirName), nil
}

// NewConfigStore opens config.toml in dir, creating dir if needed. An empty
// dir means DefaultDir. A missing file is an empty configuration.
func NewConfigStore(dir string) (*ConfigStore, error) {
	if dir == "" {
		var err error
		if dir, err = DefaultDir(); err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create config directory: %w", err)
	}

	s := &ConfigStore{
		path:    filepath.Join(dir, configFile),
		values:  make(map[string]any),
		overlay: make(map[string]any),
	}
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *ConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if v, ok := s.overlay[key]; ok {
		return v, true
	}
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

// Set stores value and rewrites the file.
func (s *ConfigStore) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
	return s.write()
}

func (s *ConfigStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write()
}

// write must be called with mu held. The file is private to the user
// because it may hold API keys.
func (s *ConfigStore) write() error {
	data, err := toml.Marshal(nest(s.values))
	if err != nil {
		return fmt.Errorf("encode %s: %w", configFile, err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}

// Load rereads the file. The environment overlay survives.
func (s *ConfigStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.values = make(map[string]any)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", s.path, err)
	}

	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse %s: %w", s.path, err)
	}

	s.values = make(map[string]any)
	flatten(s.values, "", doc)
	return nil
}

func (s *ConfigStore) Path() string {
	return s.path
}

// setOverlay shadows key for the life of the store.
func (s *ConfigStore) setOverlay(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overlay[key] = value
}

// flatten copies the leaves of a decoded TOML document into dst under
// dotted keys.
func flatten(dst map[string]any, prefix string, doc map[string]any) {
	for k, v := range doc {
		if prefix != "" {
			k = prefix + "." + k
		}
		if table, ok := v.(map[string]any); ok {
			flatten(dst, k, table)
			continue
		}
		dst[k] = v
	}
}

// nest turns dotted keys back into tables. Shallow keys go first, so a leaf
// that is also the prefix of a longer key wins and the longer key is dropped.
func nest(flat map[string]any) map[string]any {
	keys := slices.Collect(maps.Keys(flat))
	slices.SortFunc(keys, func(a, b string) int {
		return strings.Count(a, ".") - strings.Count(b, ".")
	})

	root := make(map[string]any)
	for _, key := range keys {
		path := strings.Split(key, ".")
		table, ok := tableAt(root, path[:len(path)-1])
		if !ok {
			continue
		}
		table[path[len(path)-1]] = flat[key]
	}
	return root
}

// tableAt walks path from root, creating tables as it goes. It fails when
// a leaf value sits on the path.
func tableAt(root map[string]any, path []string) (map[string]any, bool) {
	table := root
	for _, name := range path {
		switch child := table[name].(type) {
		case map[string]any:
			table = child
		case nil:
			next := make(map[string]any)
			table[name] = next
			table = next
		default:
			return nil, false
		}
	}
	return table, true
}
