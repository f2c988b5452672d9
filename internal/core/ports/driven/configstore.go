package driven

// ConfigStore is a flat key-value view of the application configuration.
// Keys are dotted section paths such as "retrieval.per_retriever_k".
// Typed getters return the zero value when a key is missing or has another type.
type ConfigStore interface {
	// Get returns the raw value and whether the key is set.
	Get(key string) (any, bool)

	GetString(key string) string
	GetInt(key string) int

	// GetFloat also accepts integer values.
	GetFloat(key string) float64

	GetBool(key string) bool

	// GetStringSlice drops non-string elements.
	GetStringSlice(key string) []string

	// Set stores a value and persists it.
	Set(key string, value any) error

	// Save writes the persisted values to storage.
	Save() error

	// Load replaces the persisted values with those in storage.
	Load() error

	// Path is the location of the backing file, empty when there is none.
	Path() string
}
