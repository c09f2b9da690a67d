package storage

// Store is the key-value interface backing the relation layer's local
// persisted data. Values are stored JSON-encoded; Get decodes into out and
// reports whether the key was present. A missing key is never an error.
type Store interface {
	Get(key string, out any) (bool, error)
	Set(key string, value any) error
	Delete(key string) error
	Keys() ([]string, error)
	Close() error
}
