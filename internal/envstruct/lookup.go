package envstruct

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LookupFunc has the same signature as [os.LookupEnv].
type LookupFunc func(string) (string, bool)

// Chain returns a LookupFunc that consults lookups in order and returns the first hit.
func Chain(lookups ...LookupFunc) LookupFunc {
	return func(key string) (string, bool) {
		for _, lookup := range lookups {
			if lookup == nil {
				continue
			}
			if v, ok := lookup(key); ok {
				return v, true
			}
		}
		return "", false
	}
}

// MapLookup returns a LookupFunc backed by m.
func MapLookup(m map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

// DotenvLookup reads a .env file. A missing file yields an empty lookup.
func DotenvLookup(path string) (LookupFunc, error) {
	if path == "" {
		return MapLookup(nil), nil
	}
	values, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return MapLookup(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read dotenv %s: %w", path, err)
	}
	return MapLookup(values), nil
}

// YAMLLookup reads a flat YAML mapping of environment variable names to scalar values.
// A missing file yields an empty lookup.
func YAMLLookup(path string) (LookupFunc, error) {
	if path == "" {
		return MapLookup(nil), nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return MapLookup(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	var raw map[string]any
	if err = yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	values := make(map[string]string, len(raw))
	for k, v := range raw {
		switch v.(type) {
		case map[string]any, []any:
			return nil, fmt.Errorf("%w: config key %s must be a scalar", ErrInvalidValue, k)
		case nil:
			values[k] = ""
		default:
			values[k] = fmt.Sprint(v)
		}
	}
	return MapLookup(values), nil
}
