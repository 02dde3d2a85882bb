// Package env reads settings from the process environment and
// from .env files.
package env

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Loader defines the interface for environment variable management.
type Loader interface {
	// Load reads environment variables from a .env file.
	Load(filepath string) error
	// Get retrieves an environment variable value.
	Get(key string) string
	// Lookup reports whether key is set and returns its value.
	Lookup(key string) (string, bool)
	// GetRequired retrieves a required environment variable or returns error.
	GetRequired(key string) (string, error)
	// GetWithDefault retrieves an environment variable with a default fallback.
	GetWithDefault(key, defaultValue string) string
	// Set sets an environment variable.
	Set(key, value string) error
	// All returns all loaded environment variables.
	All() map[string]string
}

// DefaultLoader implements Loader with .env file support. Every
// key passed to it is looked up with the loader prefix in front.
type DefaultLoader struct {
	mu     sync.RWMutex
	vars   map[string]string
	loaded bool
	prefix string
}

// NewLoader creates a loader whose keys are used as given.
func NewLoader() *DefaultLoader {
	return &DefaultLoader{vars: make(map[string]string)}
}

// NewPrefixedLoader creates a loader that looks up prefix+key,
// e.g. CAMPAIGNS_ + STORE_KIND.
func NewPrefixedLoader(prefix string) *DefaultLoader {
	l := NewLoader()
	l.prefix = prefix
	return l
}

// Loaded reports whether a .env file has been read.
func (l *DefaultLoader) Loaded() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loaded
}

func (l *DefaultLoader) Load(filepath string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	file, err := os.Open(filepath)
	if err != nil {
		return fmt.Errorf("open env file %s: %w", filepath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		// Remove surrounding quotes
		value = strings.Trim(value, `"'`)
		l.vars[key] = value
	}

	l.loaded = true
	return scanner.Err()
}

func (l *DefaultLoader) Get(key string) string {
	v, _ := l.Lookup(key)
	return v
}

func (l *DefaultLoader) Lookup(key string) (string, bool) {
	key = l.prefix + key
	// OS env takes precedence
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v, true
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	v, ok := l.vars[key]
	return v, ok && v != ""
}

func (l *DefaultLoader) GetRequired(key string) (string, error) {
	v := l.Get(key)
	if v == "" {
		return "", fmt.Errorf(
			"required environment variable %s is not set",
			l.prefix+key,
		)
	}
	return v, nil
}

func (l *DefaultLoader) GetWithDefault(key, defaultValue string) string {
	if v := l.Get(key); v != "" {
		return v
	}
	return defaultValue
}

// GetInt parses key as an integer. Unset keys yield def.
func (l *DefaultLoader) GetInt(key string, def int) (int, error) {
	v, ok := l.Lookup(key)
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("invalid integer in %s: %w", l.prefix+key, err)
	}
	return n, nil
}

// GetBool parses key with strconv.ParseBool. Unset keys yield def.
func (l *DefaultLoader) GetBool(key string, def bool) (bool, error) {
	v, ok := l.Lookup(key)
	if !ok {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("invalid boolean in %s: %w", l.prefix+key, err)
	}
	return b, nil
}

// GetDuration parses key with time.ParseDuration. Unset keys
// yield def.
func (l *DefaultLoader) GetDuration(
	key string,
	def time.Duration,
) (time.Duration, error) {
	v, ok := l.Lookup(key)
	if !ok {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def, fmt.Errorf("invalid duration in %s: %w", l.prefix+key, err)
	}
	return d, nil
}

func (l *DefaultLoader) Set(key, value string) error {
	key = l.prefix + key
	l.mu.Lock()
	defer l.mu.Unlock()
	l.vars[key] = value
	return os.Setenv(key, value)
}

func (l *DefaultLoader) All() map[string]string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	result := make(map[string]string, len(l.vars))
	for k, v := range l.vars {
		result[k] = v
	}
	return result
}
