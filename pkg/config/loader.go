package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	mu     sync.RWMutex
	loaded = make(map[string]any)

	dotenvOnce sync.Once
)

// Load populates the given configuration struct from environment variables.
// Each configuration type is parsed at most once per process; subsequent
// calls for the same type return the cached value. A .env file, when present
// in the working directory, is loaded before the first parse.
//
// Example:
//
//	type RedisConfig struct {
//		URL string `env:"REDIS_URL,required"`
//	}
//
//	var cfg RedisConfig
//	if err := config.Load(&cfg); err != nil {
//		// handle error
//	}
func Load[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}

	dotenvOnce.Do(func() {
		// Missing .env is fine; real environments set variables directly.
		_ = godotenv.Load()
	})

	key := typeName[T]()

	mu.RLock()
	cached, ok := loaded[key]
	mu.RUnlock()
	if ok {
		*v = cached.(T)
		return nil
	}

	mu.Lock()
	defer mu.Unlock()

	// Another goroutine may have parsed the type while we waited for the lock.
	if cached, ok := loaded[key]; ok {
		*v = cached.(T)
		return nil
	}

	if err := env.Parse(v); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}

	loaded[key] = *v
	return nil
}

// MustLoad works like Load but panics on failure. Intended for configuration
// the application cannot start without.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("config: failed to load %s: %v", typeName[T](), err))
	}
}

func typeName[T any]() string {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if t.PkgPath() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}
