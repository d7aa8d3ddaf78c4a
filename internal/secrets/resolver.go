// Package secrets resolves named secrets for the process.
package secrets

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// Resolver maps a secret name to its value. Implementations cache per process;
// rotation requires a restart.
type Resolver interface {
	Resolve(name string) (string, error)
}

// EnvResolver reads secrets from environment variables, uppercasing the name
// and applying an optional prefix. Values are cached on first read.
type EnvResolver struct {
	prefix string

	mu    sync.Mutex
	cache map[string]string
}

// NewEnvResolver creates an EnvResolver with the given variable prefix.
func NewEnvResolver(prefix string) *EnvResolver {
	return &EnvResolver{
		prefix: strings.TrimSpace(prefix),
		cache:  make(map[string]string),
	}
}

// Resolve returns the secret value or an error naming the missing variable.
func (r *EnvResolver) Resolve(name string) (string, error) {
	key := r.envKey(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if v, ok := r.cache[key]; ok {
		return v, nil
	}

	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", fmt.Errorf("secret %q not set (env %s)", name, key)
	}
	r.cache[key] = v
	return v, nil
}

func (r *EnvResolver) envKey(name string) string {
	key := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(name), "-", "_"))
	if r.prefix == "" {
		return key
	}
	return r.prefix + "_" + key
}

// StaticResolver serves a fixed map. Used in tests.
type StaticResolver map[string]string

// Resolve implements Resolver.
func (s StaticResolver) Resolve(name string) (string, error) {
	if v, ok := s[name]; ok {
		return v, nil
	}
	return "", fmt.Errorf("secret %q not set", name)
}
