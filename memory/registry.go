package memory

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/hupe1980/agentmem/config"
	"github.com/hupe1980/agentmem/core"
	"github.com/hupe1980/agentmem/memory/redis"
)

// Built-in provider names.
const (
	ProviderInMemory = "inmemory"
	ProviderRedis    = "redis"
)

// Factory constructs a provider from the shared configuration plus
// per-instance options.
type Factory func(ctx context.Context, cfg *config.Configuration, opts map[string]any) (core.MemoryProvider, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{
		ProviderInMemory: func(context.Context, *config.Configuration, map[string]any) (core.MemoryProvider, error) {
			return NewInMemoryProvider(), nil
		},
		ProviderRedis: openRedis,
	}
)

// Register makes a provider factory available under name. Registering an
// existing name replaces it.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = f
}

// Providers returns the sorted registered provider names.
func Providers() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OpenProvider builds the provider registered under name.
func OpenProvider(ctx context.Context, name string, cfg *config.Configuration, opts map[string]any) (core.MemoryProvider, error) {
	registryMu.RLock()
	f, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, core.ConfigurationError("memory.OpenProvider", fmt.Sprintf("unknown memory provider %q", name))
	}
	return f(ctx, cfg, opts)
}

// Open builds the named provider and binds it to userID. The user id is
// validated before the provider is opened. Close the returned Memory to
// release the provider.
func Open(ctx context.Context, name, userID string, cfg *config.Configuration, opts map[string]any, optFns ...func(o *Options)) (*Memory, error) {
	if err := checkUserID("memory.Open", userID); err != nil {
		return nil, err
	}
	p, err := OpenProvider(ctx, name, cfg, opts)
	if err != nil {
		return nil, err
	}
	m, err := New(p, userID, optFns...)
	if err != nil {
		if c, ok := p.(io.Closer); ok {
			_ = c.Close()
		}
		return nil, err
	}
	return m, nil
}

// option looks a key up in the per-instance options first, then in the
// configuration defaults.
func option(cfg *config.Configuration, opts map[string]any, key string) (any, bool) {
	if v, ok := opts[key]; ok {
		return v, true
	}
	return cfg.Default(key)
}

func openRedis(ctx context.Context, cfg *config.Configuration, opts map[string]any) (core.MemoryProvider, error) {
	v, ok := option(cfg, opts, config.DefaultRedisURL)
	url, isString := v.(string)
	if !ok || !isString || url == "" {
		return nil, core.ConfigurationError("memory.redis", "redis_url is required")
	}

	var namespace string
	if v, ok := option(cfg, opts, "namespace"); ok {
		ns, isString := v.(string)
		if !isString {
			return nil, core.ConfigurationError("memory.redis", fmt.Sprintf("namespace must be a string, got %T", v))
		}
		namespace = ns
	}

	var ttl time.Duration
	if v, ok := option(cfg, opts, "ttl"); ok {
		d, err := config.ParseDuration(v)
		if err != nil {
			return nil, core.ConfigurationError("memory.redis", fmt.Sprintf("invalid ttl %v: %v", v, err))
		}
		ttl = d
	}

	p, err := redis.New(ctx, url, func(o *redis.Options) {
		o.Namespace = namespace
		o.TTL = ttl
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}
