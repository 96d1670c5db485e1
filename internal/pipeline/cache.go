package pipeline

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/ocr"
)

type engineKey struct {
	name     string
	language string
}

func (k engineKey) String() string { return k.name + "_" + k.language }

// EngineCache holds initialized engines keyed by (engine, language) for the
// lifetime of its orchestrator. Entries are never evicted.
type EngineCache struct {
	mu       sync.Mutex
	registry *ocr.Registry
	engines  map[engineKey]ocr.Engine
	logger   *slog.Logger
}

func NewEngineCache(registry *ocr.Registry, logger *slog.Logger) *EngineCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &EngineCache{registry: registry, engines: map[engineKey]ocr.Engine{}, logger: logger}
}

// Get returns the cached engine, constructing and initializing it on first
// use. Creation happens under the lock so each key is populated once; a
// failed initialization is not cached.
func (c *EngineCache) Get(ctx context.Context, name, language string) (ocr.Engine, error) {
	key := engineKey{name: ocr.NormalizeName(name), language: language}
	c.mu.Lock()
	defer c.mu.Unlock()
	if eng, ok := c.engines[key]; ok {
		return eng, nil
	}
	eng, err := c.registry.Create(key.name, key.language)
	if err != nil {
		return nil, err
	}
	if err := eng.Initialize(ctx); err != nil {
		return nil, err
	}
	c.engines[key] = eng
	c.logger.Info("ocr engine cached", "engine", key.name, "language", key.language)
	return eng, nil
}

// Keys lists cached entries as "engine_language", sorted.
func (c *EngineCache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, len(c.engines))
	for k := range c.engines {
		keys = append(keys, k.String())
	}
	sort.Strings(keys)
	return keys
}
