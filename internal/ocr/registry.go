package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/Rutuj912/medical-and-charity-document-extraction-system/internal/common"
)

// Constructor builds an engine. It must not block on the backend; backend checks
// belongs in Initialize.
type Constructor func(cfg EngineConfig) (Engine, error)

// builtins are the engines every registry starts with.
var builtins = map[string]Constructor{
	TesseractName: NewTesseract,
}

// Registry maps normalized engine names to constructors.
type Registry struct {
	mu     sync.RWMutex
	ctors  map[string]Constructor
	base   EngineConfig
	logger *slog.Logger
}

// NewRegistry returns a registry holding the built-in engines. base supplies
// the binary, tessdata, PSM/OEM, runner and logger handed to every constructor.
func NewRegistry(base EngineConfig) *Registry {
	base = base.withDefaults()
	r := &Registry{
		ctors:  make(map[string]Constructor, len(builtins)),
		base:   base,
		logger: base.Logger,
	}
	for name, ctor := range builtins {
		r.ctors[name] = ctor
	}
	return r
}

// Register adds or replaces an engine under name.
func (r *Registry) Register(name string, ctor Constructor) {
	name = NormalizeName(name)
	if name == "" || ctor == nil {
		return
	}
	r.mu.Lock()
	r.ctors[name] = ctor
	r.mu.Unlock()
	r.logger.Debug("ocr engine registered", "engine", name)
}

// Names returns the registered engine names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.ctors))
	for n := range r.ctors {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Has reports whether name (after normalization) is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.ctors[NormalizeName(name)]
	return ok
}

// Create constructs, but does not initialize, the engine registered under name.
func (r *Registry) Create(name, language string) (Engine, error) {
	key := NormalizeName(name)
	r.mu.RLock()
	ctor, ok := r.ctors[key]
	r.mu.RUnlock()
	if !ok {
		return nil, common.NewEngineNotFound(name, r.Names(), nil)
	}

	cfg := r.base
	cfg.Name = key
	if language != "" {
		cfg.Language = language
	}
	eng, err := safeConstruct(ctor, cfg)
	if err != nil {
		r.logger.Error("ocr engine construction failed", "engine", key, "language", cfg.Language, "error", err)
		return nil, common.NewEngineNotFound(name, r.Names(), err)
	}
	return eng, nil
}

// Describe returns the descriptor of name. It never fails: unknown or broken
// engines are reported as unavailable.
func (r *Registry) Describe(ctx context.Context, name string) Descriptor {
	key := NormalizeName(name)
	eng, err := r.Create(key, "")
	if err != nil {
		return Descriptor{Name: key}
	}
	var d Descriptor
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				r.logger.Warn("ocr engine describe panicked", "engine", key, "panic", rec)
				d = Descriptor{Name: key}
			}
		}()
		d = eng.Describe(ctx)
	}()
	if d.Name == "" {
		d.Name = key
	}
	return d
}

// Availability constructs and initializes every registered engine. A failure
// or panic in one check marks that engine false and does not affect the others.
func (r *Registry) Availability(ctx context.Context) map[string]bool {
	names := r.Names()
	out := make(map[string]bool, len(names))
	for _, name := range names {
		out[name] = r.available(ctx, name)
	}
	return out
}

func (r *Registry) available(ctx context.Context, name string) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Warn("ocr engine availability check panicked", "engine", name, "panic", rec)
			ok = false
		}
	}()
	eng, err := r.Create(name, "")
	if err != nil {
		return false
	}
	if err := eng.Initialize(ctx); err != nil {
		r.logger.Debug("ocr engine unavailable", "engine", name, "error", err)
		return false
	}
	return true
}

func safeConstruct(ctor Constructor, cfg EngineConfig) (eng Engine, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			eng, err = nil, fmt.Errorf("constructor panicked: %v", rec)
		}
	}()
	eng, err = ctor(cfg)
	if err == nil && eng == nil {
		err = fmt.Errorf("constructor returned no engine")
	}
	return eng, err
}
