package pipeline

import (
	"fmt"
	"sort"
	"sync"

	"github.com/book-expert/logger"
	"github.com/book-expert/translation-service/internal/languages"
)

// Builder constructs the pipeline for one language profile. Building
// loads every underlying model, which may take seconds; the Registry
// calls it at most once per key unless it fails.
type Builder func(key string, profile languages.Profile) (*Pipeline, error)

// Registry is the process-wide pipeline cache. Each language's pipeline
// is constructed at most once and held for the life of the process; the
// Registry never evicts. Construction failures are not cached, so a
// later Get re-attempts once the underlying condition is fixed.
type Registry struct {
	builder Builder
	log     *logger.Logger

	mu        sync.Mutex
	pipelines map[string]*Pipeline
	building  map[string]*sync.Mutex
}

// NewRegistry creates an empty registry around the given builder.
func NewRegistry(builder Builder, log *logger.Logger) *Registry {
	return &Registry{
		builder:   builder,
		log:       log,
		pipelines: make(map[string]*Pipeline),
		building:  make(map[string]*sync.Mutex),
	}
}

// Get returns the pipeline for the language key, building and caching it
// on first use. Unknown keys fail with languages.ErrUnsupportedLanguage
// without taking any build lock. Concurrent first-time calls for one key
// block on a per-key lock so exactly one construction runs.
func (r *Registry) Get(key string) (*Pipeline, error) {
	profile, err := languages.Lookup(key)
	if err != nil {
		return nil, err
	}

	normalized := languages.Normalize(key)

	keyLock := r.lockFor(normalized)
	keyLock.Lock()
	defer keyLock.Unlock()

	r.mu.Lock()
	cached, ok := r.pipelines[normalized]
	r.mu.Unlock()

	if ok {
		return cached, nil
	}

	r.log.Info("Building pipeline for language %q", normalized)

	built, buildErr := r.builder(normalized, profile)
	if buildErr != nil {
		return nil, fmt.Errorf(
			"failed to build pipeline for %q: %w", normalized, buildErr,
		)
	}

	r.mu.Lock()
	r.pipelines[normalized] = built
	r.mu.Unlock()

	return built, nil
}

// LoadedLanguages reports which pipelines have been materialized, in
// sorted order, for diagnostics.
func (r *Registry) LoadedLanguages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := make([]string, 0, len(r.pipelines))
	for key := range r.pipelines {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}

// lockFor returns the per-key build lock, creating it on first use.
func (r *Registry) lockFor(key string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	lock, ok := r.building[key]
	if !ok {
		lock = &sync.Mutex{}
		r.building[key] = lock
	}

	return lock
}
