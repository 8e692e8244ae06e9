package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"src2purl/internal/logging"
)

var (
	// ErrUnknownProvider reports a strategy name with no registered factory.
	ErrUnknownProvider = errors.New("unknown provider")
	// ErrRegistryClosed reports use of a registry after Close.
	ErrRegistryClosed = errors.New("provider registry closed")
)

// Factory constructs a provider on first use.
type Factory func(ctx context.Context) (Provider, error)

type slot struct {
	once     sync.Once
	provider Provider
	err      error
}

// Registry lazily constructs providers by strategy name. Each factory runs at
// most once; its provider or error is memoized. Close releases every provider
// that was constructed, in reverse construction order.
type Registry struct {
	mu        sync.Mutex
	factories map[string]Factory
	slots     map[string]*slot
	built     []string
	closed    bool
	logger    *slog.Logger
}

// NewRegistry returns an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		slots:     make(map[string]*slot),
		logger:    logging.NewComponentLogger(logger, "providers"),
	}
}

// Register binds name to factory, replacing any earlier binding that has not
// been constructed yet.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.slots[name]; ok {
		return
	}
	r.factories[name] = factory
}

// Names lists registered strategy names in lexical order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether name has a factory.
func (r *Registry) Has(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.factories[name]
	return ok
}

// Get returns the provider for name, constructing it on first use.
func (r *Registry) Get(ctx context.Context, name string) (Provider, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrRegistryClosed
	}
	factory, ok := r.factories[name]
	if !ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	s, ok := r.slots[name]
	if !ok {
		s = &slot{}
		r.slots[name] = s
	}
	r.mu.Unlock()

	s.once.Do(func() {
		s.provider, s.err = factory(ctx)
		if s.err == nil && s.provider == nil {
			s.err = fmt.Errorf("provider %q: factory returned nil", name)
		}
		if s.err != nil {
			r.logger.Debug("provider construction failed", logging.Provider(name), logging.Error(s.err))
			return
		}
		r.mu.Lock()
		r.built = append(r.built, name)
		closed := r.closed
		r.mu.Unlock()
		if closed {
			// Close ran while the factory was in flight.
			_ = s.provider.Close()
			s.provider, s.err = nil, ErrRegistryClosed
		}
	})
	return s.provider, s.err
}

// Constructed lists providers built so far, in construction order.
func (r *Registry) Constructed() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.built...)
}

// Close releases every constructed provider. It is safe to call more than once.
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	built := append([]string(nil), r.built...)
	slots := make([]*slot, len(built))
	for i, name := range built {
		slots[i] = r.slots[name]
	}
	r.mu.Unlock()

	var errs []error
	for i := len(built) - 1; i >= 0; i-- {
		s := slots[i]
		if s == nil || s.provider == nil {
			continue
		}
		if err := s.provider.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close provider %q: %w", built[i], err))
		}
	}
	return errors.Join(errs...)
}
