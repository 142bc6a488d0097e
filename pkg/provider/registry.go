package provider

import (
	"ai-search-be/internal/pkg/logger"
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

const DefaultDiscoveryTimeout = 5 * time.Second

// ErrNotConfigured is returned by adapters whose credentials or endpoint are
// not set. The registry treats it like any other discovery failure.
var ErrNotConfigured = errors.New("provider not configured")

// Adapter knows how to list the models of one provider.
type Adapter[H any] interface {
	Name() string
	Discover(ctx context.Context) ([]Model[H], error)
}

// AdapterFunc adapts a plain function to Adapter.
type AdapterFunc[H any] struct {
	Provider string
	Fn       func(ctx context.Context) ([]Model[H], error)
}

func (a AdapterFunc[H]) Name() string { return a.Provider }

func (a AdapterFunc[H]) Discover(ctx context.Context) ([]Model[H], error) {
	return a.Fn(ctx)
}

type Registry[H any] struct {
	adapters []Adapter[H]
	timeout  time.Duration
	logger   logger.ILogger
}

type RegistryOption func(*registryOptions)

type registryOptions struct {
	timeout time.Duration
	logger  logger.ILogger
}

func WithDiscoveryTimeout(d time.Duration) RegistryOption {
	return func(o *registryOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

func WithLogger(l logger.ILogger) RegistryOption {
	return func(o *registryOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

func NewRegistry[H any](adapters []Adapter[H], opts ...RegistryOption) *Registry[H] {
	o := registryOptions{timeout: DefaultDiscoveryTimeout, logger: logger.NewNopLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	list := make([]Adapter[H], len(adapters))
	copy(list, adapters)
	return &Registry[H]{adapters: list, timeout: o.timeout, logger: o.logger}
}

// Refresh asks every adapter for its models concurrently and builds a new
// catalog. Adapters that fail, time out, panic or return nothing are left out;
// the custom entry is always last.
func (r *Registry[H]) Refresh(ctx context.Context) Catalog[H] {
	results := make([][]Model[H], len(r.adapters))

	var g errgroup.Group
	for i, a := range r.adapters {
		g.Go(func() error {
			models, err := r.discover(ctx, a)
			if err != nil {
				r.logger.Warn("PROVIDER", "Model discovery failed", map[string]interface{}{
					"provider": a.Name(),
					"error":    err.Error(),
				})
				return nil
			}
			results[i] = models
			return nil
		})
	}
	_ = g.Wait()

	entries := make([]Entry[H], 0, len(r.adapters)+1)
	for i, a := range r.adapters {
		if len(results[i]) == 0 {
			continue
		}
		entries = append(entries, Entry[H]{Provider: a.Name(), Models: results[i]})
	}
	entries = append(entries, Entry[H]{Provider: CustomProvider})

	cat := NewCatalog(entries...)
	r.logger.Debug("PROVIDER", "Catalog refreshed", map[string]interface{}{
		"providers": cat.Providers(),
	})
	return cat
}

type discoveryResult[H any] struct {
	models []Model[H]
	err    error
}

// discover bounds a single adapter by the registry timeout, even if the
// adapter ignores its context.
func (r *Registry[H]) discover(parent context.Context, a Adapter[H]) ([]Model[H], error) {
	ctx, cancel := context.WithTimeout(parent, r.timeout)
	defer cancel()

	done := make(chan discoveryResult[H], 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- discoveryResult[H]{err: fmt.Errorf("discovery panicked: %v", rec)}
			}
		}()
		models, err := a.Discover(ctx)
		done <- discoveryResult[H]{models: models, err: err}
	}()

	select {
	case res := <-done:
		return res.models, res.err
	case <-ctx.Done():
		return nil, fmt.Errorf("discovery aborted: %w", ctx.Err())
	}
}
