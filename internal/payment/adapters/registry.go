// Package adapters indexes payment gateway adapters by provider name.
package adapters

import (
	"github.com/influmarkt/influmarkt/internal/payment/domain"
)

type Registry struct {
	byName map[string]domain.Adapter
}

func NewRegistry(adapters ...domain.Adapter) *Registry {
	byName := make(map[string]domain.Adapter, len(adapters))
	for _, adapter := range adapters {
		byName[adapter.Name()] = adapter
	}
	return &Registry{byName: byName}
}

func (r *Registry) Get(name string) (domain.Adapter, error) {
	adapter, ok := r.byName[name]
	if !ok {
		return nil, domain.ErrUnknownProvider
	}
	return adapter, nil
}

// Default returns the single registered adapter when callers do not name a
// provider explicitly.
func (r *Registry) Default() (domain.Adapter, error) {
	if len(r.byName) == 1 {
		for _, adapter := range r.byName {
			return adapter, nil
		}
	}
	return nil, domain.ErrUnknownProvider
}
