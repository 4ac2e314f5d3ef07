// Package strategy defines the trading-signal interface and the catalog of
// built-in strategies the simulator can run.
package strategy

import (
	"fmt"
	"sort"
	"sync"

	"tradedesk/internal/domain"
	"tradedesk/internal/strategy/builtins"
)

// Strategy produces one trading signal per symbol per day. Evaluate is
// called with the day's bar, that day's indicator bundle, and the symbol's
// current open position (nil when flat).
type Strategy interface {
	Name() string
	Evaluate(bar domain.Bar, ind domain.IndicatorSet, pos *domain.Position) domain.Signal
}

// Compile-time interface checks for the builtins.
var (
	_ Strategy = (*builtins.SMACross)(nil)
	_ Strategy = (*builtins.RSIReversion)(nil)
	_ Strategy = (*builtins.BollingerBreakout)(nil)
)

// ---------------------------------------------------------------------------
// Registry
// ---------------------------------------------------------------------------

// Registry holds named strategies.
type Registry struct {
	mu         sync.RWMutex
	strategies map[string]Strategy
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{strategies: make(map[string]Strategy)}
}

// DefaultRegistry returns a registry populated with the built-in strategies
// at their default parameters.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(builtins.NewSMACross(nil))
	r.Register(builtins.NewRSIReversion(nil))
	r.Register(builtins.NewBollingerBreakout(nil))
	return r
}

// Register adds a strategy under its name, replacing any previous entry.
func (r *Registry) Register(s Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies[s.Name()] = s
}

// Get returns the strategy registered under name.
func (r *Registry) Get(name string) (Strategy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.strategies[name]
	return s, ok
}

// List returns the registered strategy names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ---------------------------------------------------------------------------
// Catalog mapping
// ---------------------------------------------------------------------------

// FromSpec builds a strategy from a catalog entry, applying any parameter
// overrides the entry carries on top of the builtin defaults.
func FromSpec(spec *domain.StrategySpec) (Strategy, error) {
	switch spec.Kind {
	case domain.KindSMACross:
		return builtins.NewSMACross(spec.Parameters), nil
	case domain.KindRSIReversion:
		return builtins.NewRSIReversion(spec.Parameters), nil
	case domain.KindBollingerBreakout:
		return builtins.NewBollingerBreakout(spec.Parameters), nil
	default:
		return nil, fmt.Errorf("unknown strategy kind %q", spec.Kind)
	}
}
