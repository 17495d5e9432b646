// Package signals generates trade ideas from daily bar history. Rules are
// registered by name; the Generator runs every registered rule over each
// tracked symbol and persists whatever fires.
package signals

import (
	"sort"

	"marketdesk/internal/domain"
)

// Rule evaluates one symbol's bar history (oldest first) and returns zero or
// more signals. Rules only inspect the most recent bar for a fresh trigger;
// historical crossings do not re-fire.
type Rule interface {
	// Name returns the unique identifier for this rule.
	Name() string

	// Evaluate inspects the bar history and reports any signal triggered by
	// the latest bar.
	Evaluate(symbol string, bars []domain.Bar) []domain.Signal
}

// Registry holds a named collection of rules for lookup and enumeration.
type Registry struct {
	rules map[string]Rule
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{rules: make(map[string]Rule)}
}

// Register adds a rule, keyed by its Name().
func (r *Registry) Register(rule Rule) {
	r.rules[rule.Name()] = rule
}

// Get retrieves a rule by name.
func (r *Registry) Get(name string) (Rule, bool) {
	rule, ok := r.rules[name]
	return rule, ok
}

// List returns the sorted names of all registered rules.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.rules))
	for name := range r.rules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns every registered rule in name order.
func (r *Registry) All() []Rule {
	rules := make([]Rule, 0, len(r.rules))
	for _, name := range r.List() {
		rules = append(rules, r.rules[name])
	}
	return rules
}

// DefaultRegistry returns a Registry with the built-in rules.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewSMACross(20, 50))
	r.Register(NewRSIReversal(14, 30, 70))
	r.Register(NewBreakout52W())
	return r
}
