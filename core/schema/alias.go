package schema

import (
	"fmt"
	"sync"
)

// AliasRegistry is the bidirectional alias-to-table map scoped to a single
// query context. It fills up incrementally as clauses reference tables and
// is consulted later by result builders (to qualify columns) and by the row
// reconstructor (to attribute aliased result labels to entities).
type AliasRegistry struct {
	mu      sync.RWMutex
	byAlias map[string]string
	byTable map[string]string
	next    int
}

// NewAliasRegistry creates an empty registry.
func NewAliasRegistry() *AliasRegistry {
	return &AliasRegistry{
		byAlias: make(map[string]string),
		byTable: make(map[string]string),
	}
}

// Register records an alias for a table, generating one of the form t0, t1,
// ... when alias is empty. Every empty-alias call mints a fresh name, so one
// table registered twice holds two distinct aliases. Re-registering an
// existing alias for the same table is a no-op; claiming an alias held by a
// different table is an error, since it would mis-attribute that alias's
// columns.
func (r *AliasRegistry) Register(table, alias string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if alias == "" {
		alias = fmt.Sprintf("t%d", r.next)
		r.next++
	}
	if existing, ok := r.byAlias[alias]; ok {
		if existing != table {
			return "", fmt.Errorf("alias %q is already bound to table %q", alias, existing)
		}
		return alias, nil
	}
	r.byAlias[alias] = table
	if _, ok := r.byTable[table]; !ok {
		r.byTable[table] = alias
	}
	return alias, nil
}

// TableFor returns the table registered under an alias.
func (r *AliasRegistry) TableFor(alias string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byAlias[alias]
	return t, ok
}

// AliasFor returns the first alias registered for a table.
func (r *AliasRegistry) AliasFor(table string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byTable[table]
	return a, ok
}

// Aliases returns a snapshot of every registered alias.
func (r *AliasRegistry) Aliases() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.byAlias))
	for a, t := range r.byAlias {
		out[a] = t
	}
	return out
}
