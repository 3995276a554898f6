package steps

import (
	"sort"
	"sync"

	"certiflow/internal/validation"
)

type entry struct {
	kind    Kind
	factory Factory
}

// Registry maps step identifiers to the factory that builds them.
// Safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// DefaultRegistry returns a registry holding every built-in validation step.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for id, kind := range map[string]Kind{
		"check_exigences":   KindCheckExigences,
		"check_mop":         KindCheckMOP,
		"check_preuves":     KindCheckPreuves,
		"gerer_retours":     KindGererRetours,
		"analyse_retours":   KindAnalyseRetours,
		"soumettre_dossier": KindSoumettreDossier,
	} {
		validator, ok := validation.Builtin(id)
		if !ok {
			continue
		}
		r.Register(id, kind, validationFactory(kind, validator))
	}
	return r
}

// Register binds an identifier to a factory, replacing any previous binding.
func (r *Registry) Register(id string, kind Kind, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[id] = entry{kind: kind, factory: factory}
}

// Resolve builds the step for desc. When the identifier is not registered,
// a [ScriptStep] carrying the raw descriptor is returned with ok=false.
func (r *Registry) Resolve(desc Descriptor, deps Deps) (Step, bool) {
	r.mu.RLock()
	e, ok := r.entries[desc.ID]
	r.mu.RUnlock()

	if !ok {
		return NewScriptStep(desc, deps), false
	}
	return e.factory(desc, deps), true
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[id]
	return ok
}

// IDs returns the registered identifiers in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
