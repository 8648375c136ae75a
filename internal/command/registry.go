package command

import (
	"strings"
	"sync"

	"github.com/agnivade/levenshtein"
)

const suggestionThreshold = 0.5

type Registry struct {
	mu         sync.RWMutex
	byName     map[string]*Spec
	order      []string
	categories []string
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Spec)}
}

func (r *Registry) Register(spec Spec) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := spec
	name := strings.ToLower(s.Name)
	if _, exists := r.byName[name]; !exists {
		r.order = append(r.order, name)
	}
	r.byName[name] = &s
	for _, alias := range s.Aliases {
		r.byName[strings.ToLower(alias)] = &s
	}

	found := false
	for _, category := range r.categories {
		if category == s.Category {
			found = true
			break
		}
	}
	if !found && s.Category != "" {
		r.categories = append(r.categories, s.Category)
	}
}

func (r *Registry) Lookup(name string) (*Spec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.byName[strings.ToLower(name)]
	return spec, ok
}

// Suggest returns the closest registered verb whose normalized similarity
// reaches the threshold, or "" when nothing is close enough.
func (r *Registry) Suggest(name string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name = strings.ToLower(name)
	best := ""
	bestScore := 0.0
	for _, candidate := range r.order {
		score := similarity(name, candidate)
		if score >= suggestionThreshold && score > bestScore {
			best = candidate
			bestScore = score
		}
	}
	return best
}

// All returns specs in registration order, aliases excluded.
func (r *Registry) All() []*Spec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	specs := make([]*Spec, 0, len(r.order))
	for _, name := range r.order {
		specs = append(specs, r.byName[name])
	}
	return specs
}

// Categories returns category names in the order they first appeared.
func (r *Registry) Categories() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string{}, r.categories...)
}

func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 0
	}
	distance := levenshtein.ComputeDistance(a, b)
	return 1 - float64(distance)/float64(longest)
}
