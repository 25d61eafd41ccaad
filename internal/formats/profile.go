// Package formats holds named exam profiles: marking presets and the
// question types an exam pattern allows.
package formats

import (
	"fmt"
	"sort"
	"sync"

	"github.com/mind-engage/mindengage-practice/internal/exam"
)

type Profile struct {
	Key          string              `json:"key"` // e.g. "jee.v1"
	Title        string              `json:"title"`
	Marking      exam.MarkingScheme  `json:"marking"`
	AllowedTypes []exam.QuestionType `json:"allowedTypes"`
}

// Allows reports whether tests of type t may use this profile. TypeBoth
// needs every concrete type to be allowed.
func (p Profile) Allows(t exam.QuestionType) bool {
	if t == exam.TypeBoth {
		return p.allows(exam.TypeMCQ) && p.allows(exam.TypeInteger)
	}
	return p.allows(t)
}

func (p Profile) allows(t exam.QuestionType) bool {
	for _, a := range p.AllowedTypes {
		if a == t {
			return true
		}
	}
	return false
}

var (
	mu       sync.RWMutex
	registry = map[string]Profile{}
)

// Register a profile. Call from init() in subpackages.
func Register(p Profile) {
	mu.Lock()
	defer mu.Unlock()
	registry[p.Key] = p
}

// Lookup returns a registered profile.
func Lookup(key string) (Profile, bool) {
	mu.RLock()
	defer mu.RUnlock()
	p, ok := registry[key]
	return p, ok
}

// All lists registered profiles ordered by key.
func All() []Profile {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Profile, 0, len(registry))
	for _, p := range registry {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Resolve picks the marking for a test of type t under profile key. An empty
// key yields exam.DefaultMarking.
func Resolve(key string, t exam.QuestionType) (exam.MarkingScheme, error) {
	if key == "" {
		return exam.DefaultMarking, nil
	}
	p, ok := Lookup(key)
	if !ok {
		return exam.MarkingScheme{}, fmt.Errorf("unknown profile %q", key)
	}
	if !p.Allows(t) {
		return exam.MarkingScheme{}, fmt.Errorf("profile %s does not allow %s questions", key, t)
	}
	return p.Marking, nil
}
