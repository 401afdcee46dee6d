package journey

import (
	"fmt"
	"strings"

	"github.com/c360studio/aos/session"
)

// Registry is the ordered set of journey steps, addressable by name and path.
type Registry struct {
	steps  []Step
	byName map[string]Step
	byPath map[string]Step
	paths  map[string]string
}

// NewRegistry registers steps in order. overrides maps step names to paths
// replacing their defaults.
func NewRegistry(overrides map[string]string, steps ...Step) (*Registry, error) {
	r := &Registry{
		byName: make(map[string]Step, len(steps)),
		byPath: make(map[string]Step, len(steps)),
		paths:  make(map[string]string, len(steps)),
	}
	for name := range overrides {
		found := false
		for _, s := range steps {
			if s.Name() == name {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("path override %q: %w", name, ErrUnknownStep)
		}
	}

	for _, s := range steps {
		name := s.Name()
		if _, ok := r.byName[name]; ok {
			return nil, fmt.Errorf("step %q: %w", name, ErrDuplicateStep)
		}
		path := s.DefaultPath()
		if p, ok := overrides[name]; ok {
			path = p
		}
		if !strings.HasPrefix(path, "/") {
			return nil, fmt.Errorf("step %q: path %q must start with /", name, path)
		}
		if other, ok := r.byPath[path]; ok {
			return nil, fmt.Errorf("step %q: path %q already used by %q: %w", name, path, other.Name(), ErrDuplicateStep)
		}
		r.steps = append(r.steps, s)
		r.byName[name] = s
		r.byPath[path] = s
		r.paths[name] = path
	}
	return r, nil
}

// Step returns the step registered under name.
func (r *Registry) Step(name string) (Step, error) {
	s, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("step %q: %w", name, ErrUnknownStep)
	}
	return s, nil
}

// ByPath returns the step served at path.
func (r *Registry) ByPath(path string) (Step, error) {
	s, ok := r.byPath[path]
	if !ok {
		return nil, fmt.Errorf("path %q: %w", path, ErrUnknownStep)
	}
	return s, nil
}

// Path returns the path of a registered step, or "" when unknown.
func (r *Registry) Path(name string) string {
	return r.paths[name]
}

// Steps returns the registered steps in order.
func (r *Registry) Steps() []Step {
	out := make([]Step, len(r.steps))
	copy(out, r.steps)
	return out
}

// Answers gathers the check-your-answers record along the route the stored
// answers take. The walk starts at the first answered question in journey
// order and follows Next over each step's stored fields, so answers left on
// a branch the respondent later abandoned are not part of the record.
func (r *Registry) Answers(c Context, texts Texts) []Answer {
	var out []Answer
	seen := make(map[string]bool)
	for st := r.firstAnswered(c.Session); st != nil && !seen[st.Name()]; {
		seen[st.Name()] = true
		q, ok := st.(Question)
		if !ok || !c.Session.Answered(st.Name()) {
			break
		}
		sc := c
		sc.Fields = c.Session.Steps[st.Name()].Fields
		if a, ok := st.(Answerer); ok {
			out = append(out, a.Answers(sc, texts)...)
		}
		next, err := q.Next(sc)
		if err != nil {
			break
		}
		st = r.byName[next]
	}
	return out
}

func (r *Registry) firstAnswered(sess *session.Session) Step {
	for _, st := range r.steps {
		if _, ok := st.(Question); ok && sess.Answered(st.Name()) {
			return st
		}
	}
	return nil
}
