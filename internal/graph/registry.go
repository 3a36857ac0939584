package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gammazero/toposort"

	aberrors "git.home.luguber.info/inful/assetbuilder/internal/errors"
)

type composite struct {
	kind    Kind
	members []string
}

// Registry holds the named tasks and composites a tree can be resolved from.
type Registry struct {
	tasks      map[string]Task
	composites map[string]composite
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tasks:      make(map[string]Task),
		composites: make(map[string]composite),
	}
}

// Register adds a task. Names are shared between tasks and composites.
func (r *Registry) Register(t Task) error {
	name := t.Name()
	if r.taken(name) {
		return aberrors.ValidationFailed("tasks", fmt.Sprintf("name %q already registered", name))
	}
	r.tasks[name] = t
	return nil
}

// Define adds a composite whose members are task or composite names.
func (r *Registry) Define(name string, kind Kind, members ...string) error {
	if kind == KindTask {
		return aberrors.ValidationFailed("composites."+name, "kind must be parallel or series")
	}
	if r.taken(name) {
		return aberrors.ValidationFailed("composites."+name, "name already registered")
	}
	if len(members) == 0 {
		return aberrors.ValidationFailed("composites."+name, "no members")
	}
	r.composites[name] = composite{kind: kind, members: append([]string(nil), members...)}
	return nil
}

func (r *Registry) taken(name string) bool {
	_, isTask := r.tasks[name]
	_, isComposite := r.composites[name]
	return isTask || isComposite
}

// Has reports whether name is a registered task or composite.
func (r *Registry) Has(name string) bool { return r.taken(name) }

// Names lists registered tasks and composites, each sorted.
func (r *Registry) Names() (tasks, composites []string) {
	for n := range r.tasks {
		tasks = append(tasks, n)
	}
	for n := range r.composites {
		composites = append(composites, n)
	}
	sort.Strings(tasks)
	sort.Strings(composites)
	return tasks, composites
}

// Members returns the kind and member names of a composite.
func (r *Registry) Members(name string) (Kind, []string, bool) {
	c, ok := r.composites[name]
	if !ok {
		return KindTask, nil, false
	}
	return c.kind, append([]string(nil), c.members...), true
}

// Validate checks that every member name exists and that composites do not
// reference each other in a cycle. It returns the composites in dependency
// order, members first.
func (r *Registry) Validate() ([]string, error) {
	names := make([]string, 0, len(r.composites))
	for name := range r.composites {
		names = append(names, name)
	}
	return r.validate(names)
}

// reachable returns name and every composite nested below it.
func (r *Registry) reachable(name string) []string {
	seen := map[string]bool{}
	var out []string
	var walk func(string)
	walk = func(n string) {
		c, ok := r.composites[n]
		if !ok || seen[n] {
			return
		}
		seen[n] = true
		out = append(out, n)
		for _, m := range c.members {
			walk(m)
		}
	}
	walk(name)
	return out
}

func (r *Registry) validate(names []string) ([]string, error) {
	var missing []string
	for _, name := range names {
		for _, m := range r.composites[name].members {
			if !r.taken(m) {
				missing = append(missing, fmt.Sprintf("%s -> %s", name, m))
			}
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, aberrors.ValidationFailed("composites", "unknown members: "+strings.Join(missing, ", "))
	}

	var edges []toposort.Edge
	for _, name := range names {
		edges = append(edges, toposort.Edge{nil, name})
		for _, m := range r.composites[name].members {
			if m == name {
				return nil, aberrors.ValidationFailed("composites", fmt.Sprintf("cycle between composites: %s contains itself", name))
			}
			if _, ok := r.composites[m]; ok {
				// Edge (m, name) means m must be resolvable before name
				edges = append(edges, toposort.Edge{m, name})
			}
		}
	}

	sorted, err := toposort.Toposort(edges)
	if err != nil {
		return nil, aberrors.ValidationFailed("composites", "cycle between composites: "+err.Error())
	}

	order := make([]string, 0, len(sorted))
	for _, id := range sorted {
		if id != nil {
			order = append(order, id.(string))
		}
	}
	return order, nil
}

// Resolve builds the tree for a task or composite name.
func (r *Registry) Resolve(name string) (*Node, error) {
	if t, ok := r.tasks[name]; ok {
		return Leaf(t), nil
	}
	if _, ok := r.composites[name]; !ok {
		return nil, aberrors.ValidationFailed("task", fmt.Sprintf("unknown task or composite %q", name))
	}
	// Only the composites below name need to be complete.
	if _, err := r.validate(r.reachable(name)); err != nil {
		return nil, err
	}
	return r.build(name), nil
}

func (r *Registry) build(name string) *Node {
	if t, ok := r.tasks[name]; ok {
		return Leaf(t)
	}
	c := r.composites[name]
	children := make([]*Node, 0, len(c.members))
	for _, m := range c.members {
		children = append(children, r.build(m))
	}
	if c.kind == KindSeries {
		return Series(name, children...)
	}
	return Parallel(name, children...)
}
