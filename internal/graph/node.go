// Package graph composes named tasks into parallel and series composites and
// runs the resulting trees.
package graph

import "context"

// Task is a named unit of work.
type Task interface {
	Name() string
	Run(ctx context.Context) error
}

type funcTask struct {
	name string
	fn   func(context.Context) error
}

func (t funcTask) Name() string                  { return t.name }
func (t funcTask) Run(ctx context.Context) error { return t.fn(ctx) }

// Func adapts a function to a Task.
func Func(name string, fn func(context.Context) error) Task {
	return funcTask{name: name, fn: fn}
}

// Kind distinguishes leaves from composites.
type Kind int

const (
	KindTask Kind = iota
	KindParallel
	KindSeries
)

func (k Kind) String() string {
	switch k {
	case KindParallel:
		return "parallel"
	case KindSeries:
		return "series"
	default:
		return "task"
	}
}

// Node is one vertex of a task tree.
type Node struct {
	Name     string
	Kind     Kind
	Task     Task
	Children []*Node
}

// Leaf wraps a single task.
func Leaf(t Task) *Node {
	return &Node{Name: t.Name(), Kind: KindTask, Task: t}
}

// Parallel runs its children concurrently.
func Parallel(name string, children ...*Node) *Node {
	return &Node{Name: name, Kind: KindParallel, Children: children}
}

// Series runs its children one after another.
func Series(name string, children ...*Node) *Node {
	return &Node{Name: name, Kind: KindSeries, Children: children}
}

// Leaves returns the tasks below n in declaration order.
func (n *Node) Leaves() []Task {
	if n.Kind == KindTask {
		return []Task{n.Task}
	}
	var out []Task
	for _, c := range n.Children {
		out = append(out, c.Leaves()...)
	}
	return out
}
