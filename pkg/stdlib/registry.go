// Package stdlib provides the slox standard library function registry.
package stdlib

import (
	"sort"

	"github.com/thomasrohde/slox/pkg/evaluator"
)

// Fn represents a standard library function.
type Fn struct {
	Name    string
	Arity   int
	Execute evaluator.NativeFunc
}

// Registry holds registered stdlib functions.
type Registry struct {
	fns map[string]*Fn
}

// NewRegistry creates a new empty stdlib registry.
func NewRegistry() *Registry {
	return &Registry{
		fns: make(map[string]*Fn),
	}
}

// Register adds a stdlib function to the registry.
func (r *Registry) Register(fn Fn) {
	r.fns[fn.Name] = &fn
}

// Get retrieves a stdlib function by name.
func (r *Registry) Get(name string) *Fn {
	return r.fns[name]
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.fns))
	for name := range r.fns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Install defines every registered function as a global native.
func (r *Registry) Install(in *evaluator.Interpreter) {
	for _, name := range r.Names() {
		fn := r.fns[name]
		in.DefineNative(fn.Name, fn.Arity, fn.Execute)
	}
}
