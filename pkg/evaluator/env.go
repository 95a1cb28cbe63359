package evaluator

// Environment is one frame of the scope chain.
// Lookup and assignment walk parent frames; definition never does.
type Environment struct {
	values map[string]Value
	parent *Environment
}

// NewEnvironment creates a new frame with an optional parent frame.
func NewEnvironment(parent *Environment) *Environment {
	return &Environment{
		values: make(map[string]Value),
		parent: parent,
	}
}

// Child creates a new frame whose parent is this one.
func (e *Environment) Child() *Environment {
	return NewEnvironment(e)
}

// Define binds name in this frame, overwriting any existing binding.
func (e *Environment) Define(name string, val Value) {
	e.values[name] = val
}

// Get looks up a variable by name, traversing parent frames.
func (e *Environment) Get(name string) (Value, bool) {
	for env := e; env != nil; env = env.parent {
		if val, ok := env.values[name]; ok {
			return val, true
		}
	}
	return nil, false
}

// Assign updates the nearest frame that defines name.
// It reports false, and creates nothing, when no frame does.
func (e *Environment) Assign(name string, val Value) bool {
	for env := e; env != nil; env = env.parent {
		if _, ok := env.values[name]; ok {
			env.values[name] = val
			return true
		}
	}
	return false
}

// Names returns the names bound directly in this frame.
func (e *Environment) Names() []string {
	names := make([]string, 0, len(e.values))
	for name := range e.values {
		names = append(names, name)
	}
	return names
}
