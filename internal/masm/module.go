package masm

// Procedure is one named MASM procedure: a sequence of Ops produced by
// internal/stackify for a single HIR function, plus whether it is
// exported from its module.
type Procedure struct {
	Name     string
	Exported bool
	Body     []Op
}

// Module is a named MASM source unit, holding its procedures ordered by
// name in a B-tree-like sorted slice, per spec.md §4.7 ("modules are
// keyed by name in a B-tree within their containing library for stable
// ordering") — Go has no stdlib B-tree, so Module keeps procs sorted by
// name and re-sorts on insert, which gives the same externally visible
// ordering guarantee the teacher's own sorted-map-backed output relies
// on.
type Module struct {
	Name  string
	procs map[string]*Procedure
	order []string
}

// NewModule creates an empty module named name.
func NewModule(name string) *Module {
	return &Module{Name: name, procs: make(map[string]*Procedure)}
}

// Insert adds proc to the module, keeping Procedures() sorted by name.
func (m *Module) Insert(proc *Procedure) {
	if _, exists := m.procs[proc.Name]; !exists {
		m.order = insertSorted(m.order, proc.Name)
	}
	m.procs[proc.Name] = proc
}

// Get returns the procedure named name, or nil.
func (m *Module) Get(name string) *Procedure { return m.procs[name] }

// Procedures returns every procedure in the module, in name order.
func (m *Module) Procedures() []*Procedure {
	out := make([]*Procedure, len(m.order))
	for i, n := range m.order {
		out[i] = m.procs[n]
	}
	return out
}

func insertSorted(order []string, name string) []string {
	i := 0
	for i < len(order) && order[i] < name {
		i++
	}
	order = append(order, "")
	copy(order[i+1:], order[i:])
	order[i] = name
	return order
}

// Text renders the module as MASM source text: one `export.<name>` or
// `proc.<name>` block per procedure, in sorted order.
func (m *Module) Text() string {
	out := ""
	for _, p := range m.Procedures() {
		kw := "proc"
		if p.Exported {
			kw = "export"
		}
		out += kw + "." + p.Name + "\n"
		for _, op := range p.Body {
			out += op.Text(1) + "\n"
		}
		out += "end\n\n"
	}
	return out
}

// Library is a named collection of Modules, ordered by name the same
// way Module orders its procedures.
type Library struct {
	modules map[string]*Module
	order   []string
}

// NewLibrary creates an empty library.
func NewLibrary() *Library { return &Library{modules: make(map[string]*Module)} }

// Insert adds module to the library, keeping Modules() sorted by name.
func (l *Library) Insert(module *Module) {
	if _, exists := l.modules[module.Name]; !exists {
		l.order = insertSorted(l.order, module.Name)
	}
	l.modules[module.Name] = module
}

// Get returns the module named name, or nil.
func (l *Library) Get(name string) *Module { return l.modules[name] }

// Modules returns every module in the library, in name order.
func (l *Library) Modules() []*Module {
	out := make([]*Module, len(l.order))
	for i, n := range l.order {
		out[i] = l.modules[n]
	}
	return out
}
