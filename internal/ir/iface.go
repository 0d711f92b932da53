package ir

import (
	"fmt"
)

// InterfaceSignal is one signal of an interface bundle.
type InterfaceSignal struct {
	Name   string
	Width  uint32
	Signed bool
}

// InterfaceDef is a named bundle of signals shared across module boundaries.
// Like packed structs, a bundle occupies a flat bit range: signals pack
// most-significant first in declaration order.
type InterfaceDef struct {
	name    string
	signals []InterfaceSignal
	byName  map[string]int
	width   uint32
}

func newInterfaceDef(name string, signals []InterfaceSignal) (*InterfaceDef, error) {
	if name == "" {
		return nil, NewUserError("interface name must not be empty")
	}
	if len(signals) == 0 {
		return nil, NewUserError(fmt.Sprintf("interface %q must have at least one signal", name))
	}
	def := &InterfaceDef{
		name:    name,
		signals: make([]InterfaceSignal, len(signals)),
		byName:  make(map[string]int, len(signals)),
	}
	copy(def.signals, signals)
	for i, s := range def.signals {
		if s.Name == "" {
			return nil, NewUserError(fmt.Sprintf("interface %q has a signal with an empty name", name))
		}
		if s.Width == 0 {
			return nil, NewUserError(fmt.Sprintf(
				"interface %q signal %q width must be >= 1", name, s.Name))
		}
		if _, ok := def.byName[s.Name]; ok {
			return nil, NewUserError(fmt.Sprintf("interface %q redefines signal %q", name, s.Name))
		}
		def.byName[s.Name] = i
		def.width += s.Width
	}
	return def, nil
}

// Name returns the interface type name.
func (d *InterfaceDef) Name() string { return d.name }

// Width returns the total bundled width.
func (d *InterfaceDef) Width() uint32 { return d.width }

// Signals returns the signal layout in declaration order. The returned slice
// is shared; callers must not mutate it.
func (d *InterfaceDef) Signals() []InterfaceSignal { return d.signals }

// signalRange returns the [high:low] bit range of the named signal.
func (d *InterfaceDef) signalRange(name string) (high, low uint32, ok bool) {
	i, ok := d.byName[name]
	if !ok {
		return 0, 0, false
	}
	top := d.width
	for j := 0; j < i; j++ {
		top -= d.signals[j].Width
	}
	high = top - 1
	low = top - d.signals[i].Width
	return high, low, true
}

// InterfaceVar is one instance of an interface bundle. Signal access goes
// through Member, which resolves to the signal's bit range on the flat
// vector; the slice cache makes repeated access return the identical node.
type InterfaceVar struct {
	varBase
	def *InterfaceDef
}

func newInterfaceVar(gen *Generator, name string, def *InterfaceDef) *InterfaceVar {
	v := &InterfaceVar{def: def}
	v.init(v, gen, name, def.Width(), false, Base)
	return v
}

// Def returns the interface definition laying out this instance.
func (v *InterfaceVar) Def() *InterfaceDef { return v.def }

// Member returns the slice covering the named signal.
func (v *InterfaceVar) Member(name string) (*VarSlice, error) {
	high, low, ok := v.def.signalRange(name)
	if !ok {
		return nil, NewVarError(fmt.Sprintf(
			"interface %q has no signal %q", v.def.name, name), v)
	}
	return v.Slice(high, low)
}

func (v *InterfaceVar) KindName() string   { return "interface_var" }
func (v *InterfaceVar) ChildCount() int    { return 0 }
func (v *InterfaceVar) Child(int) Node     { return nil }
func (v *InterfaceVar) Accept(vis Visitor) { vis.VisitInterfaceVar(v) }
func (v *InterfaceVar) String() string     { return v.name }
