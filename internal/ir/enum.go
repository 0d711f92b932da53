package ir

import (
	"fmt"
)

// EnumMember is one name/value pair in an enum definition.
type EnumMember struct {
	Name  string
	Value int64
}

// EnumDef is a named enumerated type owned by a generator. Members keep their
// declaration order; each member is materialized once as an EnumConst so
// repeated lookups return the identical node.
type EnumDef struct {
	name    string
	width   uint32
	members []*EnumConst
	byName  map[string]*EnumConst
}

func newEnumDef(gen *Generator, name string, width uint32, members []EnumMember) (*EnumDef, error) {
	if name == "" {
		return nil, NewUserError("enum name must not be empty")
	}
	if width == 0 {
		return nil, NewUserError(fmt.Sprintf("enum %q width must be >= 1", name))
	}
	if len(members) == 0 {
		return nil, NewUserError(fmt.Sprintf("enum %q must have at least one member", name))
	}
	def := &EnumDef{
		name:   name,
		width:  width,
		byName: make(map[string]*EnumConst, len(members)),
	}
	seenValues := make(map[int64]string, len(members))
	for _, m := range members {
		if m.Name == "" {
			return nil, NewUserError(fmt.Sprintf("enum %q has a member with an empty name", name))
		}
		if _, ok := def.byName[m.Name]; ok {
			return nil, NewUserError(fmt.Sprintf("enum %q redefines member %q", name, m.Name))
		}
		if prev, ok := seenValues[m.Value]; ok {
			return nil, NewUserError(fmt.Sprintf(
				"enum %q members %q and %q share value %d", name, prev, m.Name, m.Value))
		}
		c := &EnumConst{def: def, memberName: m.Name, value: m.Value}
		c.init(c, gen, m.Name, width, false, ConstValue)
		if err := checkConstRange(c, m.Value, width, false); err != nil {
			return nil, err
		}
		def.members = append(def.members, c)
		def.byName[m.Name] = c
		seenValues[m.Value] = m.Name
	}
	return def, nil
}

// Name returns the enum type name.
func (d *EnumDef) Name() string { return d.name }

// Width returns the storage width of the enum.
func (d *EnumDef) Width() uint32 { return d.width }

// Members returns the member constants in declaration order. The returned
// slice is shared; callers must not mutate it.
func (d *EnumDef) Members() []*EnumConst { return d.members }

// Member returns the named member constant.
func (d *EnumDef) Member(name string) (*EnumConst, error) {
	c, ok := d.byName[name]
	if !ok {
		return nil, NewUserError(fmt.Sprintf("enum %q has no member %q", d.name, name))
	}
	return c, nil
}

// EnumConst is one member of an enum definition, usable anywhere a constant
// is. It renders as its member name rather than a sized literal.
type EnumConst struct {
	varBase
	def        *EnumDef
	memberName string
	value      int64
}

// Def returns the owning enum definition.
func (c *EnumConst) Def() *EnumDef { return c.def }

// Value returns the member's numeric value.
func (c *EnumConst) Value() int64 { return c.value }

func (c *EnumConst) KindName() string   { return "enum_const" }
func (c *EnumConst) ChildCount() int    { return 0 }
func (c *EnumConst) Child(int) Node     { return nil }
func (c *EnumConst) Accept(vis Visitor) { vis.VisitEnumConst(c) }
func (c *EnumConst) String() string     { return c.memberName }

// EnumVar is storage typed by an enum definition. Assignments into an enum
// var are checked against the definition: only members of the same enum, or
// another var of the same enum, may drive it.
type EnumVar struct {
	varBase
	def *EnumDef
}

func newEnumVar(gen *Generator, name string, def *EnumDef) *EnumVar {
	v := &EnumVar{def: def}
	v.init(v, gen, name, def.Width(), false, Base)
	return v
}

// Def returns the enum definition typing this var.
func (v *EnumVar) Def() *EnumDef { return v.def }

func (v *EnumVar) KindName() string   { return "enum_var" }
func (v *EnumVar) ChildCount() int    { return 0 }
func (v *EnumVar) Child(int) Node     { return nil }
func (v *EnumVar) Accept(vis Visitor) { vis.VisitEnumVar(v) }
func (v *EnumVar) String() string     { return v.name }

// checkEnumAssign rejects drivers that are not members or vars of the target
// enum. Called from assignment construction when the target is an EnumVar.
func checkEnumAssign(target *EnumVar, source Value) error {
	switch s := source.(type) {
	case *EnumConst:
		if s.def != target.def {
			return NewVarError(fmt.Sprintf(
				"cannot assign member of enum %q to var of enum %q",
				s.def.name, target.def.name), target, source)
		}
		return nil
	case *EnumVar:
		if s.def != target.def {
			return NewVarError(fmt.Sprintf(
				"cannot assign var of enum %q to var of enum %q",
				s.def.name, target.def.name), target, source)
		}
		return nil
	default:
		return NewVarError(fmt.Sprintf(
			"cannot assign %s to var of enum %q", source.KindName(), target.def.name),
			target, source)
	}
}
