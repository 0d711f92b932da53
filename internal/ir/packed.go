package ir

import (
	"fmt"
)

// PackedField is one member of a packed struct layout.
type PackedField struct {
	Name   string
	Width  uint32
	Signed bool
}

// PackedStructDef is a named flat bit layout. Fields pack most-significant
// first: the first declared field occupies the top bits of the total width.
type PackedStructDef struct {
	name   string
	fields []PackedField
	byName map[string]int
	width  uint32
}

func newPackedStructDef(name string, fields []PackedField) (*PackedStructDef, error) {
	if name == "" {
		return nil, NewUserError("packed struct name must not be empty")
	}
	if len(fields) == 0 {
		return nil, NewUserError(fmt.Sprintf("packed struct %q must have at least one field", name))
	}
	def := &PackedStructDef{
		name:   name,
		fields: make([]PackedField, len(fields)),
		byName: make(map[string]int, len(fields)),
	}
	copy(def.fields, fields)
	for i, f := range def.fields {
		if f.Name == "" {
			return nil, NewUserError(fmt.Sprintf("packed struct %q has a field with an empty name", name))
		}
		if f.Width == 0 {
			return nil, NewUserError(fmt.Sprintf(
				"packed struct %q field %q width must be >= 1", name, f.Name))
		}
		if _, ok := def.byName[f.Name]; ok {
			return nil, NewUserError(fmt.Sprintf("packed struct %q redefines field %q", name, f.Name))
		}
		def.byName[f.Name] = i
		def.width += f.Width
	}
	return def, nil
}

// Name returns the struct type name.
func (d *PackedStructDef) Name() string { return d.name }

// Width returns the total packed width.
func (d *PackedStructDef) Width() uint32 { return d.width }

// Fields returns the field layout in declaration order. The returned slice is
// shared; callers must not mutate it.
func (d *PackedStructDef) Fields() []PackedField { return d.fields }

// fieldRange returns the [high:low] bit range of the named field.
func (d *PackedStructDef) fieldRange(name string) (high, low uint32, ok bool) {
	i, ok := d.byName[name]
	if !ok {
		return 0, 0, false
	}
	top := d.width
	for j := 0; j < i; j++ {
		top -= d.fields[j].Width
	}
	high = top - 1
	low = top - d.fields[i].Width
	return high, low, true
}

// PackedVar is storage laid out by a packed struct definition. Field access
// goes through Member, which resolves to the field's bit range on the flat
// vector; the slice cache makes repeated access to a field return the
// identical node.
type PackedVar struct {
	varBase
	def *PackedStructDef
}

func newPackedVar(gen *Generator, name string, def *PackedStructDef) *PackedVar {
	v := &PackedVar{def: def}
	v.init(v, gen, name, def.Width(), false, Base)
	return v
}

// Def returns the struct definition laying out this var.
func (v *PackedVar) Def() *PackedStructDef { return v.def }

// Member returns the slice covering the named field.
func (v *PackedVar) Member(name string) (*VarSlice, error) {
	high, low, ok := v.def.fieldRange(name)
	if !ok {
		return nil, NewVarError(fmt.Sprintf(
			"packed struct %q has no field %q", v.def.name, name), v)
	}
	return v.Slice(high, low)
}

func (v *PackedVar) KindName() string   { return "packed_var" }
func (v *PackedVar) ChildCount() int    { return 0 }
func (v *PackedVar) Child(int) Node     { return nil }
func (v *PackedVar) Accept(vis Visitor) { vis.VisitPackedVar(v) }
func (v *PackedVar) String() string     { return v.name }
