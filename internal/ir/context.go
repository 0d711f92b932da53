package ir

import (
	"fmt"
)

// Context owns every generator built in one construction session and is the
// root handed to passes, code generation, and serialization. Multiple
// generators may share a module definition name; the uniquify pass
// disambiguates the ones that differ structurally.
type Context struct {
	generators []*Generator
	byName     map[string][]*Generator
}

// NewContext returns an empty construction context.
func NewContext() *Context {
	return &Context{byName: make(map[string][]*Generator)}
}

// Generator creates a new module under the given definition name and
// registers it with the context. Every call creates a fresh generator, even
// under an existing name.
func (c *Context) Generator(name string) (*Generator, error) {
	g, err := newGenerator(c, name)
	if err != nil {
		return nil, err
	}
	c.generators = append(c.generators, g)
	c.byName[name] = append(c.byName[name], g)
	return g, nil
}

// Generators returns every generator in creation order. The returned slice
// is shared; callers must not mutate it.
func (c *Context) Generators() []*Generator { return c.generators }

// GeneratorsByName returns the generators registered under a definition name,
// in creation order.
func (c *Context) GeneratorsByName(name string) []*Generator { return c.byName[name] }

// Roots returns the generators with no parent, in creation order. These are
// the serialization roots and the top modules of code generation.
func (c *Context) Roots() []*Generator {
	var roots []*Generator
	for _, g := range c.generators {
		if g.parent == nil {
			roots = append(roots, g)
		}
	}
	return roots
}

// Rename moves a generator to a new definition name in the context's
// registry. Used by the uniquify pass; the generator's own name is updated
// too.
func (c *Context) Rename(g *Generator, newName string) error {
	if g == nil {
		return NewUserError("cannot rename an empty generator")
	}
	if g.ctx != c {
		return NewGeneratorError("generator belongs to a different context", g)
	}
	if !isValidIdentifier(newName) {
		return NewUserError(fmt.Sprintf("invalid module name %q", newName))
	}
	if newName == g.name {
		return nil
	}
	old := c.byName[g.name]
	for i, existing := range old {
		if existing == g {
			c.byName[g.name] = append(old[:i], old[i+1:]...)
			break
		}
	}
	if len(c.byName[g.name]) == 0 {
		delete(c.byName, g.name)
	}
	g.name = newName
	c.byName[newName] = append(c.byName[newName], g)
	return nil
}

// HasName reports whether any generator is registered under the name.
func (c *Context) HasName(name string) bool { return len(c.byName[name]) > 0 }
