package passes

import (
	"fmt"

	"github.com/roach88/loom/internal/ir"
)

// UniquifyGenerators resolves definition-name collisions across the whole
// context by structural hash. Generators registered under one name that
// hash identically keep sharing the name, which is what lets code
// generation emit their module definition once; the first differing shape
// keeps the original name and every further distinct shape is renamed to
// the next free numbered variant. Registration order decides who keeps the
// bare name, so the outcome does not depend on map iteration.
func UniquifyGenerators(top *ir.Generator) error {
	if top == nil {
		return ir.NewUserError("cannot uniquify an empty generator")
	}
	ctx := top.Context()
	hashes := make(map[*ir.Generator]string)
	hashOf := func(g *ir.Generator) (string, error) {
		if h, ok := hashes[g]; ok {
			return h, nil
		}
		h, err := ir.GeneratorHash(g)
		if err != nil {
			return "", err
		}
		hashes[g] = h
		return h, nil
	}

	for _, name := range definitionNames(ctx) {
		group := append([]*ir.Generator(nil), ctx.GeneratorsByName(name)...)
		if len(group) < 2 {
			continue
		}
		assigned := make(map[string]string)
		suffix := 1
		for _, g := range group {
			h, err := hashOf(g)
			if err != nil {
				return err
			}
			target, ok := assigned[h]
			if !ok {
				if len(assigned) == 0 {
					target = name
				} else {
					for {
						candidate := fmt.Sprintf("%s_%d", name, suffix)
						suffix++
						if !ctx.HasName(candidate) {
							target = candidate
							break
						}
					}
				}
				assigned[h] = target
			}
			if err := ctx.Rename(g, target); err != nil {
				return err
			}
		}
	}
	return nil
}

// definitionNames returns every definition name in the context in
// first-registration order.
func definitionNames(ctx *ir.Context) []string {
	var names []string
	seen := make(map[string]bool)
	for _, g := range ctx.Generators() {
		if !seen[g.Name()] {
			seen[g.Name()] = true
			names = append(names, g.Name())
		}
	}
	return names
}
