package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainGenerator = "loom/generator/v1"
	DomainSnapshot  = "loom/snapshot/v1"
)

// HashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte (0x00) separator prevents domain/data boundary ambiguity.
func HashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// GeneratorHash computes the structural signature of a generator: its ports,
// declarations, body, and children, hashed over canonical JSON. The module
// definition name and the instance name are excluded, so two generators with
// the same shape hash equal regardless of what they are called. The uniquify
// pass relies on exactly that: same name + same hash means one emitted
// module, same name + different hash forces a rename.
func GeneratorHash(g *Generator) (string, error) {
	obj, err := generatorShape(g)
	if err != nil {
		return "", err
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("GeneratorHash: failed to marshal: %w", err)
	}
	return HashWithDomain(DomainGenerator, canonical), nil
}

func generatorShape(g *Generator) (map[string]any, error) {
	ports := make([]any, 0, len(g.ports))
	for _, p := range g.ports {
		shape := map[string]any{
			"name":      p.Name(),
			"direction": p.Direction().String(),
			"type":      p.PortType().String(),
			"width":     p.Width(),
			"signed":    p.Signed(),
		}
		if def := p.StructDef(); def != nil {
			shape["struct"] = def.Name()
		}
		ports = append(ports, shape)
	}

	vars := make([]any, 0, len(g.valueOrder))
	for _, name := range g.valueOrder {
		v := g.namedValues[name]
		if v.VarType() == PortIO {
			continue
		}
		vars = append(vars, map[string]any{
			"name":   v.Name(),
			"kind":   v.KindName(),
			"width":  v.Width(),
			"signed": v.Signed(),
		})
	}

	enums := make([]any, 0, len(g.enumOrder))
	for _, name := range g.enumOrder {
		def := g.enums[name]
		members := make([]any, 0, len(def.Members()))
		for _, m := range def.Members() {
			members = append(members, map[string]any{
				"name":  m.String(),
				"value": m.Value(),
			})
		}
		enums = append(enums, map[string]any{
			"name":    def.Name(),
			"width":   def.Width(),
			"members": members,
		})
	}

	structs := make([]any, 0, len(g.structOrder))
	for _, name := range g.structOrder {
		def := g.structs[name]
		fields := make([]any, 0, len(def.Fields()))
		for _, f := range def.Fields() {
			fields = append(fields, map[string]any{
				"name":   f.Name,
				"width":  f.Width,
				"signed": f.Signed,
			})
		}
		structs = append(structs, map[string]any{
			"name":   def.Name(),
			"fields": fields,
		})
	}

	interfaces := make([]any, 0, len(g.interfaceOrder))
	for _, name := range g.interfaceOrder {
		def := g.interfaces[name]
		signals := make([]any, 0, len(def.Signals()))
		for _, s := range def.Signals() {
			signals = append(signals, map[string]any{
				"name":   s.Name,
				"width":  s.Width,
				"signed": s.Signed,
			})
		}
		interfaces = append(interfaces, map[string]any{
			"name":    def.Name(),
			"signals": signals,
		})
	}

	stmts := make([]any, 0, len(g.stmts))
	for _, s := range g.stmts {
		shape, err := stmtShape(s)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, shape)
	}

	children := make([]any, 0, len(g.children))
	for _, child := range g.children {
		childHash, err := GeneratorHash(child)
		if err != nil {
			return nil, err
		}
		children = append(children, map[string]any{
			"instance": child.InstanceName(),
			"hash":     childHash,
		})
	}

	return map[string]any{
		"ports":      ports,
		"vars":       vars,
		"enums":      enums,
		"structs":    structs,
		"interfaces": interfaces,
		"stmts":      stmts,
		"children":   children,
	}, nil
}

// stmtShape renders a statement's structure. Value operands render through
// String, which is deterministic for a fixed construction sequence.
func stmtShape(s Stmt) (map[string]any, error) {
	switch st := s.(type) {
	case *AssignStmt:
		return map[string]any{
			"kind":   "assign",
			"target": st.Target().String(),
			"source": st.Source().String(),
			"type":   st.AssignType().String(),
		}, nil
	case *StmtBlock:
		conditions := make([]any, 0, len(st.Conditions()))
		for _, c := range st.Conditions() {
			conditions = append(conditions, fmt.Sprintf("%s %s", c.Edge, c.Value))
		}
		inner := make([]any, 0, len(st.Stmts()))
		for _, child := range st.Stmts() {
			shape, err := stmtShape(child)
			if err != nil {
				return nil, err
			}
			inner = append(inner, shape)
		}
		return map[string]any{
			"kind":       "block",
			"flavor":     st.BlockType().String(),
			"conditions": conditions,
			"stmts":      inner,
		}, nil
	case *IfStmt:
		thenShape, err := stmtShape(st.ThenBody())
		if err != nil {
			return nil, err
		}
		elseShape, err := stmtShape(st.ElseBody())
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"kind":      "if",
			"predicate": st.Predicate().String(),
			"then":      thenShape,
			"else":      elseShape,
		}, nil
	case *ModuleInstantiationStmt:
		targetHash, err := GeneratorHash(st.Target())
		if err != nil {
			return nil, err
		}
		connections := make([]any, 0, len(st.Connections()))
		for _, c := range st.Connections() {
			connections = append(connections, map[string]any{
				"port":  c.Port.Name(),
				"value": c.Value.String(),
			})
		}
		return map[string]any{
			"kind":        "module_instantiation",
			"instance":    st.Target().InstanceName(),
			"target_hash": targetHash,
			"connections": connections,
		}, nil
	case *EventTracingStmt:
		fields := make([]any, 0)
		for _, name := range st.FieldNames() {
			fields = append(fields, map[string]any{
				"name":  name,
				"value": st.Field(name).String(),
			})
		}
		return map[string]any{
			"kind":        "event_tracing",
			"event":       st.EventName(),
			"transaction": st.Transaction(),
			"action":      st.Action().String(),
			"fields":      fields,
		}, nil
	default:
		return nil, fmt.Errorf("stmtShape: unsupported statement type %T", s)
	}
}
