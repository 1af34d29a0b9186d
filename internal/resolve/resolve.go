// Package resolve implements the Indirect-Setter Resolver (§4.4): for one
// file, which locally defined functions and object methods directly call (or
// receive as an argument) a known state setter. It produces the two EDB
// inputs (`sets_state`, `method_sets_state`) that internal/relate's Datalog
// program derives transitive and cross-file reachability from — this
// package itself does no transitive reasoning.
package resolve

import (
	sitter "github.com/smacker/go-tree-sitter"

	"rld/internal/astutil"
)

// FileSetterMap is the Indirect-Setter Resolver's output for one file.
type FileSetterMap struct {
	// ByFunction maps a plain function name to the setters directly called,
	// or passed as an argument, from within its body.
	ByFunction map[string][]string
	// ByMethod maps "object.method" to the same, for functions defined as
	// methods of a named object literal.
	ByMethod map[string][]string
}

func newMap() FileSetterMap {
	return FileSetterMap{ByFunction: map[string][]string{}, ByMethod: map[string][]string{}}
}

// Build walks root for function declarations, function-valued variables, and
// named-object-literal methods, recording which of the given setters each
// one directly uses. setters is the full set of setter identifiers known
// across every component in the file (from internal/extract).
func Build(root *sitter.Node, content []byte, setters map[string]bool) FileSetterMap {
	out := newMap()
	if root == nil || len(setters) == 0 {
		return out
	}
	astutil.Walk(root, func(n *sitter.Node) bool {
		switch n.Type() {
		case "function_declaration":
			name := n.ChildByFieldName("name")
			if name == nil {
				return true
			}
			id := astutil.Text(name, content)
			if astutil.IsPascalCase(id) {
				return true
			}
			body := n.ChildByFieldName("body")
			if used := directSetterUses(body, content, setters); len(used) > 0 {
				out.ByFunction[id] = append(out.ByFunction[id], used...)
			}
		case "variable_declarator":
			name := n.ChildByFieldName("name")
			value := n.ChildByFieldName("value")
			if name == nil || name.Type() != "identifier" || value == nil {
				return true
			}
			id := astutil.Text(name, content)
			if astutil.IsPascalCase(id) {
				return true
			}
			switch value.Type() {
			case "arrow_function", "function_expression":
				body := value.ChildByFieldName("body")
				if used := directSetterUses(body, content, setters); len(used) > 0 {
					out.ByFunction[id] = append(out.ByFunction[id], used...)
				}
			case "object":
				collectObjectMethods(id, value, content, setters, &out)
			}
		}
		return true
	})
	return out
}

// collectObjectMethods walks a named object literal's direct properties for
// method-shaped values, recording "object.method" setter usage.
func collectObjectMethods(objName string, obj *sitter.Node, content []byte, setters map[string]bool, out *FileSetterMap) {
	for i := 0; i < int(obj.NamedChildCount()); i++ {
		prop := obj.NamedChild(i)
		var key, fnBody *sitter.Node
		switch prop.Type() {
		case "method_definition":
			key = prop.ChildByFieldName("name")
			fnBody = prop.ChildByFieldName("body")
		case "pair":
			key = prop.ChildByFieldName("key")
			value := prop.ChildByFieldName("value")
			if value == nil || (value.Type() != "arrow_function" && value.Type() != "function_expression") {
				continue
			}
			fnBody = value.ChildByFieldName("body")
		default:
			continue
		}
		if key == nil || fnBody == nil {
			continue
		}
		used := directSetterUses(fnBody, content, setters)
		if len(used) == 0 {
			continue
		}
		methodKey := objName + "." + astutil.Text(key, content)
		out.ByMethod[methodKey] = append(out.ByMethod[methodKey], used...)
	}
}

// directSetterUses walks body (not descending into nested function-like
// subtrees) for call expressions whose callee is a known setter, or whose
// arguments include a known setter identifier — the latter because passing a
// setter onward generally leads to its invocation (§4.4).
func directSetterUses(body *sitter.Node, content []byte, setters map[string]bool) []string {
	if body == nil {
		return nil
	}
	found := map[string]bool{}
	astutil.Walk(body, func(n *sitter.Node) bool {
		if n != body && astutil.IsFunctionLike(n) {
			return false
		}
		if n.Type() != "call_expression" {
			return true
		}
		callee := astutil.LastSegment(astutil.CalleeName(n, content))
		if setters[callee] {
			found[callee] = true
		}
		for _, arg := range astutil.CallArgs(n) {
			if arg.Type() == "identifier" {
				name := astutil.Text(arg, content)
				if setters[name] {
					found[name] = true
				}
			}
		}
		return true
	})
	out := make([]string, 0, len(found))
	for s := range found {
		out = append(out, s)
	}
	return out
}
