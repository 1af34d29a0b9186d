package extract

import (
	sitter "github.com/smacker/go-tree-sitter"

	"rld/internal/astutil"
	"rld/internal/model"
	"rld/internal/stability"
)

// Components returns every component scope found in root (§3 Component Scope).
func Components(root *sitter.Node, content []byte) []model.ComponentScope {
	nodes := FindComponentNodes(root, content)
	scopes := make([]model.ComponentScope, 0, len(nodes))
	for _, n := range nodes {
		kind := model.ComponentArrow
		if n.Fn.Type() == "function_declaration" {
			kind = model.ComponentFunction
		}
		scopes = append(scopes, model.ComponentScope{
			Name:    n.Name,
			Kind:    kind,
			Node:    n.Fn,
			Body:    n.Body,
			Wrapped: n.Wrapped,
		})
	}
	return scopes
}

// Facts runs the State & Ref Extractor over one component scope (§4.2).
// Declarations inside nested functions are ignored; only the component
// body's top-level statements are considered. Overlap between state, ref,
// and unstable-local names is resolved by precedence state -> ref ->
// unstable, per the invariant in §4.2.
func Facts(file string, scope model.ComponentScope, content []byte, oracle *stability.Oracle) model.ComponentFacts {
	facts := model.ComponentFacts{
		Scope:      scope,
		StateIndex: map[string]string{},
		SetterOf:   map[string]string{},
		UnstableOf: map[string]model.UnstableLocal{},
	}
	if scope.Body == nil || scope.Body.Type() != "statement_block" {
		return facts
	}

	seen := map[string]bool{}

	for _, stmt := range astutil.TopLevelStatements(scope.Body) {
		switch stmt.Type() {
		case "lexical_declaration", "variable_declaration":
			extractDeclarators(file, stmt, content, oracle, &facts, seen)
		case "function_declaration":
			name := stmt.ChildByFieldName("name")
			if name == nil {
				continue
			}
			id := astutil.Text(name, content)
			if seen[id] {
				continue
			}
			seen[id] = true
			ul := model.UnstableLocal{Name: id, Kind: model.UnstableFunction, Node: stmt}
			facts.Unstable = append(facts.Unstable, ul)
			facts.UnstableOf[id] = ul
		}
	}
	return facts
}

func extractDeclarators(file string, decl *sitter.Node, content []byte, oracle *stability.Oracle, facts *model.ComponentFacts, seen map[string]bool) {
	for i := 0; i < int(decl.NamedChildCount()); i++ {
		d := decl.NamedChild(i)
		if d.Type() != "variable_declarator" {
			continue
		}
		name := d.ChildByFieldName("name")
		value := d.ChildByFieldName("value")
		if name == nil {
			continue
		}

		if name.Type() == "array_pattern" && value != nil && value.Type() == "call_expression" {
			callee := astutil.LastSegment(astutil.CalleeName(value, content))
			if callee == "useState" && name.NamedChildCount() == 2 {
				state := astutil.Text(name.NamedChild(0), content)
				setter := astutil.Text(name.NamedChild(1), content)
				if !seen[state] {
					seen[state] = true
					facts.States = append(facts.States, model.StateBinding{State: state, Setter: setter, Node: value})
					facts.StateIndex[state] = setter
					facts.SetterOf[setter] = state
				}
				continue
			}
		}

		if name.Type() != "identifier" {
			continue
		}
		id := astutil.Text(name, content)
		if seen[id] {
			continue
		}

		if value != nil && value.Type() == "call_expression" {
			callee := astutil.LastSegment(astutil.CalleeName(value, content))
			if callee == "useRef" {
				seen[id] = true
				facts.Refs = append(facts.Refs, model.RefBinding{Name: id, Node: value})
				continue
			}
		}

		kind, unstable := classifyInitializer(file, id, value, content, oracle)
		if !unstable {
			continue
		}
		seen[id] = true
		ul := model.UnstableLocal{Name: id, Kind: kind, Node: value}
		facts.Unstable = append(facts.Unstable, ul)
		facts.UnstableOf[id] = ul
	}
}

func classifyInitializer(file, name string, value *sitter.Node, content []byte, oracle *stability.Oracle) (model.UnstableKind, bool) {
	if value == nil {
		return 0, false
	}
	switch value.Type() {
	case "object":
		return model.UnstableObject, true
	case "array":
		return model.UnstableArray, true
	case "function_expression", "arrow_function":
		return model.UnstableFunction, true
	case "call_expression":
		callee := astutil.CalleeName(value, content)
		pos := astutil.Pos(value)
		if oracle.CallResultStable(file, pos.Line, name, callee) {
			return 0, false
		}
		return model.UnstableCallResult, true
	default:
		return 0, false
	}
}
