// Package detect implements the three standalone detectors that run ahead
// of (and, for unstable references, alongside) the policy engine: the
// Render-Phase Detector (§4.9), the Effect-Without-Deps Detector (§4.10),
// and the Unstable-Refs Detector (§4.11).
package detect

import (
	sitter "github.com/smacker/go-tree-sitter"

	"rld/internal/astutil"
	"rld/internal/guard"
	"rld/internal/model"
)

// RenderPhase walks scope's body (excluding any nested function, effect
// callback, event handler, or hook-callback argument — all of which are
// function-like children the walk refuses to descend into, the same rule
// internal/extract's HookSites applies) looking for setter calls and
// ref.current assignments made directly during render.
func RenderPhase(file string, scope model.ComponentScope, facts model.ComponentFacts, content []byte) []model.HookDiagnostic {
	if scope.Body == nil {
		return nil
	}
	refNames := make(map[string]bool, len(facts.Refs))
	for _, r := range facts.Refs {
		refNames[r.Name] = true
	}
	allStates := make(map[string]bool, len(facts.StateIndex))
	for s := range facts.StateIndex {
		allStates[s] = true
	}

	var diags []model.HookDiagnostic
	astutil.Walk(scope.Body, func(n *sitter.Node) bool {
		if n != scope.Body && astutil.IsFunctionLike(n) {
			return false
		}
		switch n.Type() {
		case "call_expression":
			callee := astutil.LastSegment(astutil.CalleeName(n, content))
			state, isSetter := facts.SetterOf[callee]
			if !isSetter {
				return true
			}
			if d, ok := renderPhaseSetterDiagnostic(file, n, callee, state, allStates, scope, content); ok {
				diags = append(diags, d)
			}
		case "assignment_expression":
			left := n.ChildByFieldName("left")
			if left == nil || left.Type() != "member_expression" {
				return true
			}
			obj := left.ChildByFieldName("object")
			prop := left.ChildByFieldName("property")
			if obj == nil || prop == nil || astutil.Text(prop, content) != "current" {
				return true
			}
			if !refNames[astutil.Text(obj, content)] {
				return true
			}
			right := n.ChildByFieldName("right")
			readsState := false
			if right != nil {
				rightText := astutil.Text(right, content)
				for s := range allStates {
					if containsWord(rightText, s) {
						readsState = true
						break
					}
				}
			}
			pos := astutil.Pos(n)
			severity := model.SeverityMedium
			if readsState {
				severity = model.SeverityHigh
			}
			diags = append(diags, model.HookDiagnostic{
				File: file, Line: pos.Line, Column: pos.Column,
				Kind: model.KindPotentialIssue, ErrorCode: "RLD-600",
				Category: model.CategoryWarning, Severity: severity, Confidence: model.ConfidenceMedium,
				Explanation: "a ref is mutated directly in the render body",
				Suggestion:  "move this assignment into an effect, or derive the value without a ref",
			})
		}
		return true
	})
	return diags
}

func renderPhaseSetterDiagnostic(file string, call *sitter.Node, setter, state string, allStates map[string]bool, scope model.ComponentScope, content []byte) (model.HookDiagnostic, bool) {
	rec := guard.Analyze(guard.Input{
		Call: call, Boundary: scope.Body, Setter: setter, State: state,
		AllStates: allStates, Content: content,
	})
	pos := astutil.Pos(call)
	base := model.HookDiagnostic{
		File: file, Line: pos.Line, Column: pos.Column,
		ErrorCode: "RLD-100", StateVariable: state, SetterFunction: setter,
	}
	switch {
	case rec.IsSafe:
		return model.HookDiagnostic{}, false
	case rec.Kind == model.GuardNone:
		base.Kind = model.KindConfirmedLoop
		base.Category = model.CategoryCritical
		base.Severity = model.SeverityHigh
		base.Confidence = model.ConfidenceHigh
		base.Explanation = "a state setter is called unconditionally while the component renders, which re-triggers the render immediately"
		base.Suggestion = "move this call into an event handler or an effect with guarded dependencies"
		return base, true
	default:
		base.Kind = model.KindPotentialIssue
		base.Category = model.CategoryWarning
		base.Severity = model.SeverityMedium
		base.Confidence = model.ConfidenceMedium
		base.Explanation = "a state setter is called during render behind a guard that does not reliably prevent re-firing"
		base.Suggestion = "replace the guard with a derived-state comparison, or move the call out of render"
		return base, true
	}
}

func containsWord(text, name string) bool {
	for i := 0; i+len(name) <= len(text); i++ {
		if text[i:i+len(name)] == name {
			before := i == 0 || !isIdentChar(text[i-1])
			after := i+len(name) == len(text) || !isIdentChar(text[i+len(name)])
			if before && after {
				return true
			}
		}
	}
	return false
}

func isIdentChar(b byte) bool {
	return b == '_' || b == '$' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}
