package detect

import (
	sitter "github.com/smacker/go-tree-sitter"

	"rld/internal/astutil"
	"rld/internal/model"
	"rld/internal/resolve"
)

// EffectWithoutDeps implements §4.10: for an effect/layout-effect hook
// called with only a callback argument (no dependency array), decides
// whether any known setter is reachable from the callback body — directly,
// through a locally defined function, or through a named-object method —
// and if so emits one confirmed-infinite-loop diagnostic, high-confidence
// for direct reachability and medium for indirect-only reachability.
func EffectWithoutDeps(file string, site model.HookSite, facts model.ComponentFacts, setters resolve.FileSetterMap, content []byte) (model.HookDiagnostic, bool) {
	if site.HasDeps || !site.HookType.IsEffectLike() {
		return model.HookDiagnostic{}, false
	}
	body := site.Body
	if body != nil && body.Type() != "statement_block" {
		body = body.ChildByFieldName("body")
	}
	if body == nil {
		return model.HookDiagnostic{}, false
	}

	direct := false
	indirect := false
	var setterHit string

	astutil.Walk(body, func(n *sitter.Node) bool {
		if n.Type() != "call_expression" {
			return true
		}
		callee := astutil.CalleeName(n, content)
		last := astutil.LastSegment(callee)

		if _, isSetter := facts.SetterOf[last]; isSetter {
			direct = true
			setterHit = last
			return true
		}
		if used, ok := setters.ByFunction[last]; ok && len(used) > 0 {
			indirect = true
			if setterHit == "" {
				setterHit = used[0]
			}
			return true
		}
		if callee != last {
			if used, ok := setters.ByMethod[callee]; ok && len(used) > 0 {
				indirect = true
				if setterHit == "" {
					setterHit = used[0]
				}
			}
		}
		return true
	})

	if !direct && !indirect {
		return model.HookDiagnostic{}, false
	}

	confidence := model.ConfidenceMedium
	if direct {
		confidence = model.ConfidenceHigh
	}

	return model.HookDiagnostic{
		File: file, Line: site.Line, Column: site.Column, HookType: site.HookType,
		Kind: model.KindConfirmedLoop, ErrorCode: "RLD-201",
		Category: model.CategoryCritical, Severity: model.SeverityHigh, Confidence: confidence,
		SetterFunction: setterHit,
		Explanation:    "this effect has no dependency array and its callback can reach a state setter, so it runs and re-renders on every commit",
		Suggestion:     "add a dependency array, even an empty one, or remove the setter call",
	}, true
}
