package detect

import (
	sitter "github.com/smacker/go-tree-sitter"

	"rld/internal/astutil"
	"rld/internal/flow"
	"rld/internal/model"
)

var unstableErrorCodes = map[model.UnstableKind]string{
	model.UnstableObject:     "RLD-400",
	model.UnstableArray:      "RLD-401",
	model.UnstableFunction:   "RLD-402",
	model.UnstableCallResult: "RLD-403",
}

// UnstableRefs implements §4.11: the first dependency-array element that
// resolves to a locally declared unstable value produces a diagnostic;
// later elements are not examined (first-hit wins).
func UnstableRefs(file string, site model.HookSite, facts model.ComponentFacts, content []byte) (model.HookDiagnostic, bool) {
	if !site.HasDeps || site.Deps == nil {
		return model.HookDiagnostic{}, false
	}
	for i := 0; i < int(site.Deps.NamedChildCount()); i++ {
		dep := site.Deps.NamedChild(i)
		if dep.Type() != "identifier" {
			continue
		}
		name := astutil.Text(dep, content)
		local, ok := facts.UnstableOf[name]
		if !ok {
			continue
		}
		return unstableRefDiagnostic(file, site, facts, name, local, content), true
	}
	return model.HookDiagnostic{}, false
}

func unstableRefDiagnostic(file string, site model.HookSite, facts model.ComponentFacts, name string, local model.UnstableLocal, content []byte) model.HookDiagnostic {
	base := model.HookDiagnostic{
		File: file, Line: site.Line, Column: site.Column, HookType: site.HookType,
		ErrorCode: unstableErrorCodes[local.Kind], ProblematicDependency: name,
		Explanation: "the dependency " + name + " is a new " + local.Kind.String() + " every render, so this hook re-runs every render",
		Suggestion:  "wrap the value in useMemo/useCallback, or hoist it out of the component",
	}

	if !site.HookType.IsEffectLike() {
		base.Kind = model.KindPotentialIssue
		base.Category = model.CategoryPerformance
		base.Severity = model.SeverityLow
		base.Confidence = model.ConfidenceMedium
		return base
	}

	if hasUnconditionalSetterCall(site, facts, content) {
		base.Kind = model.KindConfirmedLoop
		base.Category = model.CategoryCritical
		base.Severity = model.SeverityHigh
		base.Confidence = model.ConfidenceHigh
		// An unstable dependency that also feeds an unconditional setter call
		// is a confirmed render loop in its own right, not just a wasted
		// re-run — it gets the general effect-loop code, not the
		// unstable-dependency-specific one.
		if site.HookType == model.HookLayoutEffect {
			base.ErrorCode = "RLD-202"
		} else {
			base.ErrorCode = "RLD-200"
		}
		return base
	}

	base.Kind = model.KindPotentialIssue
	base.Category = model.CategoryPerformance
	base.Severity = model.SeverityLow
	base.Confidence = model.ConfidenceMedium
	return base
}

// hasUnconditionalSetterCall reports whether the hook body contains at least
// one known-setter call the Control-Flow Classifier reports as reachable and
// unconditional.
func hasUnconditionalSetterCall(site model.HookSite, facts model.ComponentFacts, content []byte) bool {
	body := site.Body
	if body != nil && body.Type() != "statement_block" {
		body = body.ChildByFieldName("body")
	}
	if body == nil {
		return false
	}
	found := false
	astutil.Walk(body, func(n *sitter.Node) bool {
		if found || n.Type() != "call_expression" {
			return !found
		}
		callee := astutil.LastSegment(astutil.CalleeName(n, content))
		if _, ok := facts.SetterOf[callee]; !ok {
			return true
		}
		cls, err := flow.Classify(n, body, content)
		if err == nil && cls.Reachable && cls.Unconditional {
			found = true
		}
		return !found
	})
	return found
}
