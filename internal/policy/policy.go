// Package policy implements the Hook Site Analyzer (§4.12): the precedence-
// ordered decision tree that turns one hook site's extracted facts, effect
// interactions, and cross-file reachability into at most one diagnostic.
// Ignore-pragma suppression (§4.12 step 1) is applied afterward, across
// every diagnostic the engine collects, rather than threaded through this
// decision tree — see the root package's pragma filtering and the Open
// Questions entry in DESIGN.md.
package policy

import (
	"rld/internal/detect"
	"rld/internal/effect"
	"rld/internal/model"
)

// Input bundles everything the policy engine needs about one hook site.
type Input struct {
	File             string
	Site             model.HookSite
	Facts            model.ComponentFacts
	Effect           effect.Facts
	CrossFileSetters model.CrossFileSetterMap
	Content          []byte
}

// Decide runs the §4.12 precedence chain for one hook site.
func Decide(in Input) (model.HookDiagnostic, bool) {
	// Step 2: structural precondition. The missing-deps-array case is the
	// Effect-Without-Deps Detector's job (§4.10), not this engine's.
	if !in.Site.HasDeps {
		return model.HookDiagnostic{}, false
	}

	// Step 3: unstable references, first-hit-wins, short-circuits everything
	// below.
	if d, ok := detect.UnstableRefs(in.File, in.Site, in.Facts, in.Content); ok {
		return d, true
	}

	crossFile := in.CrossFileSetters[in.Site.ID()]

	// Step 4: walk the dependency array in order; the first dependency that
	// maps to a state variable and matches a rule decides the hook site.
	deps := dependencyIdentifiers(in.Site, in.Content)
	for _, depName := range deps {
		setter, isState := in.Facts.StateIndex[depName]
		if !isState {
			continue
		}
		if d, ok, terminate := decideDependency(in, depName, setter, crossFile); terminate {
			if ok {
				d.ProblematicDependency = depName
			}
			return d, ok
		}
		// "continue to next dependency" (step 4.f): fall through the loop.
	}

	// Step 5: ref mutations writing state values, where the ref itself is in
	// the dependency array, in an effect-kind hook.
	if in.Site.HookType.IsEffectLike() {
		depSet := make(map[string]bool, len(deps))
		for _, d := range deps {
			depSet[d] = true
		}
		for _, rm := range in.Effect.RefMutations {
			if rm.ReadsState && depSet[rm.Ref] {
				return model.HookDiagnostic{
					File: in.File, Line: in.Site.Line, Column: in.Site.Column, HookType: in.Site.HookType,
					Kind: model.KindPotentialIssue, ErrorCode: "RLD-600",
					Category: model.CategoryWarning, Severity: model.SeverityLow, Confidence: model.ConfidenceLow,
					ProblematicDependency: rm.Ref,
					Explanation:            "a ref holding a state-derived value is also listed as a dependency, so its identity never changes and the dependency is vestigial",
					Suggestion:             "drop the ref from the dependency array, or depend on the state value directly",
				}, true
			}
		}
	}

	// Step 6.
	return model.HookDiagnostic{}, false
}

// decideDependency implements §4.12 step 4, sub-steps a-n, for one
// state-mapped dependency. terminate reports whether the per-hook-site
// decision is final (either with or without a diagnostic); when terminate is
// false the caller proceeds to the next dependency (sub-step f, or no
// sub-step applied to this dependency at all).
func decideDependency(in Input, state, setter string, crossFile []string) (model.HookDiagnostic, bool, bool) {
	mods := in.Effect.Modifications[setter]
	effectLike := in.Site.HookType.IsEffectLike()

	// a/g: any direct modification with an effective (safe) guard. A
	// functional-update "guard" is carved out here even though the Guard
	// Analyzer marks it safe, so it is not reported as a safe-pattern. Such a
	// modification carries no flow classification (the Effect Interaction
	// Analyzer only runs the classifier for absent or unsafe guards), so it
	// reaches f below and the loop moves on to the next dependency. j/k see
	// the functional updates the Guard Analyzer did not mark safe.
	for _, m := range mods {
		if !m.Deferred && !m.Cleanup && m.Guard.IsSafe && m.Guard.Kind != model.GuardFunctionalUpdate {
			return safePattern(in), true, true
		}
	}

	// b: object-spread-risk guard.
	for _, m := range mods {
		if m.Guard.Kind == model.GuardObjectSpreadRisk {
			return model.HookDiagnostic{
				File: in.File, Line: in.Site.Line, Column: in.Site.Column, HookType: in.Site.HookType,
				Kind: model.KindPotentialIssue, ErrorCode: "RLD-410",
				Category: model.CategoryWarning, Severity: model.SeverityMedium, Confidence: model.ConfidenceMedium,
				StateVariable: state, SetterFunction: setter,
				Explanation: "the guard checks one field of the state object, but the setter replaces the whole object every call",
				Suggestion:  "compare the specific field the guard checks, not the object's identity",
			}, true, true
		}
	}

	// c: the setter is present only as a function reference (handed to an
	// event listener, never invoked directly in this hook).
	if _, isRef := in.Effect.FunctionReferences[setter]; isRef && len(mods) == 0 {
		return safePattern(in), true, true
	}

	// d: deferred.
	for _, m := range mods {
		if m.Deferred {
			return safePattern(in), true, true
		}
	}

	// e: cleanup, effect-kind hook.
	if effectLike {
		for _, m := range mods {
			if m.Cleanup {
				return confirmedLoop(in, effectLoopCode(in), state, setter, "the cleanup function sets state that re-triggers this effect, which re-installs the cleanup and loops"), true, true
			}
		}
	}

	direct := directModifications(mods)

	// f: direct modifications exist but the classifier reports none reachable
	// — continue to the next dependency instead of deciding this hook site.
	// A modification whose flow could not be classified is not treated as
	// unreachable; it is left to n.
	if len(direct) > 0 && !anyReachable(direct) && !anyUnknown(direct) {
		return model.HookDiagnostic{}, false, false
	}

	if len(direct) > 0 {
		// h/i: effect-kind hooks escalate on unconditional vs. conditional.
		if effectLike {
			if anyUnconditional(direct) {
				return confirmedLoop(in, effectLoopCode(in), state, setter, "this effect unconditionally sets state that is also one of its own dependencies"), true, true
			}
			if anyReachable(direct) {
				return model.HookDiagnostic{
					File: in.File, Line: in.Site.Line, Column: in.Site.Column, HookType: in.Site.HookType,
					Kind: model.KindPotentialIssue, ErrorCode: "RLD-501",
					Category: model.CategoryWarning, Severity: model.SeverityMedium, Confidence: model.ConfidenceMedium,
					StateVariable: state, SetterFunction: setter,
					Explanation: "this effect conditionally sets state that is also one of its own dependencies",
					Suggestion:  "confirm the condition always becomes false, or restructure so the setter isn't reachable from this effect",
				}, true, true
			}
		} else {
			// j/k: callback/memo hooks.
			if anyFunctionalUpdate(direct) {
				return model.HookDiagnostic{}, false, true
			}
			return model.HookDiagnostic{
				File: in.File, Line: in.Site.Line, Column: in.Site.Column, HookType: in.Site.HookType,
				Kind: model.KindPotentialIssue, ErrorCode: "RLD-420",
				Category: model.CategoryWarning, Severity: model.SeverityLow, Confidence: model.ConfidenceLow,
				StateVariable: state, SetterFunction: setter,
				Explanation: "this memoized callback sets state that is also one of its dependencies, without a functional update",
				Suggestion:  "use the functional-update form of the setter so the callback doesn't need the state as a dependency",
			}, true, true
		}
	}

	// l/m: cross-file reachability.
	if containsStr(crossFile, setter) {
		if effectLike {
			return confirmedLoop(in, "RLD-300", state, setter, "this effect indirectly sets state that is also a dependency, through a call into another file"), true, true
		}
		return model.HookDiagnostic{
			File: in.File, Line: in.Site.Line, Column: in.Site.Column, HookType: in.Site.HookType,
			Kind: model.KindPotentialIssue, ErrorCode: "RLD-301",
			Category: model.CategoryWarning, Severity: model.SeverityLow, Confidence: model.ConfidenceMedium,
			StateVariable: state, SetterFunction: setter,
			Explanation: "this memoized callback indirectly sets state that is also a dependency, through a call into another file",
			Suggestion:  "trace the cross-file call chain and break the dependency, or guard the setter at its source",
		}, true, true
	}

	// n: a modification was recorded but none of the above applied (e.g. the
	// Control-Flow Classifier could not decide reachability).
	if anyUnknown(mods) {
		if effectLike {
			return model.HookDiagnostic{
				File: in.File, Line: in.Site.Line, Column: in.Site.Column, HookType: in.Site.HookType,
				Kind: model.KindPotentialIssue, ErrorCode: "RLD-501",
				Category: model.CategoryWarning, Severity: model.SeverityLow, Confidence: model.ConfidenceLow,
				StateVariable: state, SetterFunction: setter,
				Explanation: "this effect may set state that is also one of its dependencies, but its control flow could not be fully classified",
				Suggestion:  "simplify the surrounding control flow so reachability can be confirmed",
			}, true, true
		}
		return model.HookDiagnostic{}, false, true
	}

	return model.HookDiagnostic{}, false, false
}

func dependencyIdentifiers(site model.HookSite, content []byte) []string {
	if site.Deps == nil {
		return nil
	}
	out := make([]string, 0, site.Deps.NamedChildCount())
	for i := 0; i < int(site.Deps.NamedChildCount()); i++ {
		dep := site.Deps.NamedChild(i)
		if dep.Type() != "identifier" {
			continue
		}
		out = append(out, string(content[dep.StartByte():dep.EndByte()]))
	}
	return out
}

func directModifications(mods []effect.Modification) []effect.Modification {
	var out []effect.Modification
	for _, m := range mods {
		if !m.Deferred && !m.Cleanup {
			out = append(out, m)
		}
	}
	return out
}

func anyReachable(mods []effect.Modification) bool {
	for _, m := range mods {
		if m.Flow.Reachable {
			return true
		}
	}
	return false
}

func anyUnconditional(mods []effect.Modification) bool {
	for _, m := range mods {
		if m.Flow.Reachable && m.Flow.Unconditional {
			return true
		}
	}
	return false
}

func anyFunctionalUpdate(mods []effect.Modification) bool {
	for _, m := range mods {
		if m.FunctionalUpdate {
			return true
		}
	}
	return false
}

func anyUnknown(mods []effect.Modification) bool {
	for _, m := range mods {
		if m.FlowUnknown {
			return true
		}
	}
	return false
}

func containsStr(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func safePattern(in Input) model.HookDiagnostic {
	return model.HookDiagnostic{
		File: in.File, Line: in.Site.Line, Column: in.Site.Column, HookType: in.Site.HookType,
		Kind: model.KindSafePattern, Category: model.CategorySafe, Confidence: model.ConfidenceHigh,
	}
}

func effectLoopCode(in Input) string {
	if in.Site.HookType == model.HookLayoutEffect {
		return "RLD-202"
	}
	return "RLD-200"
}

func confirmedLoop(in Input, code, state, setter, explanation string) model.HookDiagnostic {
	return model.HookDiagnostic{
		File: in.File, Line: in.Site.Line, Column: in.Site.Column, HookType: in.Site.HookType,
		Kind: model.KindConfirmedLoop, ErrorCode: code,
		Category: model.CategoryCritical, Severity: model.SeverityHigh, Confidence: model.ConfidenceHigh,
		StateVariable: state, SetterFunction: setter,
		Explanation: explanation,
		Suggestion:  "guard the setter so it only fires when the dependency actually changes",
	}
}
