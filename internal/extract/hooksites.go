package extract

import (
	sitter "github.com/smacker/go-tree-sitter"

	"rld/internal/astutil"
	"rld/internal/model"
)

// hookKinds maps a hook call's last dotted segment to its HookKind (§3 Hook
// Site). Only these four names are ever treated as hook sites.
var hookKinds = map[string]model.HookKind{
	"useEffect":       model.HookEffect,
	"useLayoutEffect": model.HookLayoutEffect,
	"useCallback":     model.HookCallback,
	"useMemo":         model.HookMemo,
}

// HookSites walks scope's body for call expressions to a recognized hook,
// directly within the component (not inside a nested function — hooks are
// only ever called at a component's top level, so a call nested in another
// function-like node here is not a hook site for this component).
func HookSites(file string, scope model.ComponentScope, content []byte) []model.HookSite {
	if scope.Body == nil {
		return nil
	}
	var sites []model.HookSite
	astutil.Walk(scope.Body, func(n *sitter.Node) bool {
		if n != scope.Body && astutil.IsFunctionLike(n) {
			return false
		}
		if n.Type() != "call_expression" {
			return true
		}
		callee := astutil.LastSegment(astutil.CalleeName(n, content))
		kind, ok := hookKinds[callee]
		if !ok {
			return true
		}
		args := astutil.CallArgs(n)
		if len(args) == 0 {
			return true
		}
		pos := astutil.Pos(n)
		site := model.HookSite{
			File:      file,
			Line:      pos.Line,
			Column:    pos.Column,
			HookType:  kind,
			Body:      args[0],
			CallNode:  n,
			Component: &scope,
		}
		if len(args) >= 2 {
			site.Deps = args[len(args)-1]
			site.HasDeps = true
		}
		sites = append(sites, site)
		return true
	})
	return sites
}
