// Package stability implements the Stability Oracle (§4.3): whether an
// identifier, hook, or function-call result can be treated as referentially
// stable across renders. It layers built-in syntactic knowledge, the
// caller-supplied Options (explicit lists and regex patterns), and an
// optional external type oracle, in the precedence order §4.3 specifies.
package stability

import (
	"rld/internal/astutil"
	"rld/internal/model"
)

// builtinStableHooks are hook calls whose result React/this model guarantees
// referentially stable across renders when used as documented.
var builtinStableHooks = map[string]bool{
	"useRef":      true,
	"useCallback": true,
	"useMemo":     true,
	"useId":       true,
}

// eventListenerMethods are recognized without configuration (§4.3). Adding
// to this table requires no change anywhere else: every caller goes through
// IsEventListenerMethod.
var eventListenerMethods = map[string]bool{
	"addEventListener": true,
	"on":               true,
	"subscribe":        true,
	"then":             true,
	"catch":            true,
}

// asyncCallbackReceivers are recognized without configuration (§4.3).
// setTimeout/setInterval are treated like the rest: a setter call inside a
// callback handed to any of these receivers is classified as deferred
// (§4.8 Pass 1), whether or not the returned handle is later cleared.
var asyncCallbackReceivers = map[string]bool{
	"setTimeout":            true,
	"setInterval":           true,
	"onSnapshot":             true,
	"then":                   true,
	"catch":                  true,
	"finally":                true,
	"subscribe":              true,
	"requestAnimationFrame":  true,
	"requestIdleCallback":    true,
}

// Oracle answers stability questions for one analyze() call.
type Oracle struct {
	opts *model.Options
}

// New builds an Oracle over the given (already-compiled) Options.
func New(opts *model.Options) *Oracle {
	return &Oracle{opts: opts}
}

func (o *Oracle) explicitUnstable(name string) bool {
	for _, n := range o.opts.UnstableHooks {
		if n == name {
			return true
		}
	}
	if hint, ok := o.opts.CustomFunctions[name]; ok && hint.Stable != nil && !*hint.Stable {
		return true
	}
	return false
}

func (o *Oracle) explicitStable(name string) bool {
	for _, n := range o.opts.StableHooks {
		if n == name {
			return true
		}
	}
	if hint, ok := o.opts.CustomFunctions[name]; ok && hint.Stable != nil && *hint.Stable {
		return true
	}
	return false
}

func (o *Oracle) patternUnstable(name string) bool {
	for _, re := range o.opts.UnstablePatterns() {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

func (o *Oracle) patternStable(name string) bool {
	for _, re := range o.opts.StablePatterns() {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// IsStableHook reports whether name is known-stable by explicit list,
// pattern, or built-in knowledge. Precedence is explicit-unstable >
// explicit-stable > pattern (unstable before stable) > built-in.
func (o *Oracle) IsStableHook(name string) bool {
	name = astutil.LastSegment(name)
	if o.explicitUnstable(name) {
		return false
	}
	if o.explicitStable(name) {
		return true
	}
	if o.patternUnstable(name) {
		return false
	}
	if o.patternStable(name) {
		return true
	}
	return builtinStableHooks[name]
}

// IsUnstableHook is the complement used by callers that specifically want to
// know an explicit-or-pattern unstable override fired (as opposed to simply
// "not known stable").
func (o *Oracle) IsUnstableHook(name string) bool {
	name = astutil.LastSegment(name)
	if o.explicitUnstable(name) {
		return true
	}
	if o.explicitStable(name) {
		return false
	}
	return o.patternUnstable(name)
}

// IsStableFunction applies the same precedence chain to a plain (non-hook)
// function name, e.g. a locally defined helper the caller has vouched for
// via custom_functions.
func (o *Oracle) IsStableFunction(name string) bool {
	return o.IsStableHook(name)
}

// IsDeferredFunction reports whether calls nested in this function's
// callback argument should be treated as deferred (§4.8 Pass 1), either
// because the caller configured it via custom_functions or because it is one
// of the built-in async-callback receivers.
func (o *Oracle) IsDeferredFunction(name string) bool {
	name = astutil.LastSegment(name)
	if hint, ok := o.opts.CustomFunctions[name]; ok && hint.Deferred != nil {
		return *hint.Deferred
	}
	return IsAsyncCallbackReceiver(name)
}

// IsEventListenerMethod reports whether name is a built-in event-listener
// method (§4.3).
func IsEventListenerMethod(name string) bool {
	return eventListenerMethods[astutil.LastSegment(name)]
}

// IsAsyncCallbackReceiver reports whether name is a built-in async-callback
// receiver (§4.3).
func IsAsyncCallbackReceiver(name string) bool {
	return asyncCallbackReceivers[astutil.LastSegment(name)]
}

// CallResultStable classifies whether a call expression's result should be
// treated as stable, running the full precedence chain including the
// optional external type oracle (§4.3, §6). callee is the called function's
// name, and the type oracle is asked about its return type; identifier, the
// variable the call result is assigned to, is not consulted.
func (o *Oracle) CallResultStable(file string, line int, identifier, callee string) bool {
	callee = astutil.LastSegment(callee)
	if o.explicitUnstable(callee) {
		return false
	}
	if o.explicitStable(callee) {
		return true
	}
	if o.patternUnstable(callee) {
		return false
	}
	if o.patternStable(callee) {
		return true
	}
	if o.opts.TypeOracle != nil {
		if known, stable := o.opts.TypeOracle.ReturnTypeStableAt(file, line, callee); known {
			return stable
		}
	}
	// Syntactic default: only recognized stable hooks are presumed stable;
	// everything else is conservatively unstable.
	return builtinStableHooks[callee]
}

// IdentifierStable asks the optional external type oracle whether a plain
// identifier (not a call result) is stable at a given site, falling back to
// "unknown" (false, false) when no oracle is configured or it declines.
func (o *Oracle) IdentifierStable(file string, line int, identifier string) (known, stable bool) {
	if o.opts.TypeOracle == nil {
		return false, false
	}
	return o.opts.TypeOracle.TypeStableAt(file, line, identifier)
}
