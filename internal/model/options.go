package model

import "regexp"

// CustomFunctionHint is the per-name override an embedding caller supplies
// for a function the engine can't otherwise classify.
type CustomFunctionHint struct {
	Stable   *bool
	Deferred *bool
}

// TypeOracle is the optional, read-only, side-effect-free collaborator that
// answers type-driven stability questions the syntactic layer can't. A
// missing or erroring oracle must never be fatal: callers treat nil or an
// error identically to "unknown" (§6, §9).
type TypeOracle interface {
	TypeStableAt(file string, line int, identifier string) (known bool, stable bool)
	ReturnTypeStableAt(file string, line int, callee string) (known bool, stable bool)
}

// ImportResolver turns an import spec into an absolute path. The engine
// consults it for relative, absolute, and workspace-alias specs (§6).
type ImportResolver interface {
	Resolve(fromFile, spec string) (absPath string, ok bool)
	CanResolve(spec string) bool
}

// Options is threaded explicitly through every pipeline stage; there is no
// package-level global configuration anywhere in this module (§9).
type Options struct {
	StableHooks          []string
	UnstableHooks        []string
	StableHookPatterns   []string
	UnstableHookPatterns []string
	CustomFunctions      map[string]CustomFunctionHint
	StrictMode           bool
	TypeOracle           TypeOracle
	Resolver             ImportResolver
	Debug                bool

	compiledStablePatterns   []*regexp.Regexp
	compiledUnstablePatterns []*regexp.Regexp
	compiled                 bool
}

// Compile precompiles the regex pattern lists once. The orchestrator calls
// this exactly once per analyze() invocation; nothing else in the pipeline
// re-compiles patterns per file or per hook site.
func (o *Options) Compile() error {
	if o.compiled {
		return nil
	}
	for _, p := range o.StableHookPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return err
		}
		o.compiledStablePatterns = append(o.compiledStablePatterns, re)
	}
	for _, p := range o.UnstableHookPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return err
		}
		o.compiledUnstablePatterns = append(o.compiledUnstablePatterns, re)
	}
	o.compiled = true
	return nil
}

// StablePatterns returns the precompiled stable-hook regex list.
func (o *Options) StablePatterns() []*regexp.Regexp { return o.compiledStablePatterns }

// UnstablePatterns returns the precompiled unstable-hook regex list.
func (o *Options) UnstablePatterns() []*regexp.Regexp { return o.compiledUnstablePatterns }
