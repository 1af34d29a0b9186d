// Package model holds the data shapes shared by every stage of the render-loop
// analysis pipeline (parser facade, extractor, oracle, resolvers, analyzers,
// and the policy engine). It has no dependents inside the module other than
// the stages themselves and the root rld package, whose public API uses
// these types directly.
package model

import (
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

// Position is a 1-based source coordinate.
type Position struct {
	Line   int
	Column int
}

// Import is a single import declaration, resolved to an absolute path when
// the caller's ImportResolver could do so.
type Import struct {
	Spec     string // the raw import source string, e.g. "./useThing"
	Resolved string // absolute path, empty if unresolved
}

// FileRecord is the parsed representation of one source file, owned by the
// orchestrator for the lifetime of one analyze() call.
type FileRecord struct {
	Path    string
	Source  []byte
	Tree    *sitter.Tree // caller must Close() when done with the whole batch
	Root    *sitter.Node
	Imports []Import
}

// ComponentKind distinguishes the component keys this wraps.
type ComponentKind int

const (
	ComponentFunction ComponentKind = iota
	ComponentArrow
)

// ComponentScope is the lexical range of one component's body.
type ComponentScope struct {
	Name     string
	Kind     ComponentKind
	Node     *sitter.Node // the function/arrow expression node
	Body     *sitter.Node // the block statement body
	Wrapped  bool         // true if wrapped in memo()/forwardRef()
}

// StateBinding is a (state, setter) pair produced by a state-hook call.
type StateBinding struct {
	State  string
	Setter string
	Node   *sitter.Node // the useState(...) call expression
}

// RefBinding is an identifier produced by a ref-hook call.
type RefBinding struct {
	Name string
	Node *sitter.Node
}

// UnstableKind classifies why a locally declared value is unstable.
type UnstableKind int

const (
	UnstableObject UnstableKind = iota
	UnstableArray
	UnstableFunction
	UnstableCallResult
)

func (k UnstableKind) String() string {
	switch k {
	case UnstableObject:
		return "object"
	case UnstableArray:
		return "array"
	case UnstableFunction:
		return "function"
	case UnstableCallResult:
		return "function-call-result"
	default:
		return "unknown"
	}
}

// UnstableLocal is a component-scope binding that gets a new reference every render.
type UnstableLocal struct {
	Name string
	Kind UnstableKind
	Node *sitter.Node
}

// ComponentFacts is everything the State & Ref Extractor produces for one
// component scope.
type ComponentFacts struct {
	Scope      ComponentScope
	States     []StateBinding          // in declaration order
	Refs       []RefBinding
	Unstable   []UnstableLocal
	StateIndex map[string]string       // state name -> setter name
	SetterOf   map[string]string       // setter name -> state name (reverse)
	UnstableOf map[string]UnstableLocal // name -> unstable local
}

// HookKind is one of the four recognized hook families.
type HookKind int

const (
	HookEffect HookKind = iota
	HookLayoutEffect
	HookCallback
	HookMemo
)

func (k HookKind) String() string {
	switch k {
	case HookEffect:
		return "effect"
	case HookLayoutEffect:
		return "layout-effect"
	case HookCallback:
		return "callback"
	case HookMemo:
		return "memo"
	default:
		return "unknown"
	}
}

// IsEffectLike reports whether the hook re-runs on commit (effect/layout-effect).
func (k HookKind) IsEffectLike() bool {
	return k == HookEffect || k == HookLayoutEffect
}

// HookSite is one call expression to a recognized hook.
type HookSite struct {
	File      string
	Line      int
	Column    int
	HookType  HookKind
	Body      *sitter.Node // the callback argument
	Deps      *sitter.Node // the dependency-array argument, nil if absent
	HasDeps   bool
	CallNode  *sitter.Node
	Component *ComponentScope
}

// ID returns the hook-site-id used by the Cross-File Relation Builder:
// "<file>:<line>:<hook_name>".
func (h HookSite) ID() string {
	return fmt.Sprintf("%s:%d:%s", h.File, h.Line, h.HookType.String())
}

// SetterClass classifies one setter call's control-flow reachability.
type SetterClass int

const (
	SetterUnreachable SetterClass = iota
	SetterUnconditional
	SetterGuardedEffective
	SetterGuardedRisky
	SetterDeferred
	SetterCleanup
)

// GuardKind tags the lexical guard around a setter call.
type GuardKind int

const (
	GuardNone GuardKind = iota
	GuardDerivedState
	GuardInequality
	GuardNullCheck
	GuardFunctionalUpdate
	GuardObjectSpreadRisk
	GuardConditional
)

func (g GuardKind) String() string {
	switch g {
	case GuardDerivedState:
		return "equality-with-prev-prop"
	case GuardInequality:
		return "inequality"
	case GuardNullCheck:
		return "null-check"
	case GuardFunctionalUpdate:
		return "functional-update"
	case GuardObjectSpreadRisk:
		return "object-spread-risk"
	case GuardConditional:
		return "conditional"
	default:
		return "none"
	}
}

// GuardRecord describes the guard enclosing a setter call, or its absence.
type GuardRecord struct {
	Kind      GuardKind
	IsSafe    bool
	Rationale string
}

// DiagnosticKind is the outcome class of a hook-site evaluation.
type DiagnosticKind string

const (
	KindConfirmedLoop DiagnosticKind = "confirmed-infinite-loop"
	KindPotentialIssue DiagnosticKind = "potential-issue"
	KindSafePattern    DiagnosticKind = "safe-pattern"
)

// Category is the broad diagnostic bucket.
type Category string

const (
	CategoryCritical    Category = "critical"
	CategoryWarning     Category = "warning"
	CategoryPerformance Category = "performance"
	CategorySafe        Category = "safe"
)

// Severity is the diagnostic's reported severity.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Confidence encodes how sure the engine is of a non-safe diagnostic.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// HookDiagnostic is one reported finding.
type HookDiagnostic struct {
	File                 string
	Line                 int
	Column               int
	HookType             HookKind
	Kind                 DiagnosticKind
	ErrorCode            string
	Category             Category
	Severity             Severity
	Confidence           Confidence
	ProblematicDependency string
	StateVariable        string
	SetterFunction       string
	StateModifications   []string
	StateReads           []string
	Explanation          string
	Suggestion           string
	DebugInfo            string
}

// IdentityKey is the dedup/ordering key described in §3 and §8.3.
type IdentityKey struct {
	File      string
	Line      int
	ErrorCode string
	Dep       string
}

func (d HookDiagnostic) Identity() IdentityKey {
	return IdentityKey{File: d.File, Line: d.Line, ErrorCode: d.ErrorCode, Dep: d.ProblematicDependency}
}

// CrossFileSetterMap maps a hook-site-id to the setters reachable through
// call expressions that cross file boundaries (built by internal/relate).
type CrossFileSetterMap map[string][]string
