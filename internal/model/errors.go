package model

import (
	"fmt"
	"strings"
)

// sourceSnippet renders the source line at pos with a caret underneath,
// mirroring the teacher pack's CompilerError.Format (go-dws internal/errors).
func sourceSnippet(source, file string, pos Position) string {
	if source == "" {
		return ""
	}
	lines := strings.Split(source, "\n")
	if pos.Line < 1 || pos.Line > len(lines) {
		return ""
	}
	line := lines[pos.Line-1]
	var sb strings.Builder
	prefix := fmt.Sprintf("%4d | ", pos.Line)
	sb.WriteString(prefix)
	sb.WriteString(line)
	sb.WriteString("\n")
	col := pos.Column
	if col < 1 {
		col = 1
	}
	sb.WriteString(strings.Repeat(" ", len(prefix)+col-1))
	sb.WriteString("^")
	return sb.String()
}

// ParseError is returned by the parser facade when the external AST provider
// rejects a file. The orchestrator logs it and excludes the file (§4.1, §7).
type ParseError struct {
	File   string
	Reason string
	Pos    Position
	Source string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error in %s:%d:%d: %s", e.File, e.Pos.Line, e.Pos.Column, e.Reason)
}

// Format renders the error with a source-context snippet, when source is available.
func (e *ParseError) Format() string {
	snippet := sourceSnippet(e.Source, e.File, e.Pos)
	if snippet == "" {
		return e.Error()
	}
	return e.Error() + "\n" + snippet
}

// AnalysisError marks a bounded internal check (control-flow construction,
// guard analysis) that bailed out on an unusual AST shape. The affected
// check degrades to "unknown" locally; no other stage is affected (§7).
type AnalysisError struct {
	File   string
	Pos    Position
	Stage  string
	Reason string
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analysis degraded in %s:%d:%d during %s: %s", e.File, e.Pos.Line, e.Pos.Column, e.Stage, e.Reason)
}

// ResolveError marks an import spec that could not be turned into an
// absolute path. The cross-file phase simply misses that edge (§7).
type ResolveError struct {
	From string
	Spec string
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("cannot resolve import %q from %s", e.Spec, e.From)
}
