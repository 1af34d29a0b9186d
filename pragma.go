package rld

import (
	"regexp"
	"strings"

	"rld/internal/model"
)

// pragmaPattern recognizes the three ignore-pragma spellings (§6). Order
// matters: "rld-ignore-next-line" must be tried before the shorter
// "rld-ignore" so a next-line marker is never mistaken for a same-line one.
var pragmaPattern = regexp.MustCompile(`rld-ignore-next-line|rld-ignore|rcd-ignore`)

// filterIgnored drops diagnostics suppressed by a same-line ignore pragma
// (on the diagnostic's own line) or a next-line pragma (on the line above
// it), optionally restricted to a specific error code. Both `//` and
// `/* ... */` comment forms are recognized since suppression is decided
// lexically, without caring what kind of comment carries the marker.
func filterIgnored(diags []model.HookDiagnostic, records map[string]*model.FileRecord) []model.HookDiagnostic {
	linesByFile := map[string][]string{}
	out := make([]model.HookDiagnostic, 0, len(diags))

	for _, d := range diags {
		lines, cached := linesByFile[d.File]
		if !cached {
			if rec, ok := records[d.File]; ok {
				lines = strings.Split(string(rec.Source), "\n")
			}
			linesByFile[d.File] = lines
		}
		if suppressed(lines, d.Line, d.ErrorCode) {
			continue
		}
		out = append(out, d)
	}
	return out
}

func suppressed(lines []string, line int, code string) bool {
	if line >= 1 && line <= len(lines) && lineSuppresses(lines[line-1], code, false) {
		return true
	}
	if line-2 >= 0 && line-2 < len(lines) && lineSuppresses(lines[line-2], code, true) {
		return true
	}
	return false
}

// lineSuppresses reports whether text carries an applicable ignore marker.
// checkingPriorLine distinguishes which marker spelling is relevant: the
// line above the diagnostic only suppresses via "-next-line", the
// diagnostic's own line only suppresses via the same-line spellings.
func lineSuppresses(text, code string, checkingPriorLine bool) bool {
	loc := pragmaPattern.FindStringIndex(text)
	if loc == nil {
		return false
	}
	marker := text[loc[0]:loc[1]]
	isNextLineMarker := marker == "rld-ignore-next-line"
	if isNextLineMarker != checkingPriorLine {
		return false
	}

	rest := text[loc[1]:]
	if end := strings.Index(rest, "*/"); end >= 0 {
		rest = rest[:end]
	}
	codes := strings.Fields(rest)
	if len(codes) == 0 {
		return true
	}
	for _, c := range codes {
		if strings.EqualFold(c, code) {
			return true
		}
	}
	return false
}
