package rld

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"go.uber.org/goleak"

	"rld/internal/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// scenario is one named end-to-end fixture under testdata/scenarios: a set
// of source files and the diagnostics analyzing them should produce.
type scenario struct {
	name  string
	files []FileInput
	want  []gjson.Result
}

func loadScenarios(t *testing.T) []scenario {
	t.Helper()
	matches, err := filepath.Glob("testdata/scenarios/*.json")
	require.NoError(t, err)
	require.NotEmpty(t, matches, "no scenario fixtures found")

	var out []scenario
	for _, path := range matches {
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		root := gjson.ParseBytes(data)

		var files []FileInput
		for _, f := range root.Get("files").Array() {
			files = append(files, FileInput{
				Path:   f.Get("path").String(),
				Source: []byte(f.Get("source").String()),
			})
		}
		out = append(out, scenario{
			name:  root.Get("name").String(),
			files: files,
			want:  root.Get("expect").Array(),
		})
	}
	return out
}

// matchesExpectation reports whether d satisfies every field named in exp -
// only fields present in the fixture are checked, so a scenario can assert
// as much or as little as it needs to.
func matchesExpectation(d model.HookDiagnostic, exp gjson.Result) bool {
	if v := exp.Get("errorCode"); v.Exists() && v.String() != d.ErrorCode {
		return false
	}
	if v := exp.Get("kind"); v.Exists() && v.String() != string(d.Kind) {
		return false
	}
	if v := exp.Get("category"); v.Exists() && v.String() != string(d.Category) {
		return false
	}
	if v := exp.Get("confidence"); v.Exists() && v.String() != string(d.Confidence) {
		return false
	}
	if v := exp.Get("dep"); v.Exists() && v.String() != d.ProblematicDependency {
		return false
	}
	if v := exp.Get("line"); v.Exists() && int(v.Int()) != d.Line {
		return false
	}
	return true
}

func TestScenarios(t *testing.T) {
	for _, sc := range loadScenarios(t) {
		sc := sc
		t.Run(sc.name, func(t *testing.T) {
			diags, err := Analyze(sc.files, model.Options{})
			require.NoError(t, err)
			assert.Len(t, diags, len(sc.want), "diagnostic count for %q: %+v", sc.name, diags)

			for _, exp := range sc.want {
				found := false
				for _, d := range diags {
					if matchesExpectation(d, exp) {
						found = true
						break
					}
				}
				assert.True(t, found, "expected diagnostic not found for %q: %s\ngot: %+v", sc.name, exp.Raw, diags)
			}
		})
	}
}

// TestIgnorePragmaRoundTrip covers §8's round-trip invariant: annotating
// every reported diagnostic's line with rld-ignore yields zero diagnostics,
// and removing the markers restores the original set exactly.
func TestIgnorePragmaRoundTrip(t *testing.T) {
	data, err := os.ReadFile("testdata/scenarios/01_unconditional_effect_loop.json")
	require.NoError(t, err)
	root := gjson.ParseBytes(data)

	source := root.Get("files.0.source").String()
	path := root.Get("files.0.path").String()

	original, err := Analyze([]FileInput{{Path: path, Source: []byte(source)}}, model.Options{})
	require.NoError(t, err)
	require.NotEmpty(t, original, "fixture must produce at least one diagnostic to exercise suppression")

	annotated := annotateWithIgnorePragma(source, original)

	// sjson records the derived fixture alongside the original, the same
	// round-trip shape a caller persisting annotated fixtures would produce.
	withAnnotated, err := sjson.SetBytes(data, "files.0.annotatedSource", annotated)
	require.NoError(t, err)
	annotatedSource := gjson.GetBytes(withAnnotated, "files.0.annotatedSource").String()

	suppressed, err := Analyze([]FileInput{{Path: path, Source: []byte(annotatedSource)}}, model.Options{})
	require.NoError(t, err)
	assert.Empty(t, suppressed, "every diagnostic line was annotated, so none should remain")

	restored, err := Analyze([]FileInput{{Path: path, Source: []byte(source)}}, model.Options{})
	require.NoError(t, err)
	assert.ElementsMatch(t, diagnosticCodes(original), diagnosticCodes(restored))
}

func annotateWithIgnorePragma(source string, diags []model.HookDiagnostic) string {
	lines := strings.Split(source, "\n")
	for _, d := range diags {
		if d.Line < 1 || d.Line > len(lines) {
			continue
		}
		lines[d.Line-1] += " // rld-ignore"
	}
	return strings.Join(lines, "\n")
}

func diagnosticCodes(diags []model.HookDiagnostic) []string {
	out := make([]string, len(diags))
	for i, d := range diags {
		out[i] = d.ErrorCode + "@" + strconv.Itoa(d.Line)
	}
	return out
}
