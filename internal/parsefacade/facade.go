// Package parsefacade wraps the external Tree-sitter AST provider behind the
// narrow contract the rest of the pipeline needs: an AST, the original
// source text, and the list of import declarations (§4.1). It is grounded on
// internal/world/typescript_parser.go from the teacher repo: one *sitter.Parser
// per grammar, selected by extension, ParseCtx, and a getText closure over
// the original byte slice.
package parsefacade

import (
	"context"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"rld/internal/model"
)

// Facade parses TypeScript/JavaScript source into model.FileRecord values.
type Facade struct {
	tsParser *sitter.Parser
	jsParser *sitter.Parser
}

// New creates a Facade with both grammars ready to use.
func New() *Facade {
	ts := sitter.NewParser()
	ts.SetLanguage(typescript.GetLanguage())
	js := sitter.NewParser()
	js.SetLanguage(javascript.GetLanguage())
	return &Facade{tsParser: ts, jsParser: js}
}

// Close releases both underlying parsers.
func (f *Facade) Close() {
	f.tsParser.Close()
	f.jsParser.Close()
}

func isJS(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".js", ".jsx", ".mjs", ".cjs":
		return true
	default:
		return false
	}
}

// Parse parses one file's content and returns its FileRecord. On a
// Tree-sitter error it returns *model.ParseError, per §4.1/§7; the caller
// (the orchestrator) is responsible for logging and skipping the file.
func (f *Facade) Parse(path string, content []byte) (*model.FileRecord, error) {
	parser := f.tsParser
	if isJS(path) {
		parser = f.jsParser
	}

	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, &model.ParseError{File: path, Reason: err.Error(), Source: string(content)}
	}

	root := tree.RootNode()
	if root != nil && root.Type() == "ERROR" {
		// Tree-sitter is error-tolerant: it returns a best-effort tree even
		// on malformed input. A root ERROR node means the file is not
		// meaningfully parseable; treat it the same as a hard parse failure.
		tree.Close()
		return nil, &model.ParseError{File: path, Reason: "file failed to parse", Source: string(content)}
	}

	rec := &model.FileRecord{
		Path:    path,
		Source:  content,
		Tree:    tree,
		Root:    root,
		Imports: extractImports(root, content),
	}
	return rec, nil
}

// GetText returns the original source text spanned by node.
func GetText(node *sitter.Node, content []byte) string {
	if node == nil {
		return ""
	}
	return string(content[node.StartByte():node.EndByte()])
}

// Position converts a Tree-sitter (0-based) point to the spec's 1-based Position.
func Position(node *sitter.Node) model.Position {
	if node == nil {
		return model.Position{}
	}
	p := node.StartPoint()
	return model.Position{Line: int(p.Row) + 1, Column: int(p.Column) + 1}
}

// extractImports walks the top level of the file for import declarations of
// the forms:
//   import X from "spec"; import {a, b} from "spec"; import * as X from "spec";
//   const X = require("spec");
func extractImports(root *sitter.Node, content []byte) []model.Import {
	if root == nil {
		return nil
	}
	var imports []model.Import
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		switch child.Type() {
		case "import_statement":
			if src := child.ChildByFieldName("source"); src != nil {
				imports = append(imports, model.Import{Spec: unquote(GetText(src, content))})
			}
		case "lexical_declaration", "variable_declaration":
			imports = append(imports, requireImports(child, content)...)
		}
	}
	return imports
}

// requireImports finds `const x = require("spec")` patterns within a
// variable declaration node.
func requireImports(decl *sitter.Node, content []byte) []model.Import {
	var out []model.Import
	for i := 0; i < int(decl.NamedChildCount()); i++ {
		declarator := decl.NamedChild(i)
		if declarator.Type() != "variable_declarator" {
			continue
		}
		value := declarator.ChildByFieldName("value")
		if value == nil || value.Type() != "call_expression" {
			continue
		}
		fn := value.ChildByFieldName("function")
		if fn == nil || GetText(fn, content) != "require" {
			continue
		}
		args := value.ChildByFieldName("arguments")
		if args == nil || args.NamedChildCount() == 0 {
			continue
		}
		out = append(out, model.Import{Spec: unquote(GetText(args.NamedChild(0), content))})
	}
	return out
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '`' && s[len(s)-1] == '`') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
