// Copyright 2025 ByteDance Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cparse

import (
	"context"
	"sort"

	sitter "github.com/smacker/go-tree-sitter"
	sitterc "github.com/smacker/go-tree-sitter/c"

	"github.com/crust-lang/crust/internal/errs"
)

// TreeSitterParser implements Parser over go-tree-sitter's C grammar.
type TreeSitterParser struct{}

// NewTreeSitterParser returns the default, and only shipped, Parser
// implementation.
func NewTreeSitterParser() *TreeSitterParser {
	return &TreeSitterParser{}
}

type tsAST struct {
	source []byte
	tree   *sitter.Tree
	root   *sitter.Node
}

func (a *tsAST) Source() []byte { return a.source }

// tsNode wraps a tree-sitter node together with the source bytes it was
// parsed from, since go-tree-sitter nodes only render their own text
// given the original buffer (Node.Content(source)).
type tsNode struct {
	n      *sitter.Node
	source []byte
}

func (n *tsNode) Kind() string { return n.n.Type() }
func (n *tsNode) Span() Span   { return Span{Start: n.n.StartByte(), End: n.n.EndByte()} }
func (n *tsNode) text() string { return n.n.Content(n.source) }

func wrap(n *sitter.Node, source []byte) Node {
	if n == nil {
		return nil
	}
	return &tsNode{n: n, source: source}
}

func unwrap(node Node) *tsNode {
	tn, ok := node.(*tsNode)
	if !ok {
		return nil
	}
	return tn
}

// Parse parses source as a C translation unit.
func (p *TreeSitterParser) Parse(source []byte) (AST, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(sitterc.GetLanguage())
	tree, err := parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return nil, errs.Wrap(err, "parse C source")
	}
	return &tsAST{source: source, tree: tree, root: tree.RootNode()}, nil
}

// VariableDeclarations returns every top-level `declaration` node: a
// global `type name = init;` with no function body.
func (p *TreeSitterParser) VariableDeclarations(ast AST) []Node {
	a := ast.(*tsAST)
	var out []Node
	for i := 0; i < int(a.root.ChildCount()); i++ {
		child := a.root.Child(i)
		if child != nil && child.Type() == "declaration" {
			out = append(out, wrap(child, a.source))
		}
	}
	return out
}

// FunctionDefinitions returns every top-level `function_definition` node.
func (p *TreeSitterParser) FunctionDefinitions(ast AST) []Node {
	a := ast.(*tsAST)
	var out []Node
	for i := 0; i < int(a.root.ChildCount()); i++ {
		child := a.root.Child(i)
		if child != nil && child.Type() == "function_definition" {
			out = append(out, wrap(child, a.source))
		}
	}
	return out
}

// FunctionName extracts a function_definition node's declared identifier,
// descending through pointer/array declarators to find the leaf name.
func (p *TreeSitterParser) FunctionName(node Node) string {
	tn := unwrap(node)
	declarator := tn.n.ChildByFieldName("declarator")
	id := innermostIdentifier(declarator)
	if id == nil {
		return ""
	}
	return id.Content(tn.source)
}

// FunctionNameSpan returns the span of the function's name identifier.
func (p *TreeSitterParser) FunctionNameSpan(node Node) Span {
	tn := unwrap(node)
	declarator := tn.n.ChildByFieldName("declarator")
	id := innermostIdentifier(declarator)
	if id == nil {
		return Span{}
	}
	return Span{Start: id.StartByte(), End: id.EndByte()}
}

// VariableNames extracts every declared name from a (possibly
// multi-declarator) declaration node.
func (p *TreeSitterParser) VariableNames(node Node) []string {
	tn := unwrap(node)
	var names []string

	collect := func(declarator *sitter.Node) {
		if id := innermostIdentifier(declarator); id != nil {
			names = append(names, id.Content(tn.source))
		}
	}

	if d := tn.n.ChildByFieldName("declarator"); d != nil {
		collect(d)
	}
	var walk func(*sitter.Node)
	walk = func(cur *sitter.Node) {
		if cur == nil {
			return
		}
		if cur.Type() == "init_declarator" {
			if d := cur.ChildByFieldName("declarator"); d != nil {
				collect(d)
			}
			return
		}
		for i := 0; i < int(cur.ChildCount()); i++ {
			walk(cur.Child(i))
		}
	}
	walk(tn.n)
	return dedupStrings(names)
}

// Callees returns every call-expression's function identifier beneath
// node, in source order.
func (p *TreeSitterParser) Callees(node Node) []Identifier {
	tn := unwrap(node)
	var out []Identifier
	var walk func(*sitter.Node)
	walk = func(cur *sitter.Node) {
		if cur == nil {
			return
		}
		if cur.Type() == "call_expression" {
			if fn := cur.ChildByFieldName("function"); fn != nil && fn.Type() == "identifier" {
				out = append(out, Identifier{Name: fn.Content(tn.source), Span: Span{Start: fn.StartByte(), End: fn.EndByte()}})
			}
		}
		for i := 0; i < int(cur.ChildCount()); i++ {
			walk(cur.Child(i))
		}
	}
	walk(tn.n)
	sort.Slice(out, func(i, j int) bool { return out[i].Span.Start < out[j].Span.Start })
	return out
}

// Identifiers returns every bare identifier occurrence beneath node, in
// source order.
func (p *TreeSitterParser) Identifiers(node Node) []Identifier {
	tn := unwrap(node)
	var out []Identifier
	var walk func(*sitter.Node)
	walk = func(cur *sitter.Node) {
		if cur == nil {
			return
		}
		if cur.Type() == "identifier" {
			out = append(out, Identifier{Name: cur.Content(tn.source), Span: Span{Start: cur.StartByte(), End: cur.EndByte()}})
		}
		for i := 0; i < int(cur.ChildCount()); i++ {
			walk(cur.Child(i))
		}
	}
	walk(tn.n)
	return out
}

// LocalVariables returns the names of node's own parameters and local
// declarations.
func (p *TreeSitterParser) LocalVariables(node Node) []string {
	tn := unwrap(node)
	var names []string

	if declarator := tn.n.ChildByFieldName("declarator"); declarator != nil {
		var findParams func(*sitter.Node)
		findParams = func(cur *sitter.Node) {
			if cur == nil {
				return
			}
			if cur.Type() == "parameter_declaration" {
				if d := cur.ChildByFieldName("declarator"); d != nil {
					if id := innermostIdentifier(d); id != nil {
						names = append(names, id.Content(tn.source))
					}
				}
			}
			for i := 0; i < int(cur.ChildCount()); i++ {
				findParams(cur.Child(i))
			}
		}
		findParams(declarator)
	}

	if body := tn.n.ChildByFieldName("body"); body != nil {
		var walk func(*sitter.Node)
		walk = func(cur *sitter.Node) {
			if cur == nil {
				return
			}
			if cur.Type() == "declaration" {
				names = append(names, p.VariableNames(wrap(cur, tn.source))...)
			}
			for i := 0; i < int(cur.ChildCount()); i++ {
				walk(cur.Child(i))
			}
		}
		walk(body)
	}

	return dedupStrings(names)
}

// NodeToString renders node's exact source text from ast's backing bytes.
func (p *TreeSitterParser) NodeToString(node Node, ast AST) string {
	return unwrap(node).text()
}

// Replace applies edits to node's text, highest offset first so earlier
// spans don't shift under later ones.
func (p *TreeSitterParser) Replace(node Node, ast AST, edits []Edit) (string, error) {
	tn := unwrap(node)
	text := tn.text()
	base := tn.n.StartByte()

	sorted := make([]Edit, len(edits))
	copy(sorted, edits)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Span.Start > sorted[j].Span.Start })

	b := []byte(text)
	for _, e := range sorted {
		if e.Span.Start < base || e.Span.End < e.Span.Start || int(e.Span.End-base) > len(b) {
			return "", errs.Errorf("replace: edit span %v out of bounds for node span starting at %d", e.Span, base)
		}
		start := e.Span.Start - base
		end := e.Span.End - base
		merged := append([]byte{}, b[:start]...)
		merged = append(merged, []byte(e.Text)...)
		merged = append(merged, b[end:]...)
		b = merged
	}
	return string(b), nil
}

// innermostIdentifier descends through pointer/array/parenthesized
// declarators to find the leaf `identifier` node naming the declaration.
func innermostIdentifier(n *sitter.Node) *sitter.Node {
	if n == nil {
		return nil
	}
	switch n.Type() {
	case "identifier":
		return n
	case "pointer_declarator", "array_declarator", "parenthesized_declarator", "function_declarator", "init_declarator":
		if d := n.ChildByFieldName("declarator"); d != nil {
			return innermostIdentifier(d)
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			if id := innermostIdentifier(n.Child(i)); id != nil {
				return id
			}
		}
		return nil
	default:
		for i := 0; i < int(n.ChildCount()); i++ {
			if id := innermostIdentifier(n.Child(i)); id != nil {
				return id
			}
		}
		return nil
	}
}

func dedupStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
