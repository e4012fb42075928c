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

package translator

import (
	"github.com/crust-lang/crust/internal/cparse"
)

// fakeVarDecl and fakeFunc are the only two node shapes the fake parser
// hands out; translator.go never inspects a Node beyond what Parser's
// other methods extract from it, so a plain tagged struct is enough.
type fakeVarDecl struct {
	name string
	text string
}

func (f *fakeVarDecl) Kind() string      { return "declaration" }
func (f *fakeVarDecl) Span() cparse.Span { return cparse.Span{} }

type fakeFunc struct {
	name     string
	text     string
	callees  []string
	locals   []string
	globals  []string // global variable names this body references
}

func (f *fakeFunc) Kind() string      { return "function_definition" }
func (f *fakeFunc) Span() cparse.Span { return cparse.Span{} }

type fakeAST struct {
	source []byte
}

func (a *fakeAST) Source() []byte { return a.source }

// fakeParser is a hand-built Parser that skips C grammar entirely: a test
// constructs the variable declarations, function definitions, and call
// graph directly, and fakeParser just serves them back through the
// interface translator.go actually calls.
type fakeParser struct {
	vars  []*fakeVarDecl
	funcs []*fakeFunc
}

func (p *fakeParser) Parse(source []byte) (cparse.AST, error) {
	return &fakeAST{source: source}, nil
}

func (p *fakeParser) VariableDeclarations(ast cparse.AST) []cparse.Node {
	var out []cparse.Node
	for _, v := range p.vars {
		out = append(out, v)
	}
	return out
}

func (p *fakeParser) FunctionDefinitions(ast cparse.AST) []cparse.Node {
	var out []cparse.Node
	for _, f := range p.funcs {
		out = append(out, f)
	}
	return out
}

func (p *fakeParser) FunctionName(node cparse.Node) string {
	return node.(*fakeFunc).name
}

func (p *fakeParser) FunctionNameSpan(node cparse.Node) cparse.Span {
	return cparse.Span{}
}

func (p *fakeParser) VariableNames(node cparse.Node) []string {
	return []string{node.(*fakeVarDecl).name}
}

func (p *fakeParser) Callees(node cparse.Node) []cparse.Identifier {
	f := node.(*fakeFunc)
	var out []cparse.Identifier
	for _, c := range f.callees {
		out = append(out, cparse.Identifier{Name: c})
	}
	return out
}

func (p *fakeParser) Identifiers(node cparse.Node) []cparse.Identifier {
	f := node.(*fakeFunc)
	var out []cparse.Identifier
	for _, c := range f.callees {
		out = append(out, cparse.Identifier{Name: c})
	}
	for _, g := range f.globals {
		out = append(out, cparse.Identifier{Name: g})
	}
	return out
}

func (p *fakeParser) LocalVariables(node cparse.Node) []string {
	return node.(*fakeFunc).locals
}

func (p *fakeParser) NodeToString(node cparse.Node, ast cparse.AST) string {
	switch n := node.(type) {
	case *fakeVarDecl:
		return n.text
	case *fakeFunc:
		return n.text
	}
	return ""
}

// Replace ignores the edit spans (all zero in this fake) and just returns
// the node's stored text, so a test's fakeFunc.text is what the model
// fake sees as the renamed source.
func (p *fakeParser) Replace(node cparse.Node, ast cparse.AST, edits []cparse.Edit) (string, error) {
	return node.(*fakeFunc).text, nil
}
