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

// Package cparse is the C-parser surface the translator consumes: given a
// source file, it exposes variable declarations, function definitions,
// callee edges, and identifier spans, plus a way to splice edited text
// back into a node's span. It is implemented over go-tree-sitter's C
// grammar; the interface it implements (Parser) is what internal/translator
// actually depends on, so a different backend could be swapped in without
// touching the translator.
package cparse

// Span is a half-open byte range into a Source's text.
type Span struct {
	Start uint32
	End   uint32
}

// Identifier is a name occurrence together with its byte span, used for
// both call-site edges (Callees) and general identifier occurrences
// (Identifiers).
type Identifier struct {
	Name string
	Span Span
}

// Edit replaces the text at Span with Text. Replace applies a batch of
// edits to a node's source text in one pass, highest-offset first, so
// earlier edits don't invalidate later spans.
type Edit struct {
	Span Span
	Text string
}

// Node wraps one parsed syntax node together with a handle back to its
// backing AST, the minimum the translator needs to ask further questions
// about it (its name, its callees, its text).
type Node interface {
	// Kind is the grammar's node type string (e.g. "function_definition").
	Kind() string
	// Span is this node's full byte range in its AST's source.
	Span() Span
}

// AST is a parsed translation unit: the source bytes plus whatever
// backend-specific tree backs node lookups.
type AST interface {
	// Source is the original file content this AST was parsed from.
	Source() []byte
}

// Parser is the C-parser interface the translator is built against.
// Every method name here mirrors the consumed-interface contract this
// package's callers expect: get_variable_declarations, get_callees, and
// so on, translated into Go method names.
type Parser interface {
	// Parse builds an AST from C source text.
	Parse(source []byte) (AST, error)

	// VariableDeclarations returns every top-level global variable
	// declaration node in ast.
	VariableDeclarations(ast AST) []Node
	// FunctionDefinitions returns every function definition node in ast
	// (declarations without a body are not included).
	FunctionDefinitions(ast AST) []Node

	// FunctionName returns a function definition node's declared name.
	FunctionName(node Node) string
	// FunctionNameSpan returns the byte span of just the function's name
	// identifier, for targeted renaming.
	FunctionNameSpan(node Node) Span
	// VariableNames returns every name declared by a (possibly
	// multi-declarator) variable declaration node.
	VariableNames(node Node) []string

	// Callees returns every direct call-site identifier (name + span)
	// reachable from node, in source order.
	Callees(node Node) []Identifier
	// Identifiers returns every identifier occurrence in node, in source
	// order, including callees, variable reads, and type references.
	Identifiers(node Node) []Identifier
	// LocalVariables returns the names of variables declared within
	// node's own scope (parameters and locals), used to distinguish a
	// global reference from a shadowing local one.
	LocalVariables(node Node) []string

	// NodeToString renders node's exact source text.
	NodeToString(node Node, ast AST) string
	// Replace applies edits to node's source text and returns the
	// resulting string; edits must not overlap.
	Replace(node Node, ast AST, edits []Edit) (string, error)
}
