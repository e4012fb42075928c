/**
 * Copyright 2025 ByteDance Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package llm

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/crust-lang/crust/internal/cache"
)

// RenameType converts a C type name to Rust's CamelCase convention. If the
// name already looks correctly cased (leading upper, no underscore, at
// least one lowercase letter), the request is skipped entirely.
func (c *Client) RenameType(ctx context.Context, name string) (string, error) {
	if looksCamelCase(name) {
		return name, nil
	}
	msgs := append(append([]cache.Message{}, renameTypeFewShot...), usr(fmt.Sprintf("Convert `%s` to `CamelCase`.", name)))
	result, ok, err := c.sendRequest(ctx, msgs, nil)
	if err != nil {
		return "", err
	}
	if !ok {
		return name, nil
	}
	return extractName(result), nil
}

// RenameVariable converts a C variable name to Rust's
// SCREAMING_SNAKE_CASE convention for globals/constants.
func (c *Client) RenameVariable(ctx context.Context, name string) (string, error) {
	if !containsLower(name) {
		return name, nil
	}
	msgs := append(append([]cache.Message{}, renameVariableFewShot...), usr(fmt.Sprintf("Convert `%s` to `SCREAMING_SNAKE_CASE`.", name)))
	result, ok, err := c.sendRequest(ctx, msgs, nil)
	if err != nil {
		return "", err
	}
	if !ok {
		return name, nil
	}
	return strings.ReplaceAll(extractName(result), " ", "_"), nil
}

// RenameFunction converts a C function name to Rust's snake_case
// convention.
func (c *Client) RenameFunction(ctx context.Context, name string) (string, error) {
	if !containsUpper(name) {
		return name, nil
	}
	msgs := append(append([]cache.Message{}, renameFunctionFewShot...), usr(fmt.Sprintf("Convert `%s` to `snake_case`.", name)))
	result, ok, err := c.sendRequest(ctx, msgs, nil)
	if err != nil {
		return "", err
	}
	if !ok {
		return name, nil
	}
	return extractName(result), nil
}

// TranslateType asks for a Rust translation of a C type definition (sort
// is "struct", "union", "enum", or "typedef"). Returns ok=false if no
// fenced code block matching a type-definition prefix survives
// extraction.
func (c *Client) TranslateType(ctx context.Context, code, sort string, deps []string) (string, bool, error) {
	prompt := fmt.Sprintf(
		"%sTranslate the following C %s definition to Rust using Rust idioms without any explanation:\n```\n%s\n```\nTry to avoid unsafe code.",
		makeDeps(deps), sort, code,
	)
	msgs := []cache.Message{
		sys("You are a helpful assistant that translates C to Rust."),
		usr(prompt),
	}
	result, ok, err := c.sendRequest(ctx, msgs, nil)
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	code, ok := extractCode(result, []string{"type ", "struct ", "union ", "enum "})
	return code, ok, nil
}

// TranslateVariable asks for a Rust translation of a C global variable
// declaration.
func (c *Client) TranslateVariable(ctx context.Context, code string, deps []string) (string, bool, error) {
	prompt := fmt.Sprintf(
		"%sTranslate the following C global variable declaration to a Rust global variable declaration without any explanation:\n```\n%s\n```\nTry to avoid unsafe code.",
		makeDeps(deps), code,
	)
	msgs := []cache.Message{
		sys("You are a helpful assistant that translates C to Rust."),
		usr(prompt),
	}
	result, ok, err := c.sendRequest(ctx, msgs, nil)
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	code, ok := extractCode(result, []string{"const ", "static "})
	return code, ok, nil
}

// TranslateSignature asks for n candidate Rust signatures for a C
// function, given its already-renamed target name and dependency
// context. n must be in [1, 9].
func (c *Client) TranslateSignature(ctx context.Context, code, newName string, deps []string, n int) ([]string, error) {
	if n < 1 || n > 9 {
		return nil, fmt.Errorf("translate signature: n must be in [1, 9], got %d", n)
	}
	msgs := []cache.Message{
		sys("You are a helpful assistant."),
		usr(signaturePrompt(signatureExample1, "hello", []string{"const NAME: &str;"}, 3)),
		asst(signatureExample1Reply),
		usr(signaturePrompt(signatureExample2, "divide", []string{"const DIV_BY_ZERO: i32;"}, 3)),
		asst(signatureExample2Reply),
		usr(signaturePrompt(code, newName, deps, n)),
	}
	result, ok, err := c.sendRequest(ctx, msgs, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return extractSignatures(result), nil
}

// TranslateFunction asks for a Rust translation of a C function body,
// optionally pinned to start with a specific signature. Returns ok=false
// if no function-shaped code block survives extraction.
func (c *Client) TranslateFunction(ctx context.Context, code string, signature string, deps []string) (string, bool, error) {
	depsText := ""
	if len(deps) > 0 {
		verb := "s have"
		if len(deps) == 1 {
			verb = " has"
		}
		depsText = fmt.Sprintf("The following definition%s been translated from C to Rust already:\n```\n%s\n```\n", verb, strings.Join(deps, "\n"))
	}
	sigText := ""
	if signature != "" {
		sigText = fmt.Sprintf("Your answer must start with:\n```\n%s {\n```\n", signature)
	}
	prompt := fmt.Sprintf(
		"%sTranslate the following C function to Rust using Rust idioms without any explanation:\n```\n%s\n```\n%sTry to avoid unsafe code. Do not add `use` statements. Use full paths instead.",
		depsText, code, sigText,
	)
	msgs := []cache.Message{
		sys("You are a helpful assistant that translates C to Rust."),
		usr(prompt),
	}
	result, ok, err := c.sendRequest(ctx, msgs, nil)
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}

	body, ok := extractCode(result, []string{"fn ", "unsafe fn "})
	if !ok {
		trimmed := strings.TrimSpace(result)
		if strings.HasPrefix(trimmed, "fn ") || strings.HasPrefix(trimmed, "unsafe fn ") {
			body, ok = trimmed, true
		}
	}
	if !ok {
		return "", false, nil
	}
	return stripUnsafeFn(body), true, nil
}

// stripUnsafeFn rewrites every "unsafe fn " line prefix down to "fn ",
// since TranslateFunction is explicitly asked to avoid unsafe code but a
// model sometimes emits the unsafe qualifier out of habit.
func stripUnsafeFn(body string) string {
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		if rest, ok := strings.CutPrefix(line, "unsafe fn "); ok {
			lines[i] = "fn " + rest
		}
	}
	return strings.Join(lines, "\n")
}

// Fix asks the model to repair a single compiler error in a unit of Rust
// code, returning the corrected definition. Returns ok=false if no
// definition-shaped code block survives extraction.
func (c *Client) Fix(ctx context.Context, code, compileError string) (string, bool, error) {
	prompt := fmt.Sprintf(
		"The following Rust code has a compilation error:\n```\n%s\n```\nThe error message is:\n```\n%s\n```\nExplain the error first and then write the code of the fixed function.\n",
		code, compileError,
	)
	msgs := []cache.Message{
		sys("You are a helpful assistant."),
		usr(prompt),
	}
	result, ok, err := c.sendRequest(ctx, msgs, nil)
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	fixed, ok := extractCode(result, []string{"type ", "struct ", "union ", "enum ", "const ", "static ", "fn "})
	return fixed, ok, nil
}

// Compare asks the model to pick the more idiomatic of two Rust
// candidates. It returns -1 if code1 wins, 1 if code2 wins, 0 on a tie or
// an unparsable reply. If the combined size of both candidates exceeds
// compareTokenBudget, it short-circuits to a tie without spending a
// request, matching the original client's budget gate.
func (c *Client) Compare(ctx context.Context, code1, code2 string) (int, error) {
	if tokensInString(code1)+tokensInString(code2) > compareTokenBudget {
		return 0, nil
	}
	msgs := []cache.Message{
		sys("You are a helpful assistant."),
		usr(fmt.Sprintf(comparePromptTemplate, compareExample1, compareExample2)),
		asst(compareExampleReply),
		usr(fmt.Sprintf(comparePromptTemplate, code1, code2)),
	}
	result, ok, err := c.sendRequest(ctx, msgs, nil)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	switch compareChoice(result) {
	case 1:
		return -1, nil
	case 2:
		return 1, nil
	default:
		return 0, nil
	}
}

// tokensInString is a cheap token-count estimate (whitespace-delimited
// words), good enough for the Compare budget gate without pulling in a
// real tokenizer for a single heuristic.
func tokensInString(s string) int {
	return len(strings.Fields(s))
}

func looksCamelCase(name string) bool {
	if name == "" {
		return false
	}
	r := []rune(name)
	if !unicode.IsUpper(r[0]) {
		return false
	}
	if strings.ContainsRune(name, '_') {
		return false
	}
	return containsLower(name)
}

func containsLower(s string) bool {
	for _, r := range s {
		if unicode.IsLower(r) {
			return true
		}
	}
	return false
}

func containsUpper(s string) bool {
	for _, r := range s {
		if unicode.IsUpper(r) {
			return true
		}
	}
	return false
}
