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
	"fmt"
	"strings"

	"github.com/crust-lang/crust/internal/cache"
)

// makeDeps renders the "the following definition(s) have been translated
// already" preamble prepended to most translate_* prompts, so the model
// sees already-committed Rust for anything the entity being translated
// now depends on.
func makeDeps(deps []string) string {
	if len(deps) == 0 {
		return ""
	}
	verb := "s have"
	if len(deps) == 1 {
		verb = " has"
	}
	return fmt.Sprintf("The following definition%s been translated from C to Rust already:\n```\n%s\n```\n", verb, strings.Join(deps, "\n"))
}

func signaturePrompt(code, newName string, deps []string, n int) string {
	var sigs strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&sigs, "%d. `signature`\n", i)
	}
	plural := "s"
	if n == 1 {
		plural = ""
	}
	return fmt.Sprintf(
		"%sConsider the following C function:\n```\n%s\n```\nIf this function was written in Rust with Rust idioms, what would be its signature?\nFirst, explain the function. Then, give %d Rust-idiomatic candidate signature%s.\nDo not add additional parameters to the signatures.\nThe answer format is:\n\nExplanation:\n[explanation]\nSignatures:\n%sEach signature must look like `fn %s(...);` or `fn %s(...) -> ...;`.",
		makeDeps(deps), code, n, plural, sigs.String(), newName, newName,
	)
}

func sys(content string) cache.Message     { return message("system", content) }
func usr(content string) cache.Message     { return message("user", content) }
func asst(content string) cache.Message    { return message("assistant", content) }

// renameTypeFewShot teaches the CamelCase convention Rust types use.
var renameTypeFewShot = []cache.Message{
	sys("You are a helpful assistant. Answer as concisely as possible."),
	usr("Convert `foo` to `CamelCase`."),
	asst("`Foo`"),
	usr("Convert `Bar` to `CamelCase`."),
	asst("`Bar`"),
	usr("Convert `foo_bar` to `CamelCase`."),
	asst("`FooBar`"),
	usr("Convert `barBaz` to `CamelCase`."),
	asst("`BarBaz`"),
}

// renameVariableFewShot teaches the SCREAMING_SNAKE_CASE convention Rust
// constants/statics use.
var renameVariableFewShot = []cache.Message{
	sys("You are a helpful assistant. Answer as concisely as possible."),
	usr("Convert `Foo` to `SCREAMING_SNAKE_CASE`."),
	asst("`FOO`"),
	usr("Convert `BAR` to `SCREAMING_SNAKE_CASE`."),
	asst("`BAR`"),
	usr("Convert `foo_bar` to `SCREAMING_SNAKE_CASE`."),
	asst("`FOO_BAR`"),
	usr("Convert `barBaz` to `SCREAMING_SNAKE_CASE`."),
	asst("`BAR_BAZ`"),
}

// renameFunctionFewShot teaches the snake_case convention Rust functions
// use.
var renameFunctionFewShot = []cache.Message{
	sys("You are a helpful assistant. Answer as concisely as possible."),
	usr("Convert `Foo` to `snake_case`."),
	asst("`foo`"),
	usr("Convert `BAR` to `snake_case`."),
	asst("`bar`"),
	usr("Convert `foo_bar` to `snake_case`."),
	asst("`foo_bar`"),
	usr("Convert `barBaz` to `snake_case`."),
	asst("`bar_baz`"),
}

const signatureExample1 = `int hello() {
    if (NAME == NULL) {
        return 1;
    }
    printf("Hello %s!\n", NAME);
    return 0;
}`

const signatureExample1Reply = "Explanation:\nThe function checks if the global constant `NAME` is `NULL` and returns `1` if it is. Otherwise, it prints a greeting message and returns `0`.\nSignatures:\n1. `fn hello() -> i32;`\n2. `fn hello() -> Option<()>;`\n3. `fn hello() -> Result<(), ()>;`"

const signatureExample2 = `int divide(int n, int d, int *q, int *r) {
    if (d == 0) {
        return DIV_BY_ZERO;
    }
    *q = n / d;
    *r = n % d;
    return 0;
}`

const signatureExample2Reply = "Explanation:\nThe function takes in two integers and two pointers to integers. It checks if the second integer is zero, and if so, returns an error code. Otherwise, it calculates the quotient and remainder of the division of the first integer by the second integer and stores them in the memory locations pointed to by the two pointers. Finally, it returns zero to indicate success.\nSignatures:\n1. `fn divide(n: i32, d: i32, q: &mut i32, r: &mut i32) -> i32;`\n2. `fn divide(n: i32, d: i32) -> Option<(i32, i32)>;`\n3. `fn divide(n: i32, d: i32) -> Result<(i32, i32), ()>;`"

const compareExample1 = `fn div(n: u32, d: u32) -> i32 {
    if d == 0 {
        return -1;
    }
    (n / d) as i32
}`

const compareExample2 = `fn div(n: u32, d: u32) -> Option<u32> {
    if d == 0 {
        return None;
    }
    Some(n / d)
}`

const compareExampleReply = "Comparison:\nBoth handle the case where the denominator is zero, but they do it differently. Implementation 1 returns -1, which is not a valid result for the division operation, while implementation 2 returns an Option type, which is a more idiomatic way of handling errors in Rust. Additionally, implementation 2 returns an unsigned integer instead of a signed integer, which is more appropriate for the result of a division operation.\nChoice: Implementation 2"

const comparePromptTemplate = "Consider two following Rust functions:\nImplementation 1\n```\n%s\n```\nImplementation 2\n```\n%s\n```\nWhich one is more Rust-idiomatic? Compare them and choose one.\nYour answer format is:\n\nComparison:\n[comparison]\nChoice: Implementation [n]"
