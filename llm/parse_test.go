package llm

import "testing"

func TestExtractName(t *testing.T) {
	cases := map[string]string{
		"`Foo`":                       "Foo",
		"The answer is `BarBaz`.":     "BarBaz",
		"no backticks here":           "no backticks here",
	}
	for input, want := range cases {
		if got := extractName(input); got != want {
			t.Errorf("extractName(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestExtractCodePicksLongestMatchingBlock(t *testing.T) {
	result := "Here is an explanation.\n```rust\nfn noop() {}\n```\nAnd a fuller version:\n```rust\nfn hello() -> i32 {\n    println!(\"hi\");\n    0\n}\n```\n"
	got, ok := extractCode(result, []string{"fn ", "unsafe fn "})
	if !ok {
		t.Fatal("expected extraction to succeed")
	}
	if got != "fn hello() -> i32 {\n    println!(\"hi\");\n    0\n}" {
		t.Fatalf("unexpected extraction: %q", got)
	}
}

func TestExtractCodeFiltersByPrefix(t *testing.T) {
	result := "```rust\nlet x = 1;\n```\n"
	_, ok := extractCode(result, []string{"fn ", "struct "})
	if ok {
		t.Fatal("expected no match since block has no qualifying prefix line")
	}
}

func TestExtractSignaturesNumbered(t *testing.T) {
	result := "Explanation:\nIt divides.\nSignatures:\n1. `fn divide(n: i32, d: i32) -> i32;`\n2. `fn divide(n: i32, d: i32) -> Option<i32>;`\n"
	sigs := extractSignatures(result)
	if len(sigs) != 2 {
		t.Fatalf("expected 2 signatures, got %v", sigs)
	}
	if sigs[0] != "fn divide(n: i32, d: i32) -> i32" {
		t.Fatalf("unexpected first signature: %q", sigs[0])
	}
}

func TestExtractSignaturesFallback(t *testing.T) {
	result := "Sure, here: `fn hello() -> i32;` or maybe `not a signature`"
	sigs := extractSignatures(result)
	if len(sigs) != 1 || sigs[0] != "fn hello() -> i32" {
		t.Fatalf("unexpected fallback signatures: %v", sigs)
	}
}

func TestCompareChoice(t *testing.T) {
	if compareChoice("Comparison:\n...\nChoice: Implementation 2") != 2 {
		t.Fatal("expected choice 2")
	}
	if compareChoice("Comparison:\n...\nChoice: Implementation 1") != 1 {
		t.Fatal("expected choice 1")
	}
	if compareChoice("no clear answer") != 0 {
		t.Fatal("expected 0 on unparsable reply")
	}
}

func TestNormalizeSignatureStripsUnsafeAndSemicolon(t *testing.T) {
	got := normalizeSignature("unsafe fn foo() -> i32;")
	if got != "fn foo() -> i32" {
		t.Fatalf("unexpected normalization: %q", got)
	}
}
