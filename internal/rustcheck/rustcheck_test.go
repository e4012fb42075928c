package rustcheck

import (
	"reflect"
	"testing"
)

func TestParseGlobalVariable(t *testing.T) {
	src := `
pub const MAX_SIZE: usize = 128;
static mut COUNTER: i32 = 0;
fn not_a_global() {}
`
	got := ParseGlobalVariable(src)
	want := [][2]string{
		{"MAX_SIZE", "usize"},
		{"COUNTER", "i32"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ParseGlobalVariable = %v, want %v", got, want)
	}
}

func TestParseSignatureSimple(t *testing.T) {
	sig, canonical, err := ParseSignature("pub fn add(a: i32, b: i32) -> i32 {")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(sig.ParamTypes, []string{"i32", "i32"}) {
		t.Fatalf("ParamTypes = %v", sig.ParamTypes)
	}
	if sig.ReturnType != "i32" {
		t.Fatalf("ReturnType = %q", sig.ReturnType)
	}
	if canonical != "fn add(a: i32, b: i32) -> i32" {
		t.Fatalf("canonical = %q", canonical)
	}
}

func TestParseSignatureNoReturnType(t *testing.T) {
	sig, _, err := ParseSignature("fn log(msg: &str) {")
	if err != nil {
		t.Fatal(err)
	}
	if sig.ReturnType != "()" {
		t.Fatalf("expected unit return type, got %q", sig.ReturnType)
	}
}

func TestParseSignatureIgnoresParamNamesForEquality(t *testing.T) {
	sigA, _, err := ParseSignature("fn f(x: i32, y: Vec<u8>) -> bool {")
	if err != nil {
		t.Fatal(err)
	}
	sigB, _, err := ParseSignature("fn g(m: i32, n: Vec<u8>) -> bool {")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(sigA, sigB) {
		t.Fatalf("expected equal structural signatures: %v vs %v", sigA, sigB)
	}
}

func TestParseSignatureRejectsNonSignature(t *testing.T) {
	if _, _, err := ParseSignature("let x = 5;"); err == nil {
		t.Fatal("expected error for non-signature text")
	}
}

func TestSplitTopLevelCommasHandlesGenerics(t *testing.T) {
	got := splitTopLevelCommas("a: Vec<u8>, b: HashMap<String, i32>, c: i32")
	want := []string{"a: Vec<u8>", " b: HashMap<String, i32>", " c: i32"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("splitTopLevelCommas = %v, want %v", got, want)
	}
}

func TestApplySuggestionsPatchesHighestOffsetFirst(t *testing.T) {
	src := "fn foo(a: i32) -> i32 { a }"
	result := Result{
		Suggestions: []Suggestion{
			{StartByte: 7, EndByte: 13, Replace: "a: i64"},
			{StartByte: 18, EndByte: 21, Replace: "i64"},
		},
	}
	patched, residual := ApplySuggestions(src, result)
	want := "fn foo(a: i64) -> i64 { a }"
	if patched != want {
		t.Fatalf("patched = %q, want %q", patched, want)
	}
	if len(residual) != 0 {
		t.Fatalf("expected no residual, got %v", residual)
	}
}

func TestApplySuggestionsNoSuggestionsReturnsAllErrors(t *testing.T) {
	result := Result{Errors: []Diagnostic{{Message: "mismatched types", Snippet: "a + b"}}}
	patched, residual := ApplySuggestions("a + b", result)
	if patched != "a + b" {
		t.Fatalf("patched = %q", patched)
	}
	if len(residual) != 1 {
		t.Fatalf("expected 1 residual error, got %v", residual)
	}
}

func TestParseCargoCheckJSONExtractsErrorsAndSuggestions(t *testing.T) {
	stdout := `{"reason":"compiler-artifact"}
{"reason":"compiler-message","message":{"level":"error","message":"mismatched types","spans":[{"byte_start":10,"byte_end":20,"text":[{"text":"foo(x)"}],"is_primary":true,"suggested_replacement":"foo(x as i64)","suggestion_applicability":"MachineApplicable"}],"children":[]}}
{"reason":"build-finished","success":false}
`
	result := parseCargoCheckJSON(stdout)
	if len(result.Errors) != 1 {
		t.Fatalf("expected 1 error, got %d", len(result.Errors))
	}
	if result.Errors[0].Message != "mismatched types" {
		t.Fatalf("unexpected error message %q", result.Errors[0].Message)
	}
	if len(result.Suggestions) != 1 || result.Suggestions[0].Replace != "foo(x as i64)" {
		t.Fatalf("unexpected suggestions %v", result.Suggestions)
	}
}

func TestParseCargoCheckJSONSkipsNonJSONLines(t *testing.T) {
	stdout := "warning: unused variable\nerror: build failed\n"
	result := parseCargoCheckJSON(stdout)
	if len(result.Errors) != 0 {
		t.Fatalf("expected no parsed errors from plain-text output, got %v", result.Errors)
	}
}

// TestParseCargoCheckJSONHarvestsHelpChildSuggestion pins a non-import
// fix rustc attaches only to a "help" child (no suggestion on the
// top-level error's own span), the common shape for things like a
// missing `&`.
func TestParseCargoCheckJSONHarvestsHelpChildSuggestion(t *testing.T) {
	stdout := `{"reason":"compiler-message","message":{"level":"error","message":"expected reference, found struct","spans":[{"byte_start":5,"byte_end":8,"text":[{"text":"foo"}],"is_primary":true,"suggested_replacement":"","suggestion_applicability":""}],"children":[{"level":"help","message":"consider borrowing here","spans":[{"byte_start":5,"byte_end":5,"text":[{"text":""}],"is_primary":true,"suggested_replacement":"&","suggestion_applicability":"MachineApplicable"}],"children":[]}]}}
`
	result := parseCargoCheckJSON(stdout)
	if len(result.Errors) != 1 {
		t.Fatalf("expected 1 error, got %d", len(result.Errors))
	}
	if len(result.Suggestions) != 1 || result.Suggestions[0].Replace != "&" {
		t.Fatalf("expected the help child's suggestion to be harvested, got %v", result.Suggestions)
	}
	if len(result.AddUse) != 0 {
		t.Fatalf("expected no AddUse entries for a non-import fix, got %v", result.AddUse)
	}
}

// TestParseCargoCheckJSONRoutesImportSuggestionToAddUse pins the other
// side: a help child whose suggestion is a `use` line is hoisted to
// AddUse, not also spliced in place as a generic Suggestion.
func TestParseCargoCheckJSONRoutesImportSuggestionToAddUse(t *testing.T) {
	stdout := `{"reason":"compiler-message","message":{"level":"error","message":"cannot find type ` + "`Foo`" + ` in this scope","spans":[{"byte_start":5,"byte_end":8,"text":[{"text":"Foo"}],"is_primary":true,"suggested_replacement":"","suggestion_applicability":""}],"children":[{"level":"help","message":"consider importing this struct","spans":[{"byte_start":0,"byte_end":0,"text":[{"text":""}],"is_primary":true,"suggested_replacement":"use crate::types::Foo;","suggestion_applicability":"MachineApplicable"}],"children":[]}]}}
`
	result := parseCargoCheckJSON(stdout)
	if len(result.AddUse) != 1 || result.AddUse[0] != "use crate::types::Foo;" {
		t.Fatalf("expected the import suggestion routed to AddUse, got %v", result.AddUse)
	}
	if len(result.Suggestions) != 0 {
		t.Fatalf("expected the import suggestion not to be double-harvested as an inline Suggestion, got %v", result.Suggestions)
	}
}
