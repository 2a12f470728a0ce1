//go:build cgo

package analyzer

import (
	"context"
	"reflect"
	"testing"

	"doccov/internal/errors"
)

func findFunction(t *testing.T, fns []FunctionRecord, name string) FunctionRecord {
	t.Helper()
	for _, fn := range fns {
		if fn.Name == name {
			return fn
		}
	}
	t.Fatalf("function %q not found in %d records", name, len(fns))
	return FunctionRecord{}
}

func argNames(fn FunctionRecord) []string {
	names := make([]string, 0, len(fn.Arguments))
	for _, a := range fn.Arguments {
		names = append(names, a.Name)
	}
	return names
}

func TestParseUnit_ArgumentCounts(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		function string
		wantArgs int
	}{
		{"simple", "def simple(): pass", "simple", 0},
		{"one arg", "def one(a): pass", "one", 1},
		{"defaults", "def defaults(a, b=1, c='x'): pass", "defaults", 3},
		{"varargs", "def varargs(*args): pass", "varargs", 1},
		{"kwargs", "def kwargs(**kwargs): pass", "kwargs", 1},
		{"mixed", "def mixed(a, *b, c=1, **d): pass", "mixed", 4},
		{"keyword only", "def kwonly(a, *, b, c=2): pass", "kwonly", 3},
		{"positional only", "def posonly(a, b, /, c): pass", "posonly", 3},
		{"typed", "def typed(a: int, b: str) -> bool: pass", "typed", 2},
		{"typed default", "def typed_default(a: int = 1): pass", "typed_default", 1},
		{"typed splats", "def typed_splat(*args: int, **kw: str): pass", "typed_splat", 2},
		{"async", "async def fetch(url, timeout=10): pass", "fetch", 2},
		{"decorated", "@decorator\ndef decorated(x): pass", "decorated", 1},
		{"method", "class A:\n    def method(self, x): pass", "method", 2},
		{"spaced", "def    spaced   (   a ,  b   ) : pass", "spaced", 2},
		{"multiline", "def multiline(\n    a,\n    b,\n):\n    pass", "multiline", 2},
		{"nested", "def outer():\n    def inner(z): pass", "inner", 1},
		{"trailing comma", "def trailing(a, b,): pass", "trailing", 2},
		{"unicode name", "def grüße(wert): pass", "grüße", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fns := ParseUnit([]byte(tt.source))
			fn := findFunction(t, fns, tt.function)
			if len(fn.Arguments) != tt.wantArgs {
				t.Errorf("expected %d arguments, got %d (%v)", tt.wantArgs, len(fn.Arguments), argNames(fn))
			}
		})
	}
}

func TestParseUnit_ArgumentKinds(t *testing.T) {
	fns := ParseUnit([]byte("def f(a, /, b, *args, c, d=1, **kw): pass"))
	fn := findFunction(t, fns, "f")

	want := []Argument{
		{Name: "a", Kind: ArgPositionalOnly},
		{Name: "b", Kind: ArgPositional},
		{Name: "args", Kind: ArgVarPositional},
		{Name: "c", Kind: ArgKeywordOnly},
		{Name: "d", Kind: ArgKeywordOnly},
		{Name: "kw", Kind: ArgVarKeyword},
	}
	if !reflect.DeepEqual(fn.Arguments, want) {
		t.Errorf("unexpected arguments:\n got %+v\nwant %+v", fn.Arguments, want)
	}
}

func TestParseUnit_BareStarIsNotAnArgument(t *testing.T) {
	fns := ParseUnit([]byte("def f(*, key): pass"))
	fn := findFunction(t, fns, "f")
	if len(fn.Arguments) != 1 {
		t.Fatalf("expected 1 argument, got %v", argNames(fn))
	}
	if fn.Arguments[0].Kind != ArgKeywordOnly {
		t.Errorf("expected keyword_only, got %s", fn.Arguments[0].Kind)
	}
}

func TestParseUnit_Annotations(t *testing.T) {
	source := []byte(`
def typed(a: int, b: str = "x", *rest: float, **opts: bool) -> bool:
    pass

def generic(items: List[int], mapping: Dict[str,   int]) -> Optional['Node']:
    pass

def union(x: int|None) -> tuple[int, ...]:
    pass

def untyped(a, b):
    pass

def dotted(a: typing.Any) -> (int, int):
    pass
`)
	fns := ParseUnit(source)

	typed := findFunction(t, fns, "typed")
	wantTyped := []string{"int", "str", "float", "bool"}
	for i, arg := range typed.Arguments {
		if arg.TypeAnnotation == nil || *arg.TypeAnnotation != wantTyped[i] {
			t.Errorf("typed arg %s: expected %q, got %v", arg.Name, wantTyped[i], arg.TypeAnnotation)
		}
	}
	if typed.ReturnAnnotation == nil || *typed.ReturnAnnotation != "bool" {
		t.Errorf("expected return annotation bool, got %v", typed.ReturnAnnotation)
	}

	tests := []struct {
		function string
		arg      int
		want     string
	}{
		{"generic", 0, "List[int]"},
		{"generic", 1, "Dict[str, int]"},
		{"union", 0, "int | None"},
		{"dotted", 0, "typing.Any"},
	}
	for _, tt := range tests {
		fn := findFunction(t, fns, tt.function)
		got := fn.Arguments[tt.arg].TypeAnnotation
		if got == nil || *got != tt.want {
			t.Errorf("%s arg %d: expected %q, got %v", tt.function, tt.arg, tt.want, got)
		}
	}

	returns := map[string]string{
		"generic": "Optional['Node']",
		"union":   "tuple[int, ...]",
		"dotted":  "(int, int)",
	}
	for name, want := range returns {
		fn := findFunction(t, fns, name)
		if fn.ReturnAnnotation == nil || *fn.ReturnAnnotation != want {
			t.Errorf("%s: expected return %q, got %v", name, want, fn.ReturnAnnotation)
		}
	}

	untyped := findFunction(t, fns, "untyped")
	for _, arg := range untyped.Arguments {
		if arg.TypeAnnotation != nil {
			t.Errorf("untyped arg %s: expected no annotation, got %q", arg.Name, *arg.TypeAnnotation)
		}
	}
	if untyped.ReturnAnnotation != nil {
		t.Errorf("untyped: expected no return annotation, got %q", *untyped.ReturnAnnotation)
	}
}

func TestParseUnit_Docstrings(t *testing.T) {
	source := []byte(`
def documented():
    """This is a docstring."""
    pass

def single_quoted():
    'Short doc.'

def no_doc():
    pass

def comment_only():
    # just a comment
    pass

def comment_then_doc():
    # leading comment
    """Doc after comment."""

def not_first():
    x = 1
    """Not a docstring."""

def fstring():
    f"""Value {x}."""

def bytes_doc():
    b"""Raw bytes."""

def raw_doc():
    r"""Matches \d+ digits."""

def escaped():
    "Line one.\n\nLine two."

def concatenated():
    "Part one, " "part two."

def parenthesized():
    ("Wrapped doc.")

def tuple_expr():
    "a", "b"

def indented():
    """Summary.

    Details here.
        Nested detail.
    """
`)
	fns := ParseUnit(source)

	tests := []struct {
		function string
		wantDoc  bool
		wantText string
	}{
		{"documented", true, "This is a docstring."},
		{"single_quoted", true, "Short doc."},
		{"no_doc", false, ""},
		{"comment_only", false, ""},
		{"comment_then_doc", true, "Doc after comment."},
		{"not_first", false, ""},
		{"fstring", false, ""},
		{"bytes_doc", false, ""},
		{"raw_doc", true, `Matches \d+ digits.`},
		{"escaped", true, "Line one.\n\nLine two."},
		{"concatenated", true, "Part one, part two."},
		{"parenthesized", true, "Wrapped doc."},
		{"tuple_expr", false, ""},
		{"indented", true, "Summary.\n\nDetails here.\n    Nested detail."},
	}

	for _, tt := range tests {
		t.Run(tt.function, func(t *testing.T) {
			fn := findFunction(t, fns, tt.function)
			if fn.HasDoc != tt.wantDoc {
				t.Fatalf("expected has_doc=%v, got %v", tt.wantDoc, fn.HasDoc)
			}
			if (fn.DocText != nil) != fn.HasDoc {
				t.Fatalf("has_doc=%v inconsistent with doc_text=%v", fn.HasDoc, fn.DocText)
			}
			if fn.Doc() != tt.wantText {
				t.Errorf("expected doc %q, got %q", tt.wantText, fn.Doc())
			}
		})
	}
}

func TestParseUnit_Positions(t *testing.T) {
	source := []byte(`import os

@decorator
@other(arg=1)
def decorated(x):
    pass

class Service:
    async def handle(self, request):
        """Handle a request."""
        return None

def multiline(
    a,
    b,
) -> int:
    return a + b

def one_liner(): return 1
`)
	fns := ParseUnit(source)

	tests := []struct {
		function      string
		startLine     int
		headerEndLine int
		indent        int
		isAsync       bool
		decorated     bool
		enclosing     string
		oneLiner      bool
	}{
		{"decorated", 5, 5, 0, false, true, "", false},
		{"handle", 9, 9, 4, true, false, "Service", false},
		{"multiline", 13, 16, 0, false, false, "", false},
		{"one_liner", 19, 19, 0, false, false, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.function, func(t *testing.T) {
			fn := findFunction(t, fns, tt.function)
			if fn.StartLine != tt.startLine {
				t.Errorf("expected start_line %d, got %d", tt.startLine, fn.StartLine)
			}
			if fn.HeaderEndLine != tt.headerEndLine {
				t.Errorf("expected header_end_line %d, got %d", tt.headerEndLine, fn.HeaderEndLine)
			}
			if fn.Indent != tt.indent {
				t.Errorf("expected indent %d, got %d", tt.indent, fn.Indent)
			}
			if fn.IsAsync != tt.isAsync {
				t.Errorf("expected is_async %v, got %v", tt.isAsync, fn.IsAsync)
			}
			if fn.Decorated != tt.decorated {
				t.Errorf("expected decorated %v, got %v", tt.decorated, fn.Decorated)
			}
			if fn.EnclosingName != tt.enclosing {
				t.Errorf("expected enclosing %q, got %q", tt.enclosing, fn.EnclosingName)
			}
			if fn.IsOneLiner() != tt.oneLiner {
				t.Errorf("expected one-liner %v, got %v", tt.oneLiner, fn.IsOneLiner())
			}
		})
	}
}

func TestParseUnit_BodyIndent(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"four spaces", "def f():\n    pass\n", "    "},
		{"two spaces", "def f():\n  pass\n", "  "},
		{"tabs", "class A:\n\tdef f(self):\n\t\tpass\n", "\t\t"},
		{"after comment", "def f():\n    # note\n      return 1\n", "      "},
		{"same line", "def f(): pass\n", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn := findFunction(t, ParseUnit([]byte(tt.source)), "f")
			if fn.BodyIndent != tt.want {
				t.Errorf("BodyIndent = %q, want %q", fn.BodyIndent, tt.want)
			}
		})
	}
}

func TestParseUnit_DocstringSpan(t *testing.T) {
	source := []byte(`def single():
    """One line."""
    return 1

def multi():
    # leading comment
    """First.

    More.
    """

def none():
    return 2
`)
	fns := ParseUnit(source)

	tests := []struct {
		function   string
		bodyLine   int
		docEndLine int
	}{
		{"single", 2, 2},
		{"multi", 7, 10},
		{"none", 13, 0},
	}
	for _, tt := range tests {
		fn := findFunction(t, fns, tt.function)
		if fn.BodyLine != tt.bodyLine {
			t.Errorf("%s: expected body_line %d, got %d", tt.function, tt.bodyLine, fn.BodyLine)
		}
		if fn.DocEndLine != tt.docEndLine {
			t.Errorf("%s: expected doc_end_line %d, got %d", tt.function, tt.docEndLine, fn.DocEndLine)
		}
	}
}

func TestParseUnit_BreadthFirstOrder(t *testing.T) {
	source := []byte(`
def a():
    def a_inner():
        def a_deep():
            pass

class B:
    def b_method(self):
        pass

def c():
    pass

if True:
    def d():
        pass
else:
    def e():
        pass
`)
	fns := ParseUnit(source)

	var got []string
	for _, fn := range fns {
		got = append(got, fn.Name)
	}
	want := []string{"a", "c", "a_inner", "b_method", "d", "e", "a_deep"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected order %v, got %v", want, got)
	}

	if inner := findFunction(t, fns, "a_deep"); inner.EnclosingName != "a_inner" {
		t.Errorf("expected a_deep enclosed by a_inner, got %q", inner.EnclosingName)
	}
	if d := findFunction(t, fns, "d"); d.EnclosingName != "" {
		t.Errorf("expected d at module level, got %q", d.EnclosingName)
	}
}

func TestParseUnit_ElifChainsNest(t *testing.T) {
	source := []byte(`
if a:
    def top():
        pass
elif b:
    def inner():
        pass
elif c:
    def deep():
        pass
else:
    def deeper():
        pass

def module_level():
    pass
`)
	var got []string
	for _, fn := range ParseUnit(source) {
		got = append(got, fn.Name)
	}
	want := []string{"module_level", "top", "inner", "deep", "deeper"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected order %v, got %v", want, got)
	}
}

func TestParseUnit_DuplicateNames(t *testing.T) {
	source := []byte(`
class A:
    def run(self): pass

class B:
    def run(self): pass
`)
	fns := ParseUnit(source)
	if len(fns) != 2 {
		t.Fatalf("expected 2 records, got %d", len(fns))
	}
	if fns[0].Name != "run" || fns[1].Name != "run" {
		t.Errorf("expected both records named run, got %q and %q", fns[0].Name, fns[1].Name)
	}
	if fns[0].EnclosingName != "A" || fns[1].EnclosingName != "B" {
		t.Errorf("unexpected enclosing names %q, %q", fns[0].EnclosingName, fns[1].EnclosingName)
	}
}

func TestParseUnit_InvalidSyntax(t *testing.T) {
	sources := []string{
		"def syntax_error(",
		"class Broken {",
		"import * from",
		"def ok(): pass\ndef bad(:\n    pass",
		"def f(a, b\n    return a",
		"def f():\n    print \"hi\"\n",
		"def f():\n    exec \"x = 1\"\n",
		"def f(a=1, b):\n    pass\n",
		"def f(a: int = 1, b: int):\n    pass\n",
		"def f(a=1, /, b):\n    pass\n",
		"def f(*, **k):\n    pass\n",
		"def f(a, *):\n    pass\n",
		"def f():\n    pass\nx := 1\n",
		"def f():\n    g = lambda a=1, b: a\n",
	}

	for _, src := range sources {
		fns := ParseUnit([]byte(src))
		if fns == nil {
			t.Errorf("ParseUnit(%q) returned nil, expected empty slice", src)
		}
		if len(fns) != 0 {
			t.Errorf("ParseUnit(%q) returned %d records, expected none", src, len(fns))
		}

		_, err := NewAnalyzer(DefaultOptions(), nil).ParseSource(context.Background(), []byte(src))
		if !errors.HasCode(err, errors.UnparsableSource) {
			t.Errorf("ParseSource(%q): expected UNPARSABLE_SOURCE, got %v", src, err)
		}
	}
}

func TestParseUnit_ValidPython3Constructs(t *testing.T) {
	sources := []string{
		"def f():\n    print(\"hi\")\n",
		"def f():\n    exec(\"x = 1\")\n",
		"def f(a, b=1, *args, c, d=2, **kw):\n    pass\n",
		"def f(a=1, *, b):\n    pass\n",
		"def f(a, /, b=2, *, c):\n    pass\n",
		"def f(*args, **kw):\n    pass\n",
		"def f():\n    (x := 1)\n    if (y := x):\n        return y\n",
		"def f():\n    g = lambda a, b=1, *c: a\n",
	}

	for _, src := range sources {
		if fns := ParseUnit([]byte(src)); len(fns) != 1 {
			t.Errorf("ParseUnit(%q) returned %d records, expected 1", src, len(fns))
		}
	}
}

func TestParseUnit_LoneCarriageReturns(t *testing.T) {
	source := []byte("def a():\r    \"\"\"Doc.\"\"\"\r    pass\r\rdef b(x):\r    return x\r")
	fns := ParseUnit(source)
	if len(fns) != 2 {
		t.Fatalf("expected 2 records, got %d", len(fns))
	}
	a := findFunction(t, fns, "a")
	if a.Doc() != "Doc." || a.StartLine != 1 || a.BodyLine != 2 {
		t.Errorf("a: doc %q start %d body %d", a.Doc(), a.StartLine, a.BodyLine)
	}
	if b := findFunction(t, fns, "b"); b.StartLine != 5 {
		t.Errorf("b: start line %d, want 5", b.StartLine)
	}
}

func TestParseUnit_Empty(t *testing.T) {
	for _, src := range []string{"", "\n\n", "# only a comment\n", "x = 1\nprint(x)\n"} {
		fns := ParseUnit([]byte(src))
		if fns == nil || len(fns) != 0 {
			t.Errorf("ParseUnit(%q): expected empty slice, got %v", src, fns)
		}
	}
}

func TestParseUnit_Idempotent(t *testing.T) {
	source := []byte(`
def first(a: int, *rest) -> str:
    """Doc."""
    def nested(): pass

class K:
    async def second(self, **kw): pass
`)
	a := ParseUnit(source)
	b := ParseUnit(source)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("expected identical results across parses")
	}
}

func TestParseUnit_CountMatchesDefinitions(t *testing.T) {
	source := []byte(`
def one(): pass
async def two(): pass
class C:
    def three(self): pass
    class D:
        def four(self): pass
lambda_value = lambda x: x
`)
	if got := len(ParseUnit(source)); got != 4 {
		t.Errorf("expected 4 records, got %d", got)
	}
}

func TestIsAvailable(t *testing.T) {
	if !IsAvailable() {
		t.Error("expected analyzer to be available with cgo")
	}
}
