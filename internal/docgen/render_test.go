package docgen

import (
	"testing"

	"doccov/internal/analyzer"
	"doccov/internal/review"
)

func sampleContent() Content {
	return Content{
		Summary: "Add two numbers.",
		Args:    map[string]string{"a": "First operand.", "b": "Second operand.", "ghost": "Not declared."},
		Returns: "The sum.",
		Raises:  map[string]string{"ValueError": "If a is negative.", "TypeError": "If b is not a number."},
	}
}

func TestRenderGoogle(t *testing.T) {
	want := `Add two numbers.

Args:
    a (int): First operand.
    b: Second operand.

Returns:
    int: The sum.

Raises:
    TypeError: If b is not a number.
    ValueError: If a is negative.`
	if got := Render(sampleContent(), sampleFunction(), review.StyleGoogle); got != want {
		t.Errorf("google:\n%s\nwant:\n%s", got, want)
	}
}

func TestRenderNumpy(t *testing.T) {
	want := `Add two numbers.

Parameters
----------
a : int
    First operand.
b
    Second operand.

Returns
-------
int
    The sum.

Raises
------
TypeError
    If b is not a number.
ValueError
    If a is negative.`
	if got := Render(sampleContent(), sampleFunction(), review.StyleNumpy); got != want {
		t.Errorf("numpy:\n%s\nwant:\n%s", got, want)
	}
}

func TestRenderReST(t *testing.T) {
	want := `Add two numbers.

:param a: First operand.
:type a: int
:param b: Second operand.
:return: The sum.
:rtype: int
:raises TypeError: If b is not a number.
:raises ValueError: If a is negative.`
	if got := Render(sampleContent(), sampleFunction(), review.StyleReST); got != want {
		t.Errorf("rest:\n%s\nwant:\n%s", got, want)
	}
}

func TestRenderedStyleIsDetected(t *testing.T) {
	for _, style := range review.Styles {
		doc := Render(sampleContent(), sampleFunction(), style)
		if got := review.DetectStyle(doc); got != style {
			t.Errorf("Render(%s) detected as %q", style, got)
		}
	}
}

func TestRenderSkipsSelfAndFillsGaps(t *testing.T) {
	fn := analyzer.FunctionRecord{
		Name: "run",
		Arguments: []analyzer.Argument{
			{Name: "self"},
			{Name: "job", TypeAnnotation: strPtr(analyzer.UnknownAnnotation)},
		},
	}
	got := Render(Content{}, fn, review.StyleGoogle)
	want := "Summary of run.\n\nArgs:\n    job: Description needed"
	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestRenderSummaryOnly(t *testing.T) {
	fn := analyzer.FunctionRecord{Name: "noop"}
	for _, style := range review.Styles {
		if got := Render(Content{Summary: "  Do nothing.  "}, fn, style); got != "Do nothing." {
			t.Errorf("%s: got %q", style, got)
		}
	}
}
