package resonance

import (
	"strings"
	"testing"

	"github.com/pjsvis/resonance/boxer"
)

func TestRenderBoxedEmitsLocusMarkers(t *testing.T) {
	boxes := []boxer.Box{
		{LocusID: "alpha", Content: "First box."},
		{LocusID: "beta", Content: "Second box."},
	}

	out := RenderBoxed(boxes)

	if !strings.Contains(out, "<!-- locus:alpha -->\nFirst box.") {
		t.Fatalf("missing alpha marker in: %q", out)
	}
	if !strings.Contains(out, "<!-- locus:beta -->\nSecond box.") {
		t.Fatalf("missing beta marker in: %q", out)
	}

	// Round-trips back through the splitter.
	got := splitByLocusMarkers(out, "doc.md")
	if len(got) != 2 || got[0].id != "alpha" || got[1].id != "beta" {
		t.Fatalf("round-trip split = %+v", got)
	}
}

func TestFormatTagsCommentRendersBracketedPairs(t *testing.T) {
	out := FormatTagsComment([][2]string{{"CITES", "term-foo"}, {"EXEMPLIFIES", "term-bar"}})
	want := "<!-- tags: [CITES: term-foo], [EXEMPLIFIES: term-bar] -->\n"
	if out != want {
		t.Fatalf("got %q, want %q", out, want)
	}
}

func TestFormatTagsCommentEmptyPairsReturnsEmptyString(t *testing.T) {
	if out := FormatTagsComment(nil); out != "" {
		t.Fatalf("got %q, want empty", out)
	}
}

func TestStripMarkersRemovesLocusAndTagsComments(t *testing.T) {
	content := "<!-- locus:alpha -->\nSome text.\n<!-- tags: [CITES: term-foo] -->\nMore text.\n"
	stripped := StripMarkers(content)
	if strings.Contains(stripped, "locus:") || strings.Contains(stripped, "tags:") {
		t.Fatalf("markers survived stripping: %q", stripped)
	}
}

func TestNormalizeWhitespaceCollapsesRunsAndBlankLines(t *testing.T) {
	a := "Hello   world.\n\n\n\nNext  paragraph.  "
	b := "Hello world.\n\nNext paragraph."
	if NormalizeWhitespace(a) != NormalizeWhitespace(b) {
		t.Fatalf("normalized forms differ: %q vs %q", NormalizeWhitespace(a), NormalizeWhitespace(b))
	}
}
