//go:build cgo

package boxer

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pjsvis/resonance/locus"
)

func newTestBoxer(t *testing.T, cfg Config) *Boxer {
	t.Helper()
	l, err := locus.Open(filepath.Join(t.TempDir(), "locus.db"))
	if err != nil {
		t.Fatalf("locus.Open: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return New(cfg, l)
}

func TestProcessSplitsOnHeadings(t *testing.T) {
	b := newTestBoxer(t, Config{MaxTokens: 400})
	content := "# Title\n\nIntro text.\n\n## Section One\n\nFirst section body.\n\n## Section Two\n\nSecond section body.\n"

	boxes, err := b.Process(context.Background(), content)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(boxes) != 3 {
		t.Fatalf("got %d boxes, want 3: %+v", len(boxes), boxes)
	}
	if !strings.Contains(boxes[0].Content, "Title") {
		t.Errorf("box 0 missing title heading: %q", boxes[0].Content)
	}
	if !strings.Contains(boxes[1].Content, "Section One") {
		t.Errorf("box 1 missing Section One: %q", boxes[1].Content)
	}
}

func TestProcessLocusIdempotence(t *testing.T) {
	b := newTestBoxer(t, Config{MaxTokens: 400})
	content := "# Title\n\nBody text.\n"

	first, err := b.Process(context.Background(), content)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	second, err := b.Process(context.Background(), content)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("expected single box, got %d and %d", len(first), len(second))
	}
	if first[0].LocusID != second[0].LocusID {
		t.Fatalf("re-processing identical content minted a new locus id: %s != %s",
			first[0].LocusID, second[0].LocusID)
	}
}

func TestProcessFracturesOversizedSection(t *testing.T) {
	b := newTestBoxer(t, Config{MaxTokens: 20})

	var body strings.Builder
	body.WriteString("# Big Section\n\n")
	for i := 0; i < 10; i++ {
		body.WriteString("This paragraph has exactly enough words to force a fracture split here today.\n\n")
	}

	boxes, err := b.Process(context.Background(), body.String())
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(boxes) < 2 {
		t.Fatalf("expected oversized section to fracture into multiple boxes, got %d", len(boxes))
	}
	for _, box := range boxes {
		if box.Tokens == 0 {
			t.Errorf("box has zero tokens: %+v", box)
		}
	}
}

func TestProcessThematicBreakSplit(t *testing.T) {
	b := newTestBoxer(t, Config{MaxTokens: 10})
	content := "# Heading\n\none two three four five six\n\n---\n\nseven eight nine ten eleven twelve\n"

	boxes, err := b.Process(context.Background(), content)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(boxes) != 2 {
		t.Fatalf("expected thematic break to produce 2 boxes, got %d: %+v", len(boxes), boxes)
	}
}

func TestNormalizeHeadless(t *testing.T) {
	out := Normalize("my-cool-doc.md", "Just a paragraph, no heading.\n")
	if !strings.HasPrefix(out, "# My Cool Doc") {
		t.Fatalf("expected synthesized H1 from filename, got: %q", out)
	}
}

func TestNormalizeShouting(t *testing.T) {
	out := Normalize("x.md", "# First\n\nbody\n\n# Second\n\nmore body\n")
	lines := strings.Split(out, "\n")
	h1Count := 0
	for _, l := range lines {
		if strings.HasPrefix(l, "# ") {
			h1Count++
		}
	}
	if h1Count != 1 {
		t.Fatalf("expected exactly one H1 after shouting repair, got %d in %q", h1Count, out)
	}
}

func TestNormalizeDeepNesting(t *testing.T) {
	out := Normalize("x.md", "# Title\n\n#### Too Deep\n\nbody\n")
	if strings.Contains(out, "#### ") {
		t.Fatalf("expected deep heading converted to bold, got: %q", out)
	}
	if !strings.Contains(out, "**Too Deep**") {
		t.Fatalf("expected bolded heading text, got: %q", out)
	}
}
