package resonance

import "testing"

func TestParseFrontmatterExtractsKeyValuePairs(t *testing.T) {
	content := "---\ntitle: Flow State Debrief\ndate: 2026-01-14\n---\n\n# Body\n\ntext here"

	meta, body := parseFrontmatter(content)

	if meta["title"] != "Flow State Debrief" {
		t.Fatalf("title = %q, want %q", meta["title"], "Flow State Debrief")
	}
	if meta["date"] != "2026-01-14" {
		t.Fatalf("date = %q, want %q", meta["date"], "2026-01-14")
	}
	if body != "\n# Body\n\ntext here" {
		t.Fatalf("body = %q", body)
	}
}

func TestParseFrontmatterIgnoresLinesWithoutColon(t *testing.T) {
	content := "---\ntitle: X\njust a line\ntags: a, b\n---\nbody"

	meta, _ := parseFrontmatter(content)

	if len(meta) != 2 {
		t.Fatalf("len(meta) = %d, want 2: %v", len(meta), meta)
	}
}

func TestParseFrontmatterNoBlockReturnsWholeContentAsBody(t *testing.T) {
	content := "# Just a heading\n\nno frontmatter here"

	meta, body := parseFrontmatter(content)

	if meta != nil {
		t.Fatalf("meta = %v, want nil", meta)
	}
	if body != content {
		t.Fatalf("body = %q, want unchanged content", body)
	}
}

func TestParseFrontmatterUnterminatedBlockReturnsWholeContent(t *testing.T) {
	content := "---\ntitle: X\n\nno closing delimiter"

	meta, body := parseFrontmatter(content)

	if meta != nil {
		t.Fatalf("meta = %v, want nil", meta)
	}
	if body != content {
		t.Fatalf("body = %q, want unchanged content", body)
	}
}
