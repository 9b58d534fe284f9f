//go:build cgo

package resonance

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pjsvis/resonance/store"
)

func TestHarvestReportsOnlyUnresolvedStubs(t *testing.T) {
	ctx := context.Background()
	s, err := store.New(filepath.Join(t.TempDir(), "resonance.db"))
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	defer s.Close()

	if err := s.InsertNode(ctx, store.Node{ID: "known-concept", Type: "concept", Domain: "persona", Layer: "ontology", Hash: "h"}); err != nil {
		t.Fatalf("InsertNode: %v", err)
	}

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "note.md"), "Discussed tag-known-concept and also tag-unmapped-thing twice: tag-unmapped-thing.")

	unknown, err := Harvest(ctx, s, dir)
	if err != nil {
		t.Fatalf("Harvest: %v", err)
	}
	if len(unknown) != 1 {
		t.Fatalf("len(unknown) = %d, want 1: %+v", len(unknown), unknown)
	}
	if unknown[0].Slug != "unmapped-thing" {
		t.Fatalf("slug = %q, want unmapped-thing", unknown[0].Slug)
	}
	if unknown[0].Count != 2 {
		t.Fatalf("count = %d, want 2", unknown[0].Count)
	}
}

func TestRenderHarvestReportEmptyListSaysNoneFound(t *testing.T) {
	out := RenderHarvestReport(nil)
	if !strings.Contains(out, "None found.") {
		t.Fatalf("expected report to say None found., got %q", out)
	}
}
