package resonance

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/pjsvis/resonance/store"
)

var harvestStubPattern = regexp.MustCompile(`\btag-([a-zA-Z0-9-]+)`)

// UnknownTag is one legacy `tag-<slug>` token found in the corpus with no
// matching lexicon node, along with every file it appears in.
type UnknownTag struct {
	Slug  string
	Files []string
	Count int
}

// Harvest scans every .md file under dir for legacy `tag-<slug>` stubs
// (the same signal EdgeWeaver's legacyStubEdges reads) and reports every
// slug that does not resolve to an existing node id in s — candidates for
// promotion into the lexicon, or for cleanup.
func Harvest(ctx context.Context, s *store.Store, dir string) ([]UnknownTag, error) {
	occurrences := make(map[string]map[string]int) // slug -> file -> count

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}
		raw, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil
		}
		for _, m := range harvestStubPattern.FindAllStringSubmatch(string(raw), -1) {
			slug := m[1]
			if occurrences[slug] == nil {
				occurrences[slug] = make(map[string]int)
			}
			occurrences[slug][path]++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("resonance: harvesting %s: %w", dir, err)
	}

	var unknown []UnknownTag
	for slug, files := range occurrences {
		node, err := s.GetNode(ctx, slug)
		if err != nil {
			return nil, fmt.Errorf("resonance: checking lexicon for %s: %w", slug, err)
		}
		if node != nil {
			continue
		}

		ut := UnknownTag{Slug: slug}
		for file, count := range files {
			ut.Files = append(ut.Files, file)
			ut.Count += count
		}
		sort.Strings(ut.Files)
		unknown = append(unknown, ut)
	}

	sort.Slice(unknown, func(i, j int) bool { return unknown[i].Slug < unknown[j].Slug })
	return unknown, nil
}

// RenderHarvestReport formats unknown tags as a Markdown report.
func RenderHarvestReport(unknown []UnknownTag) string {
	var sb strings.Builder
	sb.WriteString("# Unknown tag stubs\n\n")
	if len(unknown) == 0 {
		sb.WriteString("None found.\n")
		return sb.String()
	}
	for _, u := range unknown {
		fmt.Fprintf(&sb, "## tag-%s (%d occurrence(s))\n\n", u.Slug, u.Count)
		for _, f := range u.Files {
			fmt.Fprintf(&sb, "- %s\n", f)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
