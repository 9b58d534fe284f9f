package resonance

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pjsvis/resonance/graph"
)

var locusMarkerPattern = regexp.MustCompile(`(?m)^<!--\s*locus:([a-zA-Z0-9-]+)\s*-->\s*\n`)

// splitByLocusMarkers re-splits an already-boxed file's body by its literal
// `<!-- locus:ID -->` markers (§4.11 step 2). This is deliberately cheaper
// than BentoBoxer's AST parse: Phase 2 trusts that boxing already happened
// and only needs to recover the id-to-span mapping. A file with no markers
// is treated as a single box, id derived from the filename slug.
func splitByLocusMarkers(body, sourcePath string) []contentBox {
	matches := locusMarkerPattern.FindAllStringSubmatchIndex(body, -1)
	if len(matches) == 0 {
		return []contentBox{{
			id:      graph.Slugify(strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))),
			content: body,
		}}
	}

	boxes := make([]contentBox, 0, len(matches))
	for i, m := range matches {
		id := body[m[2]:m[3]]
		contentStart := m[1]
		contentEnd := len(body)
		if i+1 < len(matches) {
			contentEnd = matches[i+1][0]
		}
		boxes = append(boxes, contentBox{id: id, content: body[contentStart:contentEnd]})
	}
	return boxes
}
