// Package boxer implements BentoBoxer (C2): splitting a Markdown document
// into size-bounded "bento boxes" aligned to semantic boundaries, and
// Normalizer (C3): deterministic repair of malformed heading structure.
package boxer

import (
	"context"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	gmtext "github.com/yuin/goldmark/text"

	"github.com/pjsvis/resonance/locus"
)

// BoxKind is the tagged variant over a box's structural origin, per the
// spec's note that "dynamic dispatch on box content type" should be a
// closed tagged union rather than ad-hoc branching.
type BoxKind int

const (
	// Section is a box that opened at a heading boundary.
	Section BoxKind = iota
	// Atomic is a box produced by Fracture from an oversized heading group,
	// or the whole-document fallback when no top-level node carries text.
	Atomic
)

// Box is one bento box: a locus-identified, size-bounded content unit.
type Box struct {
	LocusID string
	Content string
	Tokens  int
	Kind    BoxKind
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Config controls BentoBoxer's token budget.
type Config struct {
	MaxTokens int // default 400
}

// Boxer splits Markdown documents into bento boxes.
type Boxer struct {
	cfg    Config
	ledger *locus.Ledger
}

// New returns a Boxer backed by ledger, defaulting MaxTokens to 400 (spec §4.2).
func New(cfg Config, ledger *locus.Ledger) *Boxer {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 400
	}
	return &Boxer{cfg: cfg, ledger: ledger}
}

// Process parses content as CommonMark+GFM, groups it by heading boundaries
// (depth <= 4), fractures any group exceeding MaxTokens whitespace tokens,
// and mints a locus id for each resulting box.
func (b *Boxer) Process(ctx context.Context, content string) ([]Box, error) {
	source := []byte(content)
	doc := markdown.Parser().Parse(gmtext.NewReader(source))

	spans := topLevelSpans(doc, source)
	if len(spans) == 0 {
		trimmed := strings.TrimSpace(content)
		if trimmed == "" {
			return nil, nil
		}
		return b.emit(ctx, []fragment{{text: trimmed, kind: Atomic}})
	}

	groups := groupByHeading(spans)
	var frags []fragment
	for _, g := range groups {
		end := docEnd(spans, g.end, len(source))
		start := spans[g.start].start
		groupSrc := source[start:end]
		if countTokens(string(groupSrc)) <= b.cfg.MaxTokens {
			frags = append(frags, fragment{text: strings.TrimSpace(string(groupSrc)), kind: Section})
			continue
		}
		frags = append(frags, fracture(spans[g.start:g.end], start, end, source, b.cfg.MaxTokens)...)
	}

	return b.emit(ctx, frags)
}

type fragment struct {
	text string
	kind BoxKind
}

func (b *Boxer) emit(ctx context.Context, frags []fragment) ([]Box, error) {
	boxes := make([]Box, 0, len(frags))
	for _, f := range frags {
		if f.text == "" {
			continue
		}
		id, err := b.ledger.GetOrMint(ctx, locus.Hash(f.text))
		if err != nil {
			return nil, fmt.Errorf("boxer: minting locus id: %w", err)
		}
		boxes = append(boxes, Box{
			LocusID: id,
			Content: f.text,
			Tokens:  countTokens(f.text),
			Kind:    f.kind,
		})
	}
	return boxes, nil
}

// --- span bookkeeping ---

type nodeSpan struct {
	node  ast.Node
	start int
}

type headingRange struct {
	start, end int // indices into spans, half-open
}

// topLevelSpans returns, for each top-level child of doc in document order,
// the byte offset of the start of the line holding its first text segment,
// so block markers such as "# " stay with their node. Nodes with no
// locatable text (e.g. an empty blank-line container) are skipped.
func topLevelSpans(doc ast.Node, source []byte) []nodeSpan {
	var spans []nodeSpan
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		off := firstOffset(n)
		if off < 0 {
			continue
		}
		for off > 0 && source[off-1] != '\n' {
			off--
		}
		spans = append(spans, nodeSpan{node: n, start: off})
	}
	return spans
}

// firstOffset recursively finds the byte offset of the first line segment
// under n, since container nodes (List, Blockquote) don't carry their own
// Lines().
func firstOffset(n ast.Node) int {
	if n == nil {
		return -1
	}
	if n.Type() == ast.TypeBlock {
		if lines := n.Lines(); lines != nil && lines.Len() > 0 {
			return lines.At(0).Start
		}
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if off := firstOffset(c); off >= 0 {
			return off
		}
	}
	return -1
}

// groupByHeading partitions spans into contiguous runs, opening a new run
// at every heading of depth <= 4.
func groupByHeading(spans []nodeSpan) []headingRange {
	var groups []headingRange
	groupStart := 0
	for i := 1; i < len(spans); i++ {
		if h, ok := spans[i].node.(*ast.Heading); ok && h.Level <= 4 {
			groups = append(groups, headingRange{start: groupStart, end: i})
			groupStart = i
		}
	}
	groups = append(groups, headingRange{start: groupStart, end: len(spans)})
	return groups
}

// docEnd returns the byte offset just past the group ending at span index
// endIdx (exclusive): the start of the next top-level span, or the document
// length if this is the last group.
func docEnd(spans []nodeSpan, endIdx int, docLen int) int {
	if endIdx < len(spans) {
		return spans[endIdx].start
	}
	return docLen
}

// fracture recursively splits an oversized group of top-level nodes,
// preferring a thematicBreak boundary, else halving the node list, with a
// single oversized block as the base case (emitted as-is).
func fracture(spans []nodeSpan, start, end int, source []byte, maxTokens int) []fragment {
	text := strings.TrimSpace(string(source[start:end]))
	if len(spans) <= 1 || countTokens(text) <= maxTokens {
		return []fragment{{text: text, kind: Atomic}}
	}

	if idx := findThematicBreak(spans); idx >= 0 && idx+1 < len(spans) {
		mid := spans[idx+1].start
		left := fracture(spans[:idx+1], start, mid, source, maxTokens)
		right := fracture(spans[idx+1:], mid, end, source, maxTokens)
		return append(left, right...)
	}

	mid := len(spans) / 2
	midOffset := spans[mid].start
	left := fracture(spans[:mid], start, midOffset, source, maxTokens)
	right := fracture(spans[mid:], midOffset, end, source, maxTokens)
	return append(left, right...)
}

func findThematicBreak(spans []nodeSpan) int {
	for i, s := range spans {
		if _, ok := s.node.(*ast.ThematicBreak); ok {
			return i
		}
	}
	return -1
}

func countTokens(text string) int {
	return len(strings.Fields(text))
}
