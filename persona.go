package resonance

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/pjsvis/resonance/lexicon"
	"github.com/pjsvis/resonance/locus"
	"github.com/pjsvis/resonance/store"
)

// Directive is one entry of the enriched-directive JSON artifact (the
// Cognitive Directive Architecture). Its Relationships become gated edges.
type Directive struct {
	ID            string                  `json:"id"`
	Title         string                  `json:"title"`
	Type          string                  `json:"type"`
	Content       string                  `json:"content,omitempty"`
	Relationships []DirectiveRelationship `json:"relationships,omitempty"`
}

// DirectiveRelationship is one outgoing edge declared by a directive.
// A relationship with an empty Target or Type is not "validated" and is
// skipped rather than inserted (§4.11 Phase 1 step 2).
type DirectiveRelationship struct {
	Target string `json:"target"`
	Type   string `json:"type"`
}

// ingestPersona runs Phase 1: the lexicon seeds both concept nodes and the
// Tokenizer vocabulary, then the directive artifact seeds directive nodes
// and their declared relationships, each gated through LouvainGate like
// any other edge.
func (ig *Ingestor) ingestPersona(ctx context.Context, stats *Stats) error {
	items, err := loadLexicon(ig.cfg.Paths.Sources.Persona.Lexicon)
	if err != nil {
		return err
	}

	for _, it := range items {
		if err := ig.store.InsertNode(ctx, store.Node{
			ID:      it.ID,
			Type:    "concept",
			Title:   it.Title,
			Content: it.Title,
			Domain:  "persona",
			Layer:   "ontology",
			Hash:    hashLexiconItem(it),
			Meta: map[string]any{
				"category": it.Category,
				"aliases":  it.Aliases,
				"tag":      classifyTag(it),
			},
		}); err != nil {
			return fmt.Errorf("resonance: upserting lexicon node %s: %w", it.ID, err)
		}
		stats.NodesUpserted++
	}
	ig.tokenizer = lexicon.NewTokenizer(items)

	directives, err := loadDirectives(ig.cfg.Paths.Sources.Persona.CDA)
	if err != nil {
		return err
	}

	for _, d := range directives {
		if err := ig.store.InsertNode(ctx, store.Node{
			ID:      d.ID,
			Type:    "directive",
			Title:   d.Title,
			Content: d.Content,
			Domain:  "persona",
			Layer:   "directive",
			Hash:    hashDirective(d),
			Meta:    map[string]any{"directive_type": d.Type},
		}); err != nil {
			return fmt.Errorf("resonance: upserting directive node %s: %w", d.ID, err)
		}
		stats.NodesUpserted++

		for _, rel := range d.Relationships {
			if rel.Target == "" || rel.Type == "" {
				continue
			}
			result, err := ig.gate.Check(ctx, d.ID, rel.Target)
			if err != nil {
				return fmt.Errorf("resonance: gating directive edge %s->%s: %w", d.ID, rel.Target, err)
			}
			if !result.Allowed {
				stats.EdgesRejected++
				continue
			}
			if err := ig.store.InsertEdge(ctx, store.Edge{Source: d.ID, Target: rel.Target, Type: rel.Type}); err != nil {
				return fmt.Errorf("resonance: inserting directive edge %s->%s: %w", d.ID, rel.Target, err)
			}
			stats.EdgesInserted++
		}
	}

	return nil
}

func loadLexicon(path string) ([]lexicon.Item, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: lexicon %s: %v", ErrArtifactMissing, path, err)
	}
	var items []lexicon.Item
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: lexicon %s: %v", ErrParseFailed, path, err)
	}
	return items, nil
}

func loadDirectives(path string) ([]Directive, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: directives %s: %v", ErrArtifactMissing, path, err)
	}
	var directives []Directive
	if err := json.Unmarshal(raw, &directives); err != nil {
		return nil, fmt.Errorf("%w: directives %s: %v", ErrParseFailed, path, err)
	}
	return directives, nil
}

// classifyTag mirrors lexicon.classify's unexported rule so persona.go can
// record the same tag on the node that the Tokenizer assigns internally.
func classifyTag(it lexicon.Item) lexicon.Tag {
	switch {
	case it.Type == "operational-heuristic":
		return lexicon.TagProtocol
	case it.Category == "Tool":
		return lexicon.TagOrganization
	default:
		return lexicon.TagConcept
	}
}

func hashLexiconItem(it lexicon.Item) string {
	return locus.Hash(fmt.Sprintf("%s|%s|%s|%s", it.ID, it.Title, it.Category, it.Type))
}

func hashDirective(d Directive) string {
	return locus.Hash(fmt.Sprintf("%s|%s|%s|%s", d.ID, d.Title, d.Type, d.Content))
}
