package markup

import (
	"context"
	"fmt"
	"io"

	"github.com/beevik/etree"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/language"
)

type preparer struct {
	doc *Document
	log *zap.Logger
}

// Prepare reads, parses and normalizes a source document. The returned
// Document is immutable from the caller's point of view; layout holds
// read-only references into it.
func Prepare(ctx context.Context, r io.Reader, srcName string, log *zap.Logger) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("markup")

	doc := etree.NewDocument()
	doc.ReadSettings = etree.ReadSettings{
		CharsetReader: charset.NewReaderLabel,
		Permissive:    true,
	}
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("unable to read document: %w", err)
	}

	p := &preparer{
		doc: &Document{
			SrcName: srcName,
			Lang:    language.English,
			Notes:   make(NoteIndex),
			Images:  make(ImageIndex),
		},
		log: log,
	}

	if err := p.parseDocument(doc); err != nil {
		return nil, fmt.Errorf("unable to parse document: %w", err)
	}

	// Make sure the document ID is a valid UUID.
	if _, err := uuid.Parse(p.doc.ID); err != nil {
		refID, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("unable to generate new document UUID: %w", err)
		}
		if p.doc.ID != "" {
			log.Warn("Document has invalid ID, correcting", zap.String("old_id", p.doc.ID), zap.Stringer("new_id", refID))
		}
		p.doc.ID = refID.String()
	}

	p.normalize()

	return p.doc, nil
}

// normalize drops markers pointing at missing footnote entries and figures
// referencing missing binaries, so layout never sees a dangling reference.
func (p *preparer) normalize() {
	for _, node := range p.doc.Body {
		p.normalizeNode(node)
	}
	for _, note := range p.doc.Notes {
		for i := range note.Spans {
			if ref := note.Spans[i].NoteID; ref != "" {
				// Footnotes inside footnotes are not supported.
				p.log.Warn("Nested footnote marker, dropping", zap.String("in", note.ID), zap.String("ref", ref))
				note.Spans[i].NoteID = ""
			}
		}
	}
}

func (p *preparer) normalizeNode(node *Node) {
	for i := range node.Spans {
		ref := node.Spans[i].NoteID
		if ref == "" {
			continue
		}
		if _, ok := p.doc.Notes[ref]; !ok {
			p.log.Warn("Footnote marker without entry, dropping", zap.String("ref", ref), zap.String("at", node.Loc.Path))
			node.Spans[i].NoteID = ""
		}
	}

	if (node.Kind == KindFigure || node.Kind == KindImage) && node.ImageID != "" {
		if _, ok := p.doc.Images[node.ImageID]; !ok {
			p.log.Warn("Reference to missing binary", zap.String("id", node.ImageID), zap.String("at", node.Loc.Path))
			node.ImageID = ""
		}
	}

	for _, child := range node.Children {
		p.normalizeNode(child)
	}
}

func parseLang(s string) (language.Tag, error) {
	return language.Parse(s)
}
