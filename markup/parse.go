package markup

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"typeflow/common"
	"typeflow/diag"
	"typeflow/geom"
	"typeflow/text"
)

// XML parsing for the document dialect. We parse exhaustively: every element
// is either understood or logged, so malformed input degrades loudly in debug
// output instead of silently dropping content.

// parseDocument walks the etree DOM and builds the flattened node sequence
// plus raw notes and binaries. Ordinals are assigned in document order.
func (p *preparer) parseDocument(doc *etree.Document) error {
	root := doc.Root()
	if root == nil {
		return fmt.Errorf("document has no root element")
	}
	if root.Tag != "document" {
		return fmt.Errorf("unexpected root element %q", root.Tag)
	}

	p.doc.ID = root.SelectAttrValue("id", "")
	p.doc.Title = collapseSpace(root.SelectAttrValue("title", ""))
	if lang := root.SelectAttrValue("lang", ""); lang != "" {
		tag, err := parseLang(lang)
		if err != nil {
			p.log.Warn("Unable to parse document language, ignoring", zap.String("lang", lang), zap.Error(err))
		} else {
			p.doc.Lang = tag
		}
	}

	for _, child := range root.ChildElements() {
		switch child.Tag {
		case "stylesheet":
			p.doc.Stylesheet = []byte(strings.TrimSpace(child.Text()))
		case "body":
			if err := p.parseBody(child); err != nil {
				return fmt.Errorf("body: %w", err)
			}
		case "notes":
			if err := p.parseNotes(child); err != nil {
				return fmt.Errorf("notes: %w", err)
			}
		case "binary":
			if err := p.parseBinary(child); err != nil {
				return fmt.Errorf("binary: %w", err)
			}
		default:
			p.log.Warn("Unexpected tag in document, ignoring", zap.String("parent", root.Tag), zap.String("tag", child.Tag))
		}
	}

	return nil
}

func (p *preparer) parseBody(el *etree.Element) error {
	for _, child := range el.ChildElements() {
		if err := p.parseContent(child, "body"); err != nil {
			return err
		}
	}
	return nil
}

// parseContent handles one content element, flattening sections in place.
func (p *preparer) parseContent(el *etree.Element, path string) error {
	where := path + "/" + el.Tag

	switch el.Tag {
	case "section":
		// Sections flatten into the body sequence: an optional label anchor,
		// an optional title paragraph, then the section's content.
		if id := el.SelectAttrValue("id", ""); id != "" {
			p.push(&Node{
				Kind:  KindLabel,
				Loc:   p.loc(where),
				Label: slug.Make(id),
			})
		}
		if title := el.SelectAttrValue("title", ""); title != "" {
			p.push(&Node{
				Kind:  KindPara,
				Loc:   p.loc(where),
				Class: "title",
				Spans: []text.Span{{Text: title}},
			})
		}
		for _, child := range el.ChildElements() {
			if err := p.parseContent(child, where); err != nil {
				return err
			}
		}

	case "p":
		node := &Node{
			Kind:  KindPara,
			Loc:   p.loc(where),
			Class: el.SelectAttrValue("class", ""),
		}
		node.Spans = p.parseSpans(el, where)
		p.push(node)

	case "block":
		node, err := p.parseBlock(el, where)
		if err != nil {
			return err
		}
		p.push(node)

	case "figure":
		node, err := p.parseFigure(el, where)
		if err != nil {
			return err
		}
		p.push(node)

	case "image":
		p.push(&Node{
			Kind:    KindImage,
			Loc:     p.loc(where),
			Class:   el.SelectAttrValue("class", ""),
			ImageID: strings.TrimPrefix(el.SelectAttrValue("href", ""), "#"),
		})

	case "br":
		kind, err := common.ParseBreakKind(el.SelectAttrValue("kind", ""))
		if err != nil {
			p.log.Warn("Unknown break kind, assuming column", zap.String("at", where), zap.Error(err))
		}
		p.push(&Node{Kind: KindBreak, Loc: p.loc(where), Break: kind})

	case "label":
		id := el.SelectAttrValue("id", "")
		if id == "" {
			p.log.Warn("Label without id, ignoring", zap.String("at", where))
			return nil
		}
		p.push(&Node{Kind: KindLabel, Loc: p.loc(where), Label: slug.Make(id)})

	default:
		p.log.Warn("Unexpected content tag, ignoring", zap.String("at", where))
	}

	return nil
}

func (p *preparer) parseBlock(el *etree.Element, where string) (*Node, error) {
	node := &Node{
		Kind:  KindBlock,
		Loc:   p.loc(where),
		Class: el.SelectAttrValue("class", ""),
	}

	if v := el.SelectAttrValue("breakable", ""); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid breakable attribute %q", where, v)
		}
		node.Breakable = &b
	}
	if v := el.SelectAttrValue("height", ""); v != "" {
		h, err := parseLength(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", where, err)
		}
		node.Height = h
	}

	for _, child := range el.ChildElements() {
		switch child.Tag {
		case "p":
			sub := &Node{
				Kind:  KindPara,
				Loc:   p.loc(where + "/p"),
				Class: child.SelectAttrValue("class", ""),
			}
			sub.Spans = p.parseSpans(child, where+"/p")
			node.Children = append(node.Children, sub)
		default:
			p.log.Warn("Unexpected tag in block, ignoring", zap.String("at", where), zap.String("tag", child.Tag))
		}
	}

	return node, nil
}

func (p *preparer) parseFigure(el *etree.Element, where string) (*Node, error) {
	node := &Node{
		Kind:    KindFigure,
		Loc:     p.loc(where),
		Class:   el.SelectAttrValue("class", ""),
		ImageID: strings.TrimPrefix(el.SelectAttrValue("src", ""), "#"),
	}

	var err error
	if node.Place, err = common.ParsePlacementPos(el.SelectAttrValue("place", "")); err != nil {
		return nil, fmt.Errorf("%s: %w", where, err)
	}
	if node.Scope, err = common.ParsePlacementScope(el.SelectAttrValue("scope", "")); err != nil {
		return nil, fmt.Errorf("%s: %w", where, err)
	}
	if v := el.SelectAttrValue("height", ""); v != "" {
		if node.Height, err = parseLength(v); err != nil {
			return nil, fmt.Errorf("%s: %w", where, err)
		}
	}
	if caption := el.SelectAttrValue("caption", ""); caption != "" {
		node.Children = append(node.Children, &Node{
			Kind:  KindPara,
			Loc:   p.loc(where + "/caption"),
			Class: "caption",
			Spans: []text.Span{{Text: caption}},
		})
	}

	return node, nil
}

// parseSpans reads mixed text and <note ref="..."/> markers from a paragraph.
func (p *preparer) parseSpans(el *etree.Element, where string) []text.Span {
	var spans []text.Span

	flushText := func(s string) {
		if s == "" {
			return
		}
		if n := len(spans); n > 0 && spans[n-1].NoteID == "" {
			spans[n-1].Text += s
			return
		}
		spans = append(spans, text.Span{Text: s})
	}

	for _, tok := range el.Child {
		switch t := tok.(type) {
		case *etree.CharData:
			flushText(collapseSpace(t.Data))
		case *etree.Element:
			if t.Tag != "note" {
				p.log.Warn("Unexpected inline tag, using text content", zap.String("at", where), zap.String("tag", t.Tag))
				flushText(collapseSpace(t.Text()))
				continue
			}
			ref := strings.TrimPrefix(t.SelectAttrValue("ref", ""), "#")
			if ref == "" {
				p.log.Warn("Footnote marker without ref, ignoring", zap.String("at", where))
				continue
			}
			spans = append(spans, text.Span{NoteID: ref})
		}
	}

	return spans
}

func (p *preparer) parseNotes(el *etree.Element) error {
	for _, child := range el.ChildElements() {
		if child.Tag != "note" {
			p.log.Warn("Unexpected tag in notes, ignoring", zap.String("tag", child.Tag))
			continue
		}
		id := child.SelectAttrValue("id", "")
		if id == "" {
			p.log.Warn("Footnote entry without id, skipping")
			continue
		}
		if _, exists := p.doc.Notes[id]; exists {
			p.log.Warn("Duplicate footnote entry, keeping first", zap.String("id", id))
			continue
		}

		note := &Note{ID: id, Loc: p.loc("notes/note")}
		for _, sub := range child.ChildElements() {
			if sub.Tag != "p" {
				p.log.Warn("Unexpected tag in footnote entry, ignoring", zap.String("id", id), zap.String("tag", sub.Tag))
				continue
			}
			note.Spans = append(note.Spans, p.parseSpans(sub, "notes/note/p")...)
		}
		p.doc.Notes[id] = note
	}
	return nil
}

// loc assigns the next ordinal with the element path for messages.
func (p *preparer) loc(path string) diag.Location {
	l := diag.Location{Ordinal: p.doc.nodes, Path: path}
	p.doc.nodes++
	return l
}

func (p *preparer) push(n *Node) {
	p.doc.Body = append(p.doc.Body, n)
}

// parseLength reads a length attribute: a number with an optional pt suffix.
func parseLength(s string) (geom.Abs, error) {
	v := strings.TrimSuffix(strings.TrimSpace(s), "pt")
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid length %q", s)
	}
	if f < 0 {
		return 0, fmt.Errorf("negative length %q", s)
	}
	return geom.Abs(f), nil
}

// collapseSpace folds any whitespace run into a single space.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
