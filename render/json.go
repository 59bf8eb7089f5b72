package render

import (
	"encoding/json"
	"fmt"

	"typeflow/diag"
	"typeflow/geom"
)

// jsonDoc is the serialized form shared by the JSON output flavor and the
// persistent layout cache. It carries everything a cache hit must replay.
type jsonDoc struct {
	Frames      []*jsonFrame `json:"frames"`
	Diagnostics []jsonDiag   `json:"diagnostics,omitempty"`
}

type jsonFrame struct {
	W     float64    `json:"w"`
	H     float64    `json:"h"`
	Items []jsonItem `json:"items,omitempty"`
}

// jsonItem is the union of all frame item kinds, discriminated by Type.
type jsonItem struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Type string  `json:"type"`

	Frame     *jsonFrame `json:"frame,omitempty"`
	Text      string     `json:"text,omitempty"`
	Size      float64    `json:"size,omitempty"`
	Kind      string     `json:"kind,omitempty"`
	Label     string     `json:"label,omitempty"`
	Length    float64    `json:"length,omitempty"`
	Thickness float64    `json:"thickness,omitempty"`
	Name      string     `json:"name,omitempty"`
	Ordinal   int        `json:"ordinal,omitempty"`
}

type jsonDiag struct {
	Severity string `json:"severity"`
	Ordinal  int    `json:"ordinal,omitempty"`
	Path     string `json:"path,omitempty"`
	Message  string `json:"message"`
}

// JSON renders frames and diagnostics as indented JSON for file output.
func JSON(frames []*geom.Frame, diags []diag.Diagnostic) ([]byte, error) {
	return json.MarshalIndent(encodeDoc(frames, diags), "", "  ")
}

// Encode serializes frames and diagnostics compactly. Decode inverts it.
func Encode(frames []*geom.Frame, diags []diag.Diagnostic) ([]byte, error) {
	return json.Marshal(encodeDoc(frames, diags))
}

// Decode rebuilds frames and diagnostics from data produced by Encode or JSON.
func Decode(data []byte) ([]*geom.Frame, []diag.Diagnostic, error) {
	var doc jsonDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("decode layout: %w", err)
	}
	frames := make([]*geom.Frame, 0, len(doc.Frames))
	for i, jf := range doc.Frames {
		f, err := decodeFrame(jf)
		if err != nil {
			return nil, nil, fmt.Errorf("decode frame %d: %w", i, err)
		}
		frames = append(frames, f)
	}
	var diags []diag.Diagnostic
	for _, jd := range doc.Diagnostics {
		d, err := decodeDiag(jd)
		if err != nil {
			return nil, nil, err
		}
		diags = append(diags, d)
	}
	return frames, diags, nil
}

func encodeDoc(frames []*geom.Frame, diags []diag.Diagnostic) *jsonDoc {
	doc := &jsonDoc{Frames: make([]*jsonFrame, 0, len(frames))}
	for _, f := range frames {
		doc.Frames = append(doc.Frames, encodeFrame(f))
	}
	for _, d := range diags {
		doc.Diagnostics = append(doc.Diagnostics, jsonDiag{
			Severity: d.Severity.String(),
			Ordinal:  d.Loc.Ordinal,
			Path:     d.Loc.Path,
			Message:  d.Message,
		})
	}
	return doc
}

func encodeFrame(f *geom.Frame) *jsonFrame {
	jf := &jsonFrame{W: f.Width().Points(), H: f.Height().Points()}
	for _, p := range f.Items() {
		ji := jsonItem{X: p.Pos.X.Points(), Y: p.Pos.Y.Points()}
		switch it := p.Item.(type) {
		case geom.GroupItem:
			ji.Type = "group"
			ji.Frame = encodeFrame(it.Frame)
		case geom.TextItem:
			ji.Type = "text"
			ji.Text = it.Text
			ji.Size = it.Size.Points()
		case geom.ElemItem:
			ji.Type = "elem"
			ji.Kind = it.Kind
			ji.Label = it.Label
		case geom.RuleItem:
			ji.Type = "rule"
			ji.Length = it.Length.Points()
			ji.Thickness = it.Thickness.Points()
		case geom.TagItem:
			ji.Type = "tag"
			ji.Name = it.Name
			ji.Ordinal = it.Ordinal
		}
		jf.Items = append(jf.Items, ji)
	}
	return jf
}

func decodeFrame(jf *jsonFrame) (*geom.Frame, error) {
	f := geom.NewFrame(geom.Size{W: geom.Abs(jf.W), H: geom.Abs(jf.H)})
	for _, ji := range jf.Items {
		pos := geom.Point{X: geom.Abs(ji.X), Y: geom.Abs(ji.Y)}
		switch ji.Type {
		case "group":
			if ji.Frame == nil {
				return nil, fmt.Errorf("group item without frame")
			}
			sub, err := decodeFrame(ji.Frame)
			if err != nil {
				return nil, err
			}
			f.PushFrame(pos, sub)
		case "text":
			f.Push(pos, geom.TextItem{Text: ji.Text, Size: geom.Abs(ji.Size)})
		case "elem":
			f.Push(pos, geom.ElemItem{Kind: ji.Kind, Label: ji.Label})
		case "rule":
			f.Push(pos, geom.RuleItem{Length: geom.Abs(ji.Length), Thickness: geom.Abs(ji.Thickness)})
		case "tag":
			f.Push(pos, geom.TagItem{Name: ji.Name, Ordinal: ji.Ordinal})
		default:
			return nil, fmt.Errorf("unknown frame item type %q", ji.Type)
		}
	}
	return f, nil
}

func decodeDiag(jd jsonDiag) (diag.Diagnostic, error) {
	d := diag.Diagnostic{
		Loc:     diag.Location{Ordinal: jd.Ordinal, Path: jd.Path},
		Message: jd.Message,
	}
	switch jd.Severity {
	case diag.SeverityWarning.String():
		d.Severity = diag.SeverityWarning
	case diag.SeverityError.String():
		d.Severity = diag.SeverityError
	default:
		return d, fmt.Errorf("unknown diagnostic severity %q", jd.Severity)
	}
	return d, nil
}
