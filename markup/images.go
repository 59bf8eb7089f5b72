package markup

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/beevik/etree"
	"github.com/h2non/filetype"
	"github.com/srwiley/oksvg"
	"go.uber.org/zap"

	"typeflow/geom"
)

// Binary objects carry embedded images. We decode them once during prepare so
// the layout classifier works with known intrinsic sizes and never revisits
// the payload.

// pxToPt converts intrinsic pixel sizes at the CSS reference 96dpi.
const pxToPt = 72.0 / 96.0

func (p *preparer) parseBinary(el *etree.Element) error {
	id := el.SelectAttrValue("id", "")
	if id == "" {
		return fmt.Errorf("binary without id")
	}
	if _, exists := p.doc.Images[id]; exists {
		p.log.Warn("Duplicate binary, keeping first", zap.String("id", id))
		return nil
	}

	data, err := base64.StdEncoding.DecodeString(collapseSpace(el.Text()))
	if err != nil {
		return fmt.Errorf("binary %q: %w", id, err)
	}

	img, err := decodeImage(id, el.SelectAttrValue("content-type", ""), data)
	if err != nil {
		p.log.Warn("Unable to decode binary, skipping", zap.String("id", id), zap.Error(err))
		return nil
	}

	p.doc.Images[id] = img
	p.log.Debug("Prepared image", zap.String("id", id), zap.String("type", img.MimeType),
		zap.Stringer("width", img.Width), zap.Stringer("height", img.Height))
	return nil
}

// decodeImage sniffs the payload type and extracts intrinsic dimensions.
// The declared content-type is advisory only; old documents lie about it.
func decodeImage(id, declared string, data []byte) (*Image, error) {
	kind, err := filetype.Match(data)
	if err != nil {
		return nil, fmt.Errorf("sniffing type: %w", err)
	}

	mime := kind.MIME.Value
	if mime == "" {
		mime = declared
	}

	if mime == "image/svg+xml" || looksLikeSVG(data) {
		return decodeSVG(id, data)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", mime, err)
	}

	return &Image{
		ID:       id,
		MimeType: mime,
		Width:    geom.Abs(float64(cfg.Width) * pxToPt),
		Height:   geom.Abs(float64(cfg.Height) * pxToPt),
		Data:     data,
	}, nil
}

// decodeSVG takes the intrinsic size from the SVG viewbox.
func decodeSVG(id string, data []byte) (*Image, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing svg: %w", err)
	}
	w := icon.ViewBox.W
	h := icon.ViewBox.H
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("svg without usable viewbox")
	}
	return &Image{
		ID:       id,
		MimeType: "image/svg+xml",
		Width:    geom.Abs(w * pxToPt),
		Height:   geom.Abs(h * pxToPt),
		Data:     data,
	}, nil
}

// looksLikeSVG catches svg payloads that filetype cannot identify because
// they start with xml prolog or comments.
func looksLikeSVG(data []byte) bool {
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	return bytes.Contains(head, []byte("<svg"))
}
