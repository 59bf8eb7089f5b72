package css

import (
	"testing"

	"go.uber.org/zap/zaptest"

	"typeflow/geom"
)

func TestParseSimpleRules(t *testing.T) {
	sheet := NewParser(zaptest.NewLogger(t)).Parse([]byte(`
document { column-count: 2; column-gap: 20pt }
p.title { font-size: 14pt }
.caption { font-size: 8pt }
`))

	if len(sheet.Rules) != 3 {
		t.Fatalf("got %d rules, want 3", len(sheet.Rules))
	}

	doc := sheet.Rules[0]
	if doc.Selector.Element != "document" || doc.Selector.Class != "" {
		t.Errorf("rule 0 selector = %+v, want element 'document'", doc.Selector)
	}
	if v, ok := doc.GetProperty("column-count"); !ok || v.Value != 2 {
		t.Errorf("column-count = %+v, want numeric 2", v)
	}
	if v, ok := doc.GetProperty("column-gap"); !ok || v.Value != 20 || v.Unit != "pt" {
		t.Errorf("column-gap = %+v, want 20pt", v)
	}

	title := sheet.Rules[1]
	if title.Selector.Element != "p" || title.Selector.Class != "title" {
		t.Errorf("rule 1 selector = %+v, want p.title", title.Selector)
	}
	caption := sheet.Rules[2]
	if caption.Selector.Element != "" || caption.Selector.Class != "caption" {
		t.Errorf("rule 2 selector = %+v, want .caption", caption.Selector)
	}
}

func TestParseSkipsUnsupportedConstructs(t *testing.T) {
	sheet := NewParser(zaptest.NewLogger(t)).Parse([]byte(`
p > em { font-size: 12pt }
p:first-child { font-size: 12pt }
@media print { p { font-size: 12pt } }
p { margin-top: 4pt }
`))

	if len(sheet.Rules) != 1 {
		t.Fatalf("got %d rules, want only the plain p rule", len(sheet.Rules))
	}
	if sheet.Rules[0].Selector.Element != "p" {
		t.Errorf("kept rule selector = %+v, want p", sheet.Rules[0].Selector)
	}
	if len(sheet.Warnings) < 2 {
		t.Errorf("warnings = %v, want the skipped selectors recorded", sheet.Warnings)
	}
}

func TestRulesForSpecificityOrder(t *testing.T) {
	sheet := NewParser(zaptest.NewLogger(t)).Parse([]byte(`
p.title { font-size: 16pt }
p { font-size: 12pt }
.title { font-size: 14pt }
`))

	rules := sheet.RulesFor("p", "title")
	if len(rules) != 3 {
		t.Fatalf("got %d matching rules, want 3", len(rules))
	}
	// Ascending specificity: element, class, element.class.
	want := []string{"p", ".title", "p.title"}
	for i, raw := range want {
		if rules[i].Selector.Raw != raw {
			t.Errorf("rule %d = %q, want %q", i, rules[i].Selector.Raw, raw)
		}
	}

	if got := sheet.RulesFor("block", ""); len(got) != 0 {
		t.Errorf("RulesFor(block) matched %d rules, want 0", len(got))
	}
}

func TestResolverAppliesProperties(t *testing.T) {
	log := zaptest.NewLogger(t)
	sheet := NewParser(log).Parse([]byte(`
p { font-size: 12pt; line-height: 1.5; margin-bottom: 2em; break-inside: avoid; direction: rtl }
`))

	st := NewResolver(sheet, log).For("p", "", Default())
	if !st.FontSize.Approx(12) {
		t.Errorf("FontSize = %s, want 12pt", st.FontSize)
	}
	// Unitless line-height multiplies the resolved font size.
	if !st.LineHeight.Approx(18) {
		t.Errorf("LineHeight = %s, want 18pt", st.LineHeight)
	}
	if !st.SpaceBelow.Approx(24) {
		t.Errorf("SpaceBelow = %s, want 24pt (2em of 12pt)", st.SpaceBelow)
	}
	if st.Breakable {
		t.Error("break-inside: avoid did not clear Breakable")
	}
	if st.Dir != geom.RTL {
		t.Error("direction: rtl not applied")
	}
}

func TestResolverSpecificityWins(t *testing.T) {
	log := zaptest.NewLogger(t)
	sheet := NewParser(log).Parse([]byte(`
p.title { font-size: 16pt }
p { font-size: 12pt }
`))

	r := NewResolver(sheet, log)
	if st := r.For("p", "title", Default()); !st.FontSize.Approx(16) {
		t.Errorf("p.title FontSize = %s, want 16pt", st.FontSize)
	}
	if st := r.For("p", "", Default()); !st.FontSize.Approx(12) {
		t.Errorf("p FontSize = %s, want 12pt", st.FontSize)
	}
}

func TestResolverIgnoresUnknownProperties(t *testing.T) {
	log := zaptest.NewLogger(t)
	sheet := NewParser(log).Parse([]byte(`p { text-shadow: none; font-size: 11pt }`))

	st := NewResolver(sheet, log).For("p", "", Default())
	if !st.FontSize.Approx(11) {
		t.Errorf("FontSize = %s, want 11pt despite unknown sibling property", st.FontSize)
	}
}

func TestResolverFootnoteAndNumberingProperties(t *testing.T) {
	log := zaptest.NewLogger(t)
	sheet := NewParser(log).Parse([]byte(`
document {
  footnote-clearance: 10pt;
  footnote-gap: 4pt;
  footnote-separator-length: 50%;
  line-numbers: on;
  line-numbers-scope: page;
}
`))

	st := NewResolver(sheet, log).For("document", "", Default())
	if !st.FootnoteClearance.Approx(10) || !st.FootnoteGap.Approx(4) {
		t.Errorf("footnote spacing = %s/%s, want 10pt/4pt", st.FootnoteClearance, st.FootnoteGap)
	}
	if st.FootnoteSepLength != 0.5 {
		t.Errorf("FootnoteSepLength = %v, want 0.5", st.FootnoteSepLength)
	}
	if !st.LineNumbers {
		t.Error("line-numbers: on not applied")
	}
	if st.LineNumberScope.String() != "page" {
		t.Errorf("LineNumberScope = %s, want page", st.LineNumberScope)
	}
}

func TestStylesheetStringDeterministic(t *testing.T) {
	src := []byte(`p { margin-top: 4pt; font-size: 12pt }`)
	p := NewParser(zaptest.NewLogger(t))

	first := p.Parse(src).String()
	for i := 0; i < 8; i++ {
		if got := p.Parse(src).String(); got != first {
			t.Fatalf("String() varies between parses:\n%s\nvs\n%s", first, got)
		}
	}
}
