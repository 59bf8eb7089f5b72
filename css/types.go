package css

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode"
)

// Value represents a parsed CSS property value.
type Value struct {
	Raw     string  // Original CSS value string (e.g., "1.2em", "all", "10pt")
	Value   float64 // Numeric value if applicable
	Unit    string  // Unit if applicable: "em", "pt", "px", "%"
	Keyword string  // Keyword if applicable: "rtl", "avoid", "page"
}

// IsNumeric returns true if the value has a numeric component.
// This includes explicit zero values like "0" or "0pt".
func (v Value) IsNumeric() bool {
	if v.Unit != "" {
		return true
	}
	if v.Value != 0 && v.Keyword == "" {
		return true
	}
	if v.Raw != "" && v.Keyword == "" {
		first := rune(v.Raw[0])
		if unicode.IsDigit(first) || first == '.' || first == '-' || first == '+' {
			return true
		}
	}
	return false
}

// IsKeyword returns true if the value is a keyword (no numeric component).
func (v Value) IsKeyword() bool {
	return v.Keyword != "" && v.Unit == ""
}

// Selector represents a parsed CSS selector. Only simple selectors are
// supported: element, .class and element.class.
type Selector struct {
	Raw     string // Original selector string
	Element string // Element name (e.g., "p", "block") or empty for class-only
	Class   string // Class name without dot or empty
}

// IsSimple returns true if the selector addresses an element or a class.
func (s Selector) IsSimple() bool {
	return s.Element != "" || s.Class != ""
}

// Matches reports whether the selector applies to a node with the given
// element name and class.
func (s Selector) Matches(element, class string) bool {
	if s.Element != "" && s.Element != element {
		return false
	}
	if s.Class != "" && s.Class != class {
		return false
	}
	return s.IsSimple()
}

// Specificity orders rules when several match: element < class < element.class.
func (s Selector) Specificity() int {
	n := 0
	if s.Element != "" {
		n++
	}
	if s.Class != "" {
		n += 2
	}
	return n
}

// Rule represents a single CSS rule (selector + properties).
type Rule struct {
	Selector   Selector
	Properties map[string]Value
}

// GetProperty returns the value for a property, or empty Value if not found.
func (r Rule) GetProperty(name string) (Value, bool) {
	v, ok := r.Properties[name]
	return v, ok
}

// Stylesheet represents a parsed stylesheet: rules in source order plus
// warnings for skipped constructs.
type Stylesheet struct {
	Rules    []Rule
	Warnings []string
}

// RulesFor returns all rules matching the element/class pair, ordered by
// ascending specificity with source order as tie break, so a caller can apply
// them in sequence and let later rules win.
func (s *Stylesheet) RulesFor(element, class string) []Rule {
	var matches []Rule
	for _, r := range s.Rules {
		if r.Selector.Matches(element, class) {
			matches = append(matches, r)
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Selector.Specificity() < matches[j].Selector.Specificity()
	})
	return matches
}

// WriteTo writes the stylesheet to w in source order, implementing
// io.WriterTo. Property order within a rule is sorted alphabetically so the
// output is deterministic; the layout cache hashes it.
func (s *Stylesheet) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for i, rule := range s.Rules {
		n, err := writeRule(w, &rule)
		total += int64(n)
		if err != nil {
			return total, err
		}
		if i < len(s.Rules)-1 {
			n, err = fmt.Fprint(w, "\n")
			total += int64(n)
			if err != nil {
				return total, err
			}
		}
	}
	return total, nil
}

// String returns the CSS text of the stylesheet.
func (s *Stylesheet) String() string {
	var sb strings.Builder
	s.WriteTo(&sb) //nolint:errcheck
	return sb.String()
}

func writeRule(w io.Writer, rule *Rule) (int, error) {
	var total int
	n, err := fmt.Fprintf(w, "%s {\n", rule.Selector.Raw)
	total += n
	if err != nil {
		return total, err
	}

	names := make([]string, 0, len(rule.Properties))
	for name := range rule.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		val := rule.Properties[name]
		n, err = fmt.Fprintf(w, "  %s: %s;\n", name, val.Raw)
		total += n
		if err != nil {
			return total, err
		}
	}

	n, err = fmt.Fprint(w, "}\n")
	total += n
	return total, err
}
