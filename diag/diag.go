// Package diag defines source-located diagnostics produced during layout and
// the sink collecting them.
package diag

import (
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Severity of a diagnostic.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// Location identifies a node in the realized source. Ordinal is the node's
// position in document order and doubles as its stable identity; Path is a
// human readable element path for messages.
type Location struct {
	Ordinal int
	Path    string
}

func (l Location) String() string {
	if l.Path == "" {
		return fmt.Sprintf("#%d", l.Ordinal)
	}
	return l.Path
}

// Diagnostic is a single source-located message.
type Diagnostic struct {
	Severity Severity
	Loc      Location
	Message  string
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s: %s", d.Severity, d.Loc, d.Message)
}

// Errorf builds an error-severity diagnostic.
func Errorf(loc Location, format string, args ...any) Diagnostic {
	return Diagnostic{Severity: SeverityError, Loc: loc, Message: fmt.Sprintf(format, args...)}
}

// Warnf builds a warning-severity diagnostic.
func Warnf(loc Location, format string, args ...any) Diagnostic {
	return Diagnostic{Severity: SeverityWarning, Loc: loc, Message: fmt.Sprintf(format, args...)}
}

// Sink accumulates diagnostics in discovery order. A layout invocation owns
// exactly one sink; memoized invocations replay recorded diagnostics into the
// caller's sink so a cache hit is observationally identical to a recompute.
type Sink struct {
	log  *zap.Logger
	list []Diagnostic
}

// NewSink creates a sink. Warnings are mirrored to log as they arrive; pass
// nil to keep the sink silent.
func NewSink(log *zap.Logger) *Sink {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sink{log: log}
}

// Report appends a diagnostic.
func (s *Sink) Report(d Diagnostic) {
	s.list = append(s.list, d)
	if d.Severity == SeverityWarning {
		s.log.Warn(d.Message, zap.Stringer("at", d.Loc))
	}
}

// Extend appends diagnostics preserving their order.
func (s *Sink) Extend(ds []Diagnostic) {
	for _, d := range ds {
		s.Report(d)
	}
}

// All returns the accumulated diagnostics in order.
func (s *Sink) All() []Diagnostic {
	return s.list
}

// Combine collapses a diagnostic list into a single error, or nil when the
// list is empty.
func Combine(ds []Diagnostic) error {
	var err error
	for _, d := range ds {
		err = multierr.Append(err, d)
	}
	return err
}
