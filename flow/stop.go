package flow

import (
	"typeflow/common"
	"typeflow/diag"
)

type stopKind int

const (
	stopFinish stopKind = iota
	stopRelayout
	stopError
)

// Stop is a control flow event raised deep in distribution and handled by the
// composer or the region loop. It is deliberately not an error: callers must
// match on the kind and handle every variant.
type Stop struct {
	kind stopKind

	// forced marks an explicit break request as opposed to running out of
	// space; region additionally widens a column break to a region break.
	forced bool
	region bool

	// scope to redo for stopRelayout.
	scope common.PlacementScope

	// diags for stopError.
	diags []diag.Diagnostic
}

// finish signals that the current subregion is full (forced=false) or was
// ended by an explicit break (forced=true).
func finish(forced bool) *Stop {
	return &Stop{kind: stopFinish, forced: forced}
}

// finishRegion signals an explicit region break.
func finishRegion() *Stop {
	return &Stop{kind: stopFinish, forced: true, region: true}
}

// relayout signals that the given scope must be composed again with the
// pending insertion pre-applied.
func relayout(scope common.PlacementScope) *Stop {
	return &Stop{kind: stopRelayout, scope: scope}
}

// fatal wraps diagnostics that abort the whole flow invocation.
func fatal(ds ...diag.Diagnostic) *Stop {
	return &Stop{kind: stopError, diags: ds}
}
