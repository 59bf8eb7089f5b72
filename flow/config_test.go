package flow

import (
	"testing"

	"typeflow/common"
	"typeflow/css"
	"typeflow/geom"
)

func TestConfigurationColumnGeometry(t *testing.T) {
	shared := css.Default()
	shared.ColumnCount = 3
	shared.ColumnGap = 10
	regions := geom.NewRegions(geom.Size{W: 320, H: 500}, geom.Axes[bool]{})

	cfg := configuration(shared, regions, common.FlowModeRoot)
	if cfg.Columns.Count != 3 {
		t.Errorf("column count = %d, want 3", cfg.Columns.Count)
	}
	if !cfg.Columns.Width.Approx(100) {
		t.Errorf("column width = %s, want 100pt", cfg.Columns.Width)
	}
	if !cfg.Columns.Gutter.Approx(10) {
		t.Errorf("gutter = %s, want 10pt", cfg.Columns.Gutter)
	}
}

func TestConfigurationNestedModeSingleColumn(t *testing.T) {
	shared := css.Default()
	shared.ColumnCount = 3
	shared.LineNumbers = true
	regions := geom.NewRegions(geom.Size{W: 320, H: 500}, geom.Axes[bool]{})

	cfg := configuration(shared, regions, common.FlowModeBlock)
	if cfg.Columns.Count != 1 {
		t.Errorf("column count = %d, want 1 in nested mode", cfg.Columns.Count)
	}
	if !cfg.Columns.Width.Approx(320) {
		t.Errorf("column width = %s, want full 320pt", cfg.Columns.Width)
	}
	if cfg.LineNumbers != nil {
		t.Error("line numbers active in nested mode")
	}
	if cfg.Footnote.Clearance != 0 {
		t.Error("footnote configuration active in nested mode")
	}
}

func TestConfigurationUnboundedWidthSingleColumn(t *testing.T) {
	shared := css.Default()
	shared.ColumnCount = 2
	regions := geom.NewRegions(geom.Size{W: geom.Inf(), H: 500}, geom.Axes[bool]{})

	cfg := configuration(shared, regions, common.FlowModeRoot)
	if cfg.Columns.Count != 1 {
		t.Errorf("column count = %d, want 1 for unbounded width", cfg.Columns.Count)
	}
}

func TestLineNumberClearance(t *testing.T) {
	shared := css.Default()

	tests := []struct {
		name     string
		explicit geom.Abs
		width    geom.Abs
		want     geom.Abs
	}{
		{name: "explicit wins", explicit: 12, width: 100, want: 12},
		{name: "narrow clamps low", width: 100, want: 7.5},
		{name: "derived", width: 500, want: 13},
		{name: "wide clamps high", width: 2000, want: 25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shared.LineNumberClearance = tt.explicit
			if got := lineNumberClearance(shared, tt.width); !got.Approx(tt.want) {
				t.Errorf("lineNumberClearance(%s) = %s, want %s", tt.width, got, tt.want)
			}
		})
	}
}
