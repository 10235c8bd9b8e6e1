package pipeline

import (
	"reflect"
	"testing"
)

func TestCheckAnchors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		input         string
		wantDuplicate []string
		wantDangling  []string
	}{
		{
			name:  "clean fragment",
			input: `<a class="ref" href="#t:1">1</a><div id="t:1"></div>`,
		},
		{
			name:          "duplicate and dangling",
			input:         `<div id="d"></div><span id="d"></span><a href="#missing">m</a><a href="#missing">again</a>`,
			wantDuplicate: []string{"d"},
			wantDangling:  []string{"missing"},
		},
		{
			name:  "full document with external links",
			input: `<!DOCTYPE html><html><body><a href="../index.html">home</a><a href="#">top</a><h2 id="s"></h2><a href="#s">s</a></body></html>`,
		},
		{
			name:         "entity in id",
			input:        `<a href="#a&amp;b">x</a>`,
			wantDangling: []string{"a&b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rep := NewReporter(nil)
			report, err := CheckAnchors(tt.input, rep)
			if err != nil {
				t.Fatalf("CheckAnchors() error = %v", err)
			}
			if !reflect.DeepEqual(report.DuplicateIDs, tt.wantDuplicate) {
				t.Errorf("DuplicateIDs = %v, want %v", report.DuplicateIDs, tt.wantDuplicate)
			}
			if !reflect.DeepEqual(report.Dangling, tt.wantDangling) {
				t.Errorf("Dangling = %v, want %v", report.Dangling, tt.wantDangling)
			}
			wantOK := len(tt.wantDuplicate) == 0 && len(tt.wantDangling) == 0
			if report.OK() != wantOK {
				t.Errorf("OK() = %v, want %v", report.OK(), wantOK)
			}
			if got, want := rep.Count(DiagAnchor), len(tt.wantDuplicate)+len(tt.wantDangling); got != want {
				t.Errorf("anchor diagnostics = %d, want %d", got, want)
			}
		})
	}
}
