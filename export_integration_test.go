//go:build integration

package texnotes

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestExporter_ExportFile(t *testing.T) {
	aux := writeTestFile(t, t.TempDir(), "notes.aux", testAux)
	conv := newTestConverter(t, WithAuxPath(aux))

	res, err := conv.Convert(context.Background(), Input{Source: testSource, OutputRel: "limits.html"})
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	page := filepath.Join(t.TempDir(), "limits.html")
	if err := os.WriteFile(page, res.HTML, 0o644); err != nil {
		t.Fatalf("write page: %v", err)
	}

	e := NewExporter(60 * time.Second)
	defer e.Close()

	pdf, err := e.ExportFile(context.Background(), page)
	if err != nil {
		t.Fatalf("ExportFile() error = %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Errorf("output is not a PDF (starts with %q)", pdf[:min(8, len(pdf))])
	}
}

func TestExporter_ExportHTML(t *testing.T) {
	e := NewExporter(60 * time.Second)
	defer e.Close()

	pdf, err := e.ExportHTML(context.Background(), `<html><body data-math-ready="true"><p>plain</p></body></html>`)
	if err != nil {
		t.Fatalf("ExportHTML() error = %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Error("output is not a PDF")
	}
}
