package texnotes

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/alnah/go-texnotes/internal/fileutil"
	"github.com/alnah/go-texnotes/internal/process"
)

// PageExporter prints a built page to PDF. Exporter is the browser-backed
// implementation; batches depend on the interface so they can run without one.
type PageExporter interface {
	ExportFile(ctx context.Context, htmlPath string) ([]byte, error)
	Close() error
}

// Compile-time interface check.
var _ PageExporter = (*Exporter)(nil)

// Paper size in inches (A4).
const (
	paperWidthInches  = 8.27
	paperHeightInches = 11.69
	marginInches      = 0.6
)

// Scripts run in the page before printing.
const (
	mathReadyJS = `() => document.body.dataset.mathReady === "true"`
	expandAllJS = `() => {
	if (typeof window.texnotesExpandAll === "function") {
		window.texnotesExpandAll();
	}
	document.querySelectorAll(".collapsible.collapsed").forEach(el => el.classList.remove("collapsed"));
}`
)

// Exporter prints built pages to PDF with headless Chrome via go-rod.
// Rod downloads Chromium on first run if no browser is found.
// An Exporter is not safe for concurrent use; see ExporterPool.
type Exporter struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	timeout  time.Duration
}

// NewExporter creates an Exporter. The browser is launched on first use.
func NewExporter(timeout time.Duration) *Exporter {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Exporter{timeout: timeout}
}

// ensureBrowser lazily connects to the browser.
func (e *Exporter) ensureBrowser() error {
	if e.browser != nil {
		return nil
	}

	l := launcher.New()

	// Use pre-installed browser if specified (Docker/containerized environments)
	if bin := os.Getenv("ROD_BROWSER_BIN"); bin != "" {
		l = l.Bin(bin)
	}
	// NoSandbox required for CI and containerized environments
	if os.Getenv("CI") == "true" || os.Getenv("ROD_BROWSER_BIN") != "" || os.Getenv("ROD_NO_SANDBOX") == "1" {
		l = l.NoSandbox(true)
	}
	u, err := l.Launch()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}
	e.launcher = l

	e.browser = rod.New().ControlURL(u)
	if err := e.browser.Connect(); err != nil {
		e.browser = nil
		e.killBrowser()
		return fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}
	return nil
}

// Close releases browser resources.
func (e *Exporter) Close() error {
	var err error
	if e.browser != nil {
		err = e.browser.Close()
		e.browser = nil
	}
	e.killBrowser()
	return err
}

// killBrowser stops Chrome and its renderer processes. browser.Close asks
// politely; GPU and zygote children can outlive it.
func (e *Exporter) killBrowser() {
	if e.launcher == nil {
		return
	}
	if pid := e.launcher.PID(); pid > 0 {
		_ = process.KillProcessGroup(pid)
	}
	e.launcher.Kill()
	e.launcher = nil
}

// ExportFile opens a built page, expands every collapsible block, waits for
// KaTeX to finish and prints the page to PDF.
func (e *Exporter) ExportFile(ctx context.Context, htmlPath string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(htmlPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}
	if err := e.ensureBrowser(); err != nil {
		return nil, err
	}

	page, err := e.browser.Page(proto.TargetCreateTarget{URL: fileURL(abs)})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
	}
	defer page.Close()

	timeout := e.timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return nil, context.DeadlineExceeded
		}
	}
	p := page.Context(ctx).Timeout(timeout)

	if err := p.WaitLoad(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}
	if err := p.Wait(rod.Eval(mathReadyJS)); err != nil {
		return nil, fmt.Errorf("%w: waiting for math: %v", ErrPageLoad, err)
	}
	if _, err := p.Eval(expandAllJS); err != nil {
		return nil, fmt.Errorf("%w: expanding proofs: %v", ErrPDFGeneration, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reader, err := p.PDF(buildPDFOptions())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPDFGeneration, err)
	}
	pdf, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: reading PDF stream: %v", ErrPDFGeneration, err)
	}
	return pdf, nil
}

// ExportHTML prints an HTML document held in memory. Relative links in the
// document resolve against the temp directory, so prefer ExportFile for
// pages with local images.
func (e *Exporter) ExportHTML(ctx context.Context, htmlContent string) ([]byte, error) {
	tmpPath, cleanup, err := fileutil.WriteTempFile(htmlContent, "html")
	if err != nil {
		return nil, err
	}
	defer cleanup()
	return e.ExportFile(ctx, tmpPath)
}

// buildPDFOptions constructs the print settings: A4 with backgrounds and a
// page-number footer.
func buildPDFOptions() *proto.PagePrintToPDF {
	return &proto.PagePrintToPDF{
		PaperWidth:          floatPtr(paperWidthInches),
		PaperHeight:         floatPtr(paperHeightInches),
		MarginTop:           floatPtr(marginInches),
		MarginBottom:        floatPtr(marginInches),
		MarginLeft:          floatPtr(marginInches),
		MarginRight:         floatPtr(marginInches),
		PrintBackground:     true,
		DisplayHeaderFooter: true,
		HeaderTemplate:      "<span></span>",
		FooterTemplate:      `<div style="font-size:9px;color:#888;width:100%;text-align:center;"><span class="pageNumber"></span> / <span class="totalPages"></span></div>`,
	}
}

// fileURL converts an absolute path into a file:// URL.
func fileURL(abs string) string {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	if u.Path != "" && u.Path[0] != '/' {
		u.Path = "/" + u.Path // Windows drive letters
	}
	return u.String()
}

func floatPtr(v float64) *float64 {
	return &v
}
