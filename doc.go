// Package texnotes converts a constrained subset of LaTeX into styled HTML
// pages for a study-notes website.
//
// # Quick Start
//
//	conv, err := texnotes.NewConverter(
//		texnotes.WithAuxPath("build/notes.aux"),
//		texnotes.WithSiteTitle("Analysis"),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	res, err := conv.Convert(ctx, texnotes.Input{
//		Source:    source,
//		OutputRel: "ch1/limits.html",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	os.WriteFile("site/ch1/limits.html", res.HTML, 0o644)
//
// # Pipeline
//
// Each conversion preprocesses the source (line endings, comments, HTML
// metacharacters, document wrapper), resolves labels from the compiled aux
// file, extracts theorem and proof environments, then sections, figures,
// lists and listings, renders every element (bodies recursively), splices
// the fragments back by offset, wraps paragraphs, links references, applies
// inline formatting and assembles the page with navigation and KaTeX.
//
// Problems that do not stop the conversion (unresolved references, missing
// aux file, unterminated environments, malformed images, dangling anchors)
// are returned as Diagnostics and logged through the configured zap logger.
//
// # Concurrency
//
// A Converter holds no per-document state and is safe for concurrent use.
// Exporter drives one headless browser and is not; use ExporterPool to
// export in parallel.
//
// # Errors
//
// Fatal errors wrap the sentinels in errors.go and can be checked with
// errors.Is:
//
//	if errors.Is(err, texnotes.ErrEmptySource) { ... }
package texnotes
