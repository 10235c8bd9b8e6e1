package texnotes

import "errors"

// Sentinel errors for library operations.
var (
	ErrEmptySource       = errors.New("source content cannot be empty")
	ErrReadSource        = errors.New("failed to read source")
	ErrReadAux           = errors.New("failed to read aux file")
	ErrInvalidOutputPath = errors.New("invalid output path")
	ErrTemplateRender    = errors.New("template rendering failed")
	ErrMarkdownRender    = errors.New("summary rendering failed")
	ErrWriteOutput       = errors.New("failed to write output")

	// Export errors.
	ErrBrowserConnect = errors.New("failed to connect to browser")
	ErrPageCreate     = errors.New("failed to create browser page")
	ErrPageLoad       = errors.New("failed to load page")
	ErrPDFGeneration  = errors.New("PDF generation failed")

	// Asset loading errors.
	ErrStyleNotFound    = errors.New("style not found")
	ErrTemplateNotFound = errors.New("template not found")
	ErrScriptNotFound   = errors.New("script not found")
	ErrInvalidAssetPath = errors.New("invalid asset path")
)
