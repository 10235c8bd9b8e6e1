package assets

import "errors"

var (
	ErrStyleNotFound    = errors.New("style not found")
	ErrTemplateNotFound = errors.New("template not found")
	ErrScriptNotFound   = errors.New("script not found")

	// ErrInvalidAssetName rejects names with path separators or "..".
	ErrInvalidAssetName = errors.New("invalid asset name")
	ErrInvalidBasePath  = errors.New("invalid asset directory")
	ErrAssetRead        = errors.New("failed to read asset")

	// ErrPathTraversal rejects files, symlink targets included, that lie
	// outside the asset directory.
	ErrPathTraversal = errors.New("path traversal detected")
)
