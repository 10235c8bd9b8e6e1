// Package assets provides the stylesheet, page templates and scripts used
// to assemble note pages.
//
// # Loader Architecture
//
//	AssetLoader (interface)
//	    │
//	    ├── EmbeddedLoader    - loads from go:embed filesystem (defaults)
//	    ├── FilesystemLoader  - loads from a custom directory on disk
//	    └── AssetResolver     - combines both with custom-first fallback
//
// AssetResolver is the loader used by the converter. It tries the custom
// FilesystemLoader first and falls back to EmbeddedLoader when the asset is
// not found, so a site can override a single template while keeping the
// default stylesheet and scripts. StyleNames lists what --style accepts by
// name.
//
// # Directory Structure
//
//	{basePath}/
//	├── styles/
//	│   └── {name}.css      # page stylesheet (default.css)
//	├── templates/
//	│   └── {name}.html     # page.html, index.html
//	└── scripts/
//	    └── {name}.js       # notes.js, reload.js
//
// # Security
//
// Asset names are validated to prevent path traversal. FilesystemLoader
// resolves symlinks and verifies paths stay within basePath.
package assets
