package assets

// assetKind describes where one kind of asset lives.
type assetKind struct {
	dir      string
	ext      string
	notFound error
}

var (
	kindStyle    = assetKind{dir: "styles", ext: ".css", notFound: ErrStyleNotFound}
	kindTemplate = assetKind{dir: "templates", ext: ".html", notFound: ErrTemplateNotFound}
	kindScript   = assetKind{dir: "scripts", ext: ".js", notFound: ErrScriptNotFound}
)
