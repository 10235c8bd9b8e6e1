package assets

// Built-in asset names.
const (
	DefaultStyleName  = "default"
	PageTemplateName  = "page"
	IndexTemplateName = "index"
	NotesScriptName   = "notes"
	ReloadScriptName  = "reload"
)
