package assets

// AssetLoader loads one asset by name, without its extension. A missing
// asset yields the not-found error of its kind; a bad name yields
// ErrInvalidAssetName.
type AssetLoader interface {
	LoadStyle(name string) (string, error)
	LoadTemplate(name string) (string, error)
	LoadScript(name string) (string, error)
}
