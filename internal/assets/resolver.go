package assets

import (
	"errors"
	"slices"
)

// AssetResolver reads assets from an override directory first and falls
// back to the embedded set for anything the directory lacks.
type AssetResolver struct {
	custom   *FilesystemLoader // nil without an override directory
	embedded *EmbeddedLoader
}

// NewAssetResolver creates an AssetResolver. An empty customBasePath
// means embedded assets only.
func NewAssetResolver(customBasePath string) (*AssetResolver, error) {
	r := &AssetResolver{embedded: NewEmbeddedLoader()}
	if customBasePath != "" {
		fsLoader, err := NewFilesystemLoader(customBasePath)
		if err != nil {
			return nil, err
		}
		r.custom = fsLoader
	}
	return r, nil
}

func (r *AssetResolver) LoadStyle(name string) (string, error) {
	return r.load(kindStyle, name)
}

func (r *AssetResolver) LoadTemplate(name string) (string, error) {
	return r.load(kindTemplate, name)
}

func (r *AssetResolver) LoadScript(name string) (string, error) {
	return r.load(kindScript, name)
}

// StyleNames lists every style the resolver can load.
func (r *AssetResolver) StyleNames() []string {
	names := StyleNames()
	if r.custom != nil {
		names = append(names, r.custom.StyleNames()...)
		slices.Sort(names)
		names = slices.Compact(names)
	}
	return names
}

// load only falls back on "not found"; invalid names and read errors from
// the override directory are returned as is.
func (r *AssetResolver) load(k assetKind, name string) (string, error) {
	if r.custom != nil {
		content, err := r.custom.load(k, name)
		if !errors.Is(err, k.notFound) {
			return content, err
		}
	}
	return r.embedded.load(k, name)
}

var _ AssetLoader = (*AssetResolver)(nil)
