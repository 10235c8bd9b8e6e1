package assets

import (
	"io/fs"
	"sort"
	"strings"
)

// StyleNames lists the embedded styles.
func StyleNames() []string {
	return listNames(files, kindStyle)
}

// listNames returns the sorted asset names of kind k found in fsys.
func listNames(fsys fs.FS, k assetKind) []string {
	entries, err := fs.ReadDir(fsys, k.dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), k.ext) {
			continue
		}
		name := strings.TrimSuffix(e.Name(), k.ext)
		if ValidateAssetName(name) == nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
