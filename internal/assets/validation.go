package assets

import (
	"fmt"
)

// maxAssetNameLength bounds asset names; they become file names on disk.
const maxAssetNameLength = 64

// ValidateAssetName checks that an asset name is safe for use as a file name.
// Only ASCII letters, digits, '-' and '_' are accepted, which rules out path
// separators, extension dots and traversal sequences.
func ValidateAssetName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidAssetName)
	}
	if len(name) > maxAssetNameLength {
		return fmt.Errorf("%w: longer than %d characters", ErrInvalidAssetName, maxAssetNameLength)
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return fmt.Errorf("%w: %q", ErrInvalidAssetName, name)
		}
	}
	return nil
}
