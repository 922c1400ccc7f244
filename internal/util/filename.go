package util

import (
	"path/filepath"
	"strings"
)

// SafeDownloadName builds a content-disposition filename from a product's
// display name and the extension of its stored file. Characters outside
// [A-Za-z0-9-_ ] are stripped from the name.
func SafeDownloadName(displayName, filePath string) string {
	var b strings.Builder
	for _, r := range displayName {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_' || r == ' ':
			b.WriteRune(r)
		}
	}
	name := b.String()
	if name == "" {
		name = "download"
	}
	ext := strings.TrimPrefix(filepath.Ext(filePath), ".")
	if ext == "" {
		return name
	}
	return name + "." + ext
}
