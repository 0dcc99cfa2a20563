package constants

import "strings"

// Format tags for the declared source document type.
const (
	PDF  = "PDF"
	XLSX = "XLSX"
	XLS  = "XLS"
)

// AllowedExtensions maps accepted file extensions to their format tag.
var AllowedExtensions = map[string]string{
	"pdf":  PDF,
	"xlsx": XLSX,
	"xls":  XLS,
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToFormat resolves a file extension to its format tag.
// Returns "" for unsupported extensions.
func MapExtToFormat(ext string) string {
	return AllowedExtensions[NormalizeExt(ext)]
}
