// Package fname derives suggested filenames for downloaded content,
// preferring the Content-Disposition response header and falling back
// to the last element of the URL path.
package fname

import (
	"mime"
	"path"
	"strings"
)

// DefaultName is returned by FromPath when the URL path carries no
// usable file name.
const DefaultName = "download"

// FromContentDisposition extracts the filename parameter from a
// Content-Disposition header value. The second return value reports
// whether a usable name was found. Any directory components in the
// parameter are stripped, so a hostile header cannot point outside
// the destination directory.
func FromContentDisposition(header string) (string, bool) {
	if header == "" {
		return "", false
	}

	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return "", false
	}

	name := params["filename"]
	if name == "" {
		return "", false
	}

	name = sanitize(name)
	if name == "" {
		return "", false
	}

	return name, true
}

// FromPath returns the last element of a URL path, or [DefaultName]
// when the path has none (e.g. "", "/", or a trailing slash).
func FromPath(urlPath string) string {
	name := sanitize(urlPath)
	if name == "" {
		return DefaultName
	}

	return name
}

// sanitize reduces a candidate name to its base element and rejects
// the degenerate values path.Base produces for empty or root paths.
func sanitize(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)
	if name == "." || name == "/" || name == ".." {
		return ""
	}

	return name
}
