package fetch

import (
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/afero"

	"github.com/kwilsonmg/fetch/fname"
)

// File is the result of a successful download. It is immutable after
// creation and owned by the caller, who must Close it when done.
type File struct {
	// Content is the downloaded data, positioned at the start.
	Content afero.File

	// EffectiveURL is the request URL after all redirects, with any
	// embedded credentials removed.
	EffectiveURL string

	// Header holds the response headers.
	Header http.Header

	// ContentType is the media type, parsed from the Content-Type
	// header or sniffed from the content when the header is absent.
	ContentType string

	// Charset is the charset parameter of the Content-Type header,
	// empty when not declared.
	Charset string

	// Filename is the suggested filename, derived from the
	// Content-Disposition header or the URL path.
	Filename string

	// Size is the content length in bytes.
	Size int64
}

// Close releases the content handle. The underlying storage is not
// removed; the caller owns it.
func (f *File) Close() error {
	return f.Content.Close()
}

func newFile(content afero.File, resp *http.Response, size int64) *File {
	effective := resp.Request.URL

	contentType, charset := parseContentType(resp.Header.Get("Content-Type"))
	if contentType == "" {
		contentType, charset = sniffContentType(content)
	}

	name, ok := fname.FromContentDisposition(resp.Header.Get("Content-Disposition"))
	if !ok {
		name = fname.FromPath(effective.Path)
	}

	return &File{
		Content:      content,
		EffectiveURL: effective.String(),
		Header:       resp.Header.Clone(),
		ContentType:  contentType,
		Charset:      charset,
		Filename:     name,
		Size:         size,
	}
}

// parseContentType splits a Content-Type header into media type and
// charset. An unparseable header falls back to the raw value rather
// than failing the download.
func parseContentType(v string) (mediaType, charset string) {
	if v == "" {
		return "", ""
	}

	mediaType, params, err := mime.ParseMediaType(v)
	if err != nil {
		return strings.TrimSpace(v), ""
	}

	return mediaType, params["charset"]
}

// sniffContentType detects the media type from the content itself,
// for servers that send no Content-Type at all. The handle is rewound
// afterwards; detection failures leave the type empty.
func sniffContentType(content afero.File) (mediaType, charset string) {
	mtype, err := mimetype.DetectReader(content)
	if _, serr := content.Seek(0, io.SeekStart); serr != nil {
		return "", ""
	}
	if err != nil {
		return "", ""
	}

	return parseContentType(mtype.String())
}
