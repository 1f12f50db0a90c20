package util

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"
)

// ErrBinary is returned by DecodeSource for content that is not text.
var ErrBinary = errors.New("binary content")

const (
	// sniffLen is the number of bytes used by http.DetectContentType.
	sniffLen = 512
	// nullCheckLen is the prefix examined for NUL bytes.
	nullCheckLen = 1024
	// nullThreshold is the NUL byte ratio above which content is binary.
	nullThreshold = 0.15
)

// DecodeSource returns content as UTF-8 text along with the name of the
// encoding it was read as.
//
// Valid UTF-8 is returned unchanged, so byte offsets into the result match
// offsets into the file. UTF-16 (by byte order mark) and other non-UTF-8
// content is converted; offsets then refer to the converted text. Content
// that looks binary yields ErrBinary.
func DecodeSource(content []byte) (string, string, error) {
	utf16 := hasUTF16BOM(content)
	if !utf16 && IsBinary(content) {
		return "", "", ErrBinary
	}
	if !utf16 && utf8.Valid(content) {
		return string(content), "utf-8", nil
	}

	enc, name, _ := charset.DetermineEncoding(content, "")
	decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(content), enc.NewDecoder()))
	if err != nil {
		return "", name, fmt.Errorf("failed to convert from %s: %w", name, err)
	}
	return strings.TrimPrefix(string(decoded), "\uFEFF"), name, nil
}

// IsBinary reports whether content is likely binary, judged by its sniffed
// MIME type and the share of NUL bytes near the start.
func IsBinary(content []byte) bool {
	if len(content) == 0 {
		return false
	}
	if !isTextMIME(http.DetectContentType(content[:min(len(content), sniffLen)])) {
		return true
	}
	head := content[:min(len(content), nullCheckLen)]
	return float64(bytes.Count(head, []byte{0}))/float64(len(head)) > nullThreshold
}

func isTextMIME(contentType string) bool {
	mimeType := strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	switch {
	case strings.HasPrefix(mimeType, "text/"):
		return true
	case mimeType == "application/octet-stream", mimeType == "application/json":
		// Octet-stream is the fallback for anything unrecognized; the NUL
		// check decides.
		return true
	case strings.HasSuffix(mimeType, "+xml"), strings.HasSuffix(mimeType, "+json"):
		return true
	default:
		return false
	}
}

func hasUTF16BOM(content []byte) bool {
	return bytes.HasPrefix(content, []byte{0xFE, 0xFF}) || bytes.HasPrefix(content, []byte{0xFF, 0xFE})
}
