// Package ingest turns uploaded archives into dataset records.
//
// Each dataset kind has an ingestor registered at init time: sections read a
// zip of courses/ JSON files, rooms read a zip holding an index.htm building
// table plus one HTML page per building. Content may be raw zip bytes or the
// base64 text of a zip.
package ingest

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zip"
	"golang.org/x/text/unicode/norm"

	"github.com/leapstack-labs/insightql/pkg/core"
)

var zipMagic = []byte("PK\x03\x04")

// decodeContent returns raw zip bytes, decoding base64 text when the content
// is not already a zip archive.
func decodeContent(content []byte) ([]byte, error) {
	if bytes.HasPrefix(content, zipMagic) {
		return content, nil
	}
	text := strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', ' ', '\t':
			return -1
		}
		return r
	}, string(content))

	decoded, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return nil, core.NewValidationError("content is neither a zip archive nor base64 text")
	}
	return decoded, nil
}

// openArchive opens the content as a zip archive.
func openArchive(content []byte) (*zip.Reader, error) {
	raw, err := decodeContent(content)
	if err != nil {
		return nil, err
	}
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, core.NewValidationErrorf("invalid zip archive: %v", err)
	}
	return zr, nil
}

// readFile reads one archive member fully.
func readFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", f.Name, err)
	}
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", f.Name, err)
	}
	return data, nil
}

// findFile returns the member with the exact name, or nil.
func findFile(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// cleanText trims and NFC-normalizes scraped text so that IS patterns see one
// canonical form of accented names.
func cleanText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
