// Package decode turns the base64, optionally gzip-compressed docZip
// payloads of a distribution response into plain XML text.
package decode

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/go-faster/errors"
)

var (
	// ErrBase64 marks a payload that is not valid base64 text.
	ErrBase64 = errors.New("docZip payload is not valid base64")

	// ErrUnreadable marks a payload that decodes to neither compressed nor
	// plain XML text.
	ErrUnreadable = errors.New("docZip payload is not readable text")
)

// DocZip decodes one batch entry. The service does not always compress
// payloads, so a failed decompression falls back to the plain decoded
// bytes; only a payload that is unusable under both interpretations fails.
// Well-formedness of the XML is not checked here.
func DocZip(payload string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return nil, errors.Wrap(ErrBase64, err.Error())
	}

	text := raw
	if zr, err := gzip.NewReader(bytes.NewReader(raw)); err == nil {
		if plain, err := io.ReadAll(zr); err == nil {
			text = plain
		}
		_ = zr.Close()
	}

	if len(text) == 0 || !utf8.Valid(text) {
		return nil, ErrUnreadable
	}
	return text, nil
}
