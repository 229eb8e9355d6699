package extract

import (
	"fmt"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/text/encoding/htmlindex"
)

const defaultCharset = "utf-8"

// decodeText decodes plain text using the sniffed charset. Inconclusive
// detection falls back to UTF-8 with invalid sequences replaced.
func decodeText(data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}

	charset := detectCharset(data)
	if charset == defaultCharset {
		return asUTF8(data), nil
	}

	enc, err := htmlindex.Get(charset)
	if err != nil {
		return asUTF8(data), nil
	}

	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("decoding %s: %w", charset, err)
	}

	return strings.TrimPrefix(string(out), "\uFEFF"), nil
}

func detectCharset(data []byte) string {
	_, params, err := mime.ParseMediaType(mimetype.Detect(data).String())
	if err != nil {
		return defaultCharset
	}

	charset := strings.ToLower(strings.TrimSpace(params["charset"]))
	if charset == "" {
		return defaultCharset
	}

	return charset
}

func asUTF8(data []byte) string {
	s := strings.TrimPrefix(string(data), "\uFEFF")
	return strings.ToValidUTF8(s, "\uFFFD")
}
