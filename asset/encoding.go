package asset

import (
	"strings"

	"github.com/teranos/assetstage/errors"
)

// Encoding is the on-disk serialization of a Record.
// It is decided once (by Locate or EncodingForPath) and carried alongside the path.
type Encoding int

const (
	// EncodingJSON is a UTF-8 JSON object, <id>.json
	EncodingJSON Encoding = iota
	// EncodingPickleGz is a gzip-compressed Python pickle of the same mapping, <id>.pkl.gz
	EncodingPickleGz
)

// Encodings lists the supported encodings in lookup preference order.
var Encodings = []Encoding{EncodingJSON, EncodingPickleGz}

// Extension returns the file suffix for the encoding, including the leading dot.
func (e Encoding) Extension() string {
	switch e {
	case EncodingJSON:
		return ".json"
	case EncodingPickleGz:
		return ".pkl.gz"
	default:
		return ""
	}
}

// Filename returns the record filename for id in this encoding.
func (e Encoding) Filename(id ID) string {
	return string(id) + e.Extension()
}

func (e Encoding) String() string {
	switch e {
	case EncodingJSON:
		return "json"
	case EncodingPickleGz:
		return "pkl.gz"
	default:
		return "unknown"
	}
}

// EncodingForPath picks the encoding from a path's suffix.
func EncodingForPath(path string) (Encoding, error) {
	switch {
	case strings.HasSuffix(path, EncodingPickleGz.Extension()):
		return EncodingPickleGz, nil
	case strings.HasSuffix(path, EncodingJSON.Extension()):
		return EncodingJSON, nil
	default:
		return 0, errors.NewUnsupportedFormatError("unsupported file extension for path: %s", path)
	}
}
