package specstore

import (
	"bytes"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// decodeToUTF8 normalizes a document to UTF-8. Spec documents written on
// legacy Windows editors occasionally arrive as UTF-16 with a BOM; anything
// else is passed through with a UTF-8 BOM stripped if present.
func decodeToUTF8(data []byte) ([]byte, error) {
	switch {
	case len(data) >= 3 && bytes.Equal(data[:3], []byte{0xEF, 0xBB, 0xBF}):
		return data[3:], nil
	case len(data) >= 2 && bytes.Equal(data[:2], []byte{0xFF, 0xFE}):
		dec := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
		out, _, err := transform.Bytes(dec, data)
		return out, err
	case len(data) >= 2 && bytes.Equal(data[:2], []byte{0xFE, 0xFF}):
		dec := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder()
		out, _, err := transform.Bytes(dec, data)
		return out, err
	default:
		return data, nil
	}
}
