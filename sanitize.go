package pakbus

import (
	"golang.org/x/text/encoding/charmap"
)

// SanitizeASCII re-decodes raw bytes as Windows-1252 (the original
// implementation's documented source encoding for ASCII/ASCIIZ fields) and
// returns valid UTF-8, so a field name or value containing a logger's
// raw 8-bit characters never corrupts structured log output.
func SanitizeASCII(raw []byte) string {
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(decoded)
}
