package dbf

import (
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
)

// languageDrivers maps the language driver id at byte 29 of the header to a code page.
var languageDrivers = map[byte]encoding.Encoding{
	0x01: charmap.CodePage437,
	0x02: charmap.CodePage850,
	0x03: charmap.Windows1252,
	0x13: japanese.ShiftJIS,
	0x4d: simplifiedchinese.GBK,
	0x57: charmap.Windows1252,
	0x64: charmap.CodePage852,
	0x65: charmap.CodePage866,
	0x78: traditionalchinese.Big5,
	0x79: korean.EUCKR,
	0xc8: charmap.Windows1250,
	0xc9: charmap.Windows1251,
	0xca: charmap.Windows1254,
}

// LanguageDriverEncoding returns the code page registered for a language driver id.
func LanguageDriverEncoding(id byte) (encoding.Encoding, bool) {
	enc, ok := languageDrivers[id]
	return enc, ok
}

// languageDriverID returns the id written for enc, preferring the lowest id when a code
// page has several.
func languageDriverID(enc encoding.Encoding) byte {
	if enc == nil {
		return 0
	}

	var best byte
	for id, e := range languageDrivers {
		if e == enc && (best == 0 || id < best) {
			best = id
		}
	}

	return best
}

// codec converts between stored bytes and Go strings. A zero codec passes bytes through.
type codec struct {
	enc encoding.Encoding
}

func (c codec) decode(b []byte) string {
	if c.enc == nil {
		return string(b)
	}

	out, err := c.enc.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}

	return string(out)
}

func (c codec) encode(s string) []byte {
	if c.enc == nil {
		return []byte(s)
	}

	out, err := encoding.ReplaceUnsupported(c.enc.NewEncoder()).Bytes([]byte(s))
	if err != nil {
		return []byte(s)
	}

	return out
}
