package scripts

import (
	"bytes"
	"errors"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// Encoding names in the order they are tried.
const (
	UTF8        = "utf-8"
	Windows1252 = "windows-1252"
	ISO88591    = "iso-8859-1"
)

var errUndecodable = errors.New("no encoding matched")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type decoder struct {
	name string
	cm   *charmap.Charmap
	// rejectC1 treats decoded C1 controls as undefined code points. ISO-8859-1
	// keeps them so every byte sequence without NUL decodes somewhere.
	rejectC1 bool
}

var decoders = []decoder{
	{name: UTF8},
	{name: Windows1252, cm: charmap.Windows1252, rejectC1: true},
	{name: ISO88591, cm: charmap.ISO8859_1},
}

// Decode converts data to a string with the first encoding that yields clean
// text and returns that encoding's name. Content with NUL bytes is rejected by
// every encoding.
func Decode(data []byte) (string, string, error) {
	if bytes.IndexByte(data, 0) >= 0 {
		return "", "", errUndecodable
	}

	for _, d := range decoders {
		if d.cm == nil {
			trimmed := bytes.TrimPrefix(data, utf8BOM)
			if utf8.Valid(trimmed) {
				return string(trimmed), d.name, nil
			}
			continue
		}

		text, ok := decodeCharmap(d.cm.NewDecoder(), data, d.rejectC1)
		if ok {
			return text, d.name, nil
		}
	}
	return "", "", errUndecodable
}

func decodeCharmap(dec *encoding.Decoder, data []byte, rejectC1 bool) (string, bool) {
	out, err := dec.Bytes(data)
	if err != nil {
		return "", false
	}
	for _, r := range string(out) {
		if r == utf8.RuneError {
			return "", false
		}
		if rejectC1 && r >= 0x80 && r <= 0x9F {
			return "", false
		}
	}
	return string(out), true
}

// ReadFile reads and decodes the script at path.
func ReadFile(path string) (text string, enc string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", err
	}
	return Decode(data)
}
