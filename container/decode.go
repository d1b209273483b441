package container

import (
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Decode converts raw file bytes to a UTF-8 string. TwinCAT writes files as
// UTF-8 with a BOM, but UTF-16 copies exist in the wild; the BOM decides.
func Decode(data []byte) (string, error) {
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())

	out, _, err := transform.Bytes(decoder, data)
	if err != nil {
		return "", malformedf("cannot decode file: %s", err)
	}
	return string(out), nil
}
