package types

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// HexBytes is a []byte which encodes as hexadecimal in JSON, with or without
// the "0x" prefix accepted on input.
type HexBytes []byte

// String returns the hexadecimal representation without the "0x" prefix.
func (b HexBytes) String() string {
	return hex.EncodeToString(b)
}

// SetString decodes a hexadecimal string, with or without the "0x" prefix,
// into b.
func (b *HexBytes) SetString(s string) error {
	s = strings.TrimPrefix(s, "0x")
	data, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	*b = data
	return nil
}

// MarshalJSON implements json.Marshaler. The output carries the "0x" prefix.
func (b HexBytes) MarshalJSON() ([]byte, error) {
	enc := make([]byte, hex.EncodedLen(len(b))+4)
	enc[0] = '"'
	enc[1] = '0'
	enc[2] = 'x'
	hex.Encode(enc[3:], b)
	enc[len(enc)-1] = '"'
	return enc, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (b *HexBytes) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("invalid JSON string: %q", data)
	}
	data = data[1 : len(data)-1]
	if len(data) >= 2 && data[0] == '0' && (data[1] == 'x' || data[1] == 'X') {
		data = data[2:]
	}
	decoded := make([]byte, hex.DecodedLen(len(data)))
	if _, err := hex.Decode(decoded, data); err != nil {
		return err
	}
	*b = decoded
	return nil
}

// Equal reports whether b and other hold the same bytes.
func (b HexBytes) Equal(other HexBytes) bool {
	return string(b) == string(other)
}

// HexStringToHexBytes converts a hex string to a HexBytes. It strips a leading
// "0x" or "0X" if present and panics if the string is not valid hexadecimal.
// It is meant for testing and constants, not for user input.
func HexStringToHexBytes(s string) HexBytes {
	var b HexBytes
	if err := b.SetString(s); err != nil {
		panic(err)
	}
	return b
}
