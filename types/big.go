package types

import (
	"fmt"
	"math/big"

	"github.com/fxamacker/cbor/v2"
)

// BigInt is a big.Int which encodes as a decimal string in JSON and as a
// big-endian byte slice in CBOR.
type BigInt big.Int

// MathBigInt converts b to a *big.Int.
func (b *BigInt) MathBigInt() *big.Int {
	return (*big.Int)(b)
}

// SetUint64 sets b to x and returns b.
func (b *BigInt) SetUint64(x uint64) *BigInt {
	return (*BigInt)(b.MathBigInt().SetUint64(x))
}

// SetBigInt sets b to x and returns b.
func (b *BigInt) SetBigInt(x *big.Int) *BigInt {
	return (*BigInt)(b.MathBigInt().Set(x))
}

// String returns the decimal representation of b.
func (b *BigInt) String() string {
	return b.MathBigInt().String()
}

// Equal reports whether b and x hold the same value.
func (b *BigInt) Equal(x *BigInt) bool {
	return b.MathBigInt().Cmp(x.MathBigInt()) == 0
}

// MarshalJSON implements json.Marshaler.
func (b BigInt) MarshalJSON() ([]byte, error) {
	return []byte(`"` + (*big.Int)(&b).String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler. It accepts both a decimal string
// and a bare JSON number.
func (b *BigInt) UnmarshalJSON(data []byte) error {
	if len(data) >= 2 && data[0] == '"' && data[len(data)-1] == '"' {
		data = data[1 : len(data)-1]
	}
	if _, ok := b.MathBigInt().SetString(string(data), 10); !ok {
		return fmt.Errorf("invalid BigInt: %q", data)
	}
	return nil
}

// MarshalCBOR implements cbor.Marshaler using the big-endian bytes of b.
func (b BigInt) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal((*big.Int)(&b).Bytes())
}

// UnmarshalCBOR implements cbor.Unmarshaler.
func (b *BigInt) UnmarshalCBOR(data []byte) error {
	var buf []byte
	if err := cbor.Unmarshal(data, &buf); err != nil {
		return err
	}
	b.MathBigInt().SetBytes(buf)
	return nil
}
