package ecc

import (
	"math/big"

	"github.com/sealedsum/sealedsum/types"
)

// Point defines the operations the homomorphic layer needs from an elliptic
// curve group element. Implementations hold the affine coordinates of a point
// and mutate the receiver, never their arguments.
type Point interface {
	// New returns a new point on the same curve, set to the identity.
	New() Point

	// Order returns the order of the elliptic curve subgroup.
	Order() *big.Int

	// Add sets the receiver to a + b.
	Add(a, b Point)

	// SafeAdd is Add with exclusive access to the receiver, for use when
	// the receiver may be shared between goroutines.
	SafeAdd(a, b Point)

	// ScalarMult sets the receiver to scalar * a.
	ScalarMult(a Point, scalar *big.Int)

	// ScalarBaseMult sets the receiver to scalar * G, where G is the
	// subgroup generator.
	ScalarBaseMult(scalar *big.Int)

	// Marshal serializes the point into a byte slice.
	Marshal() []byte

	// Unmarshal deserializes a byte slice into the receiver. It returns an
	// error if the bytes do not represent a valid curve point.
	Unmarshal(buf []byte) error

	// Equal reports whether the receiver and a represent the same point.
	Equal(a Point) bool

	// Neg sets the receiver to -a.
	Neg(a Point)

	// SetZero sets the receiver to the identity element.
	SetZero()

	// Set copies a into the receiver.
	Set(a Point)

	// SetGenerator sets the receiver to the subgroup generator.
	SetGenerator()

	// String returns a human readable representation of the point.
	String() string

	// Point returns the affine X and Y coordinates.
	Point() (*big.Int, *big.Int)

	// SetPoint sets the affine X and Y coordinates and returns the point.
	SetPoint(x, y *big.Int) Point

	// Type returns the curve type identifier.
	Type() string
}

// PointEC is the JSON representation of an affine curve point.
type PointEC struct {
	X types.BigInt `json:"x"`
	Y types.BigInt `json:"y"`
}
