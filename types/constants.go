package types

const (
	// DeltaBits is the width of the encrypted integers the accumulator
	// operates on. Arithmetic wraps modulo 2^DeltaBits; there are no
	// cleartext bounds checks anywhere in the pipeline.
	DeltaBits = 32
)
