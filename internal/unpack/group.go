package unpack

import "math"

const (
	bitsOne = 0x3f800000 // math.Float32bits(1.0)
	bitsTwo = 0x40000000 // math.Float32bits(2.0)
)

// selectors holds one lane mask per bit. Offsetting by the bits of 1.0 keeps
// every intermediate a normal float rather than a denormal.
var selectors = [groupSize]uint32{
	bitsOne + 1<<0, bitsOne + 1<<1, bitsOne + 1<<2, bitsOne + 1<<3,
	bitsOne + 1<<4, bitsOne + 1<<5, bitsOne + 1<<6, bitsOne + 1<<7,
}

// decodeGroup computes the 8 lanes for one byte with lane-wise IEEE-754 bit
// operations: broadcast (b | 1.0), AND with the lane selector, compare against
// the selector to get an all-ones or all-zeros mask, AND with 2.0 and
// subtract 1.0.
func decodeGroup(b uint8) [groupSize]float32 {
	var out [groupSize]float32
	broadcast := uint32(b) | bitsOne
	for lane, sel := range selectors {
		diff := (broadcast & sel) ^ sel
		// nonzero is 1 iff diff != 0.
		nonzero := (diff | -diff) >> 31
		mask := nonzero - 1
		out[lane] = math.Float32frombits(mask&bitsTwo) - 1
	}
	return out
}
