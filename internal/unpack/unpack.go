// Package unpack expands bit-packed spin configurations into dense rows of
// ±1.0 float32 values.
//
// Bit k of a packed configuration encodes spin k: a set bit decodes to +1.0,
// a cleared bit to -1.0. Decoding proceeds 8 bits at a time. Each byte selects
// one precomputed group of 8 floats, so the work per group is a table load and
// an 8-wide store with no data-dependent branches.
package unpack

import (
	"errors"
	"fmt"

	"github.com/born-ml/spinload/internal/parallel"
)

// ErrInvalidArgument is returned for malformed destinations or spin counts.
var ErrInvalidArgument = errors.New("unpack: invalid argument")

// Bits512 is a wide spin container. Word 0 holds spins 0..63, word 1 holds
// spins 64..127 and so on.
type Bits512 [8]uint64

// Container is the set of supported packed configuration types.
type Container interface {
	uint64 | Bits512
}

const groupSize = 8

// Width returns the number of spins a container of type S can hold.
func Width[S Container]() int {
	var zero S
	if _, ok := any(zero).(uint64); ok {
		return 64
	}
	return 512
}

// groups maps every byte value to its decoded lanes.
var groups [256][groupSize]float32

func init() {
	for b := range groups {
		groups[b] = decodeGroup(uint8(b))
	}
}

// Matrix is a row-major float32 destination. Stride is the distance in
// elements between the starts of consecutive rows and must equal Cols.
type Matrix struct {
	Data   []float32
	Rows   int
	Cols   int
	Stride int
}

// NewMatrix wraps data as a dense rows×cols matrix.
func NewMatrix(data []float32, rows, cols int) Matrix {
	return Matrix{Data: data, Rows: rows, Cols: cols, Stride: cols}
}

// Row returns row r.
func (m Matrix) Row(r int) []float32 {
	return m.Data[r*m.Stride : r*m.Stride+m.Cols]
}

// Unpack decodes the low n bits of x into out[:n]. It never writes past
// out[n-1].
func Unpack[S Container](x S, n int, out []float32) error {
	if n < 0 || n > Width[S]() {
		return fmt.Errorf("%w: number of spins %d outside [0, %d]", ErrInvalidArgument, n, Width[S]())
	}
	if n == 0 {
		return nil
	}
	if len(out) < n {
		return fmt.Errorf("%w: output holds %d values, need %d", ErrInvalidArgument, len(out), n)
	}
	switch v := any(x).(type) {
	case uint64:
		decodeWord(v, n, out, false)
	case Bits512:
		decodeWide(&v, n, out, false)
	}
	return nil
}

// Tail returns how many trailing rows of a rows×n batch must use the safe
// path: min(ceil((8 - n mod 8) / n), rows).
//
// Every row before them has at least 8 - n mod 8 floats of later rows behind
// its end, which absorbs the over-long store of the fast path.
func Tail(rows, n int) int {
	if n <= 0 || rows <= 0 {
		return 0
	}
	rest := n % groupSize
	return min((groupSize-rest+n-1)/n, rows)
}

// Rows decodes dst.Rows configurations taken from src at srcStride into the
// rows of dst.
//
// The destination must be dense (Stride == Cols), otherwise ErrInvalidArgument
// is returned before anything is written. dst.Cols is the number of spins.
func Rows[S Container](src []S, srcStride int, dst Matrix) error {
	if err := validate(src, srcStride, dst); err != nil {
		return err
	}
	if dst.Rows == 0 || dst.Cols == 0 {
		return nil
	}
	decodeRange(src, srcStride, dst, 0, dst.Rows, dst.Rows-Tail(dst.Rows, dst.Cols))
	return nil
}

// RowsParallel is Rows with the rows split across workers.
//
// The fast/safe split is computed once for the whole batch. Within each
// worker's range the last Tail rows are additionally demoted to the safe path,
// so no store ever lands in rows owned by another worker.
func RowsParallel[S Container](src []S, srcStride int, dst Matrix, cfg parallel.Config) error {
	if err := validate(src, srcStride, dst); err != nil {
		return err
	}
	if dst.Rows == 0 || dst.Cols == 0 {
		return nil
	}
	fastEnd := dst.Rows - Tail(dst.Rows, dst.Cols)
	overlap := Tail(dst.Rows, dst.Cols)
	parallel.ForRange(dst.Rows, func(start, end int) {
		decodeRange(src, srcStride, dst, start, end, min(fastEnd, end-overlap))
	}, cfg)
	return nil
}

func validate[S Container](src []S, srcStride int, dst Matrix) error {
	if dst.Stride != dst.Cols {
		return fmt.Errorf("%w: strided destination (stride %d, %d columns) is not supported", ErrInvalidArgument, dst.Stride, dst.Cols)
	}
	if dst.Rows < 0 || dst.Cols < 0 {
		return fmt.Errorf("%w: negative destination shape [%d, %d]", ErrInvalidArgument, dst.Rows, dst.Cols)
	}
	if dst.Cols > Width[S]() {
		return fmt.Errorf("%w: %d spins do not fit a %d-bit container", ErrInvalidArgument, dst.Cols, Width[S]())
	}
	if dst.Rows == 0 {
		return nil
	}
	if srcStride < 1 {
		return fmt.Errorf("%w: source stride %d", ErrInvalidArgument, srcStride)
	}
	if need := (dst.Rows-1)*srcStride + 1; len(src) < need {
		return fmt.Errorf("%w: source holds %d configurations, need %d", ErrInvalidArgument, len(src), need)
	}
	if dst.Cols > 0 && len(dst.Data) < dst.Rows*dst.Cols {
		return fmt.Errorf("%w: destination holds %d values, need %d", ErrInvalidArgument, len(dst.Data), dst.Rows*dst.Cols)
	}
	return nil
}

// decodeRange decodes rows [start, end); rows before fastEnd use the fast path.
func decodeRange[S Container](src []S, srcStride int, dst Matrix, start, end, fastEnd int) {
	n := dst.Cols
	switch s := any(src).(type) {
	case []uint64:
		for r := start; r < end; r++ {
			decodeWord(s[r*srcStride], n, dst.Data[r*n:], r < fastEnd)
		}
	case []Bits512:
		for r := start; r < end; r++ {
			decodeWide(&s[r*srcStride], n, dst.Data[r*n:], r < fastEnd)
		}
	}
}

// store writes all 8 lanes of the group selected by b.
func store(out []float32, b uint8) {
	*(*[groupSize]float32)(out[:groupSize]) = groups[b]
}

// decodeWord decodes n <= 64 spins. With fast set, a trailing partial group is
// written as a full group of 8; the caller guarantees the room for it.
func decodeWord(x uint64, n int, out []float32, fast bool) {
	full := n / groupSize
	for g := 0; g < full; g++ {
		store(out[g*groupSize:], uint8(x))
		x >>= groupSize
	}
	rest := n % groupSize
	if rest == 0 {
		return
	}
	off := full * groupSize
	if fast {
		store(out[off:], uint8(x))
		return
	}
	copy(out[off:off+rest], groups[uint8(x)][:rest])
}

func decodeWide(x *Bits512, n int, out []float32, fast bool) {
	const wordBits = 64
	full := n / wordBits
	for w := 0; w < full; w++ {
		decodeWord(x[w], wordBits, out[w*wordBits:], false)
	}
	if rest := n % wordBits; rest != 0 {
		decodeWord(x[full], rest, out[full*wordBits:], fast)
	}
}

// Pack is the inverse of Unpack: bit k of the result is set iff row[k] is
// exactly +1.0.
func Pack[S Container](row []float32) S {
	var out S
	switch p := any(&out).(type) {
	case *uint64:
		for k, v := range row {
			if v == 1 {
				*p |= 1 << uint(k)
			}
		}
	case *Bits512:
		for k, v := range row {
			if v == 1 {
				p[k/64] |= 1 << uint(k%64)
			}
		}
	}
	return out
}
