// Package tensor provides the row-major, reference-counted storage that
// batches are materialized into.
package tensor

// DataType represents runtime type information for tensors.
type DataType int

// Supported data types. Spin rows and amplitudes are float32; labels and
// counts are int64.
const (
	Float32 DataType = iota
	Int64
)

// Size returns the byte size of the data type.
func (dt DataType) Size() int {
	switch dt {
	case Float32:
		return 4
	case Int64:
		return 8
	default:
		panic("unknown data type")
	}
}

// String returns a human-readable name for the data type.
func (dt DataType) String() string {
	switch dt {
	case Float32:
		return "float32"
	case Int64:
		return "int64"
	default:
		return "unknown"
	}
}
