package serialization

import (
	"time"

	"github.com/textkit-ml/textkit/tensor"
)

// Format constants.
const (
	MagicBytes      = "TKWS"
	FormatVersion   = 1
	HeaderAlignment = 64 // Align tensor data to 64 bytes
	FileSuffix      = ".tkws"
)

// Data type string constants for serialization.
const (
	DTypeFloat32 = "float32"
	DTypeFloat16 = "float16"
	DTypeInt32   = "int32"
	DTypeInt64   = "int64"
)

// Flags for the .tkws format.
const (
	FlagHasMetadata uint32 = 1 << 0 // bit 0: custom metadata included
)

// Header represents the JSON header in a .tkws file.
type Header struct {
	FormatVersion  int               `json:"format_version"`  // Version of the .tkws format
	TextKitVersion string            `json:"textkit_version"` // Version of TextKit that created this file
	ModelType      string            `json:"model_type"`      // Model class name (e.g., "Mini")
	CreatedAt      time.Time         `json:"created_at"`      // When the file was created
	Tensors        []TensorMeta      `json:"tensors"`         // Tensor metadata
	Metadata       map[string]string `json:"metadata"`        // Custom metadata
}

// TensorMeta describes a tensor in the .tkws file.
type TensorMeta struct {
	Name   string `json:"name"`   // Parameter path (e.g., "encoder.embed.weight")
	DType  string `json:"dtype"`  // Data type (e.g., "float32")
	Shape  []int  `json:"shape"`  // Tensor shape
	Offset int64  `json:"offset"` // Offset in the data section
	Size   int64  `json:"size"`   // Size in bytes
}

// dtypeToString converts tensor.DataType to string representation.
func dtypeToString(dt tensor.DataType) string {
	switch dt {
	case tensor.Float32:
		return DTypeFloat32
	case tensor.Float16:
		return DTypeFloat16
	case tensor.Int32:
		return DTypeInt32
	case tensor.Int64:
		return DTypeInt64
	default:
		return "unknown"
	}
}

// stringToDtype converts string representation to tensor.DataType.
func stringToDtype(s string) (tensor.DataType, bool) {
	switch s {
	case DTypeFloat32:
		return tensor.Float32, true
	case DTypeFloat16:
		return tensor.Float16, true
	case DTypeInt32:
		return tensor.Int32, true
	case DTypeInt64:
		return tensor.Int64, true
	default:
		return 0, false
	}
}
