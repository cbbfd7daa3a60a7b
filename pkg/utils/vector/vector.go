// Package vector provides the similarity primitive and the storage codec for
// embedding vectors.
package vector

import (
	"encoding/binary"
	"math"
)

// Cosine returns the cosine similarity of two vectors in [-1, 1].
// Vectors of unequal length, empty vectors, and zero-magnitude vectors all
// yield exactly 0 so that callers never have to handle a division by zero.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Encode packs a vector as little-endian float32 bytes for blob storage.
func Encode(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	buf := make([]byte, 0, len(v)*4)
	for _, f := range v {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
	}
	return buf
}

// Decode unpacks a little-endian float32 blob. A trailing partial chunk is
// ignored rather than reported as an error.
func Decode(blob []byte) []float32 {
	if len(blob) < 4 {
		return nil
	}
	v := make([]float32, 0, len(blob)/4)
	for i := 0; i+4 <= len(blob); i += 4 {
		v = append(v, math.Float32frombits(binary.LittleEndian.Uint32(blob[i:i+4])))
	}
	return v
}
