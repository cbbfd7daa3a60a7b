package vector_test

import (
	"math"
	"testing"

	"github.com/karmaspark/karmaspark/pkg/utils/vector"
	"github.com/m-mizutani/gt"
)

func TestCosine(t *testing.T) {
	t.Run("identical vectors", func(t *testing.T) {
		v := []float32{0.3, -1.2, 4.5}
		got := vector.Cosine(v, v)
		gt.True(t, math.Abs(got-1.0) < 1e-9)
	})

	t.Run("orthogonal vectors", func(t *testing.T) {
		got := vector.Cosine([]float32{1, 0}, []float32{0, 1})
		gt.Equal(t, got, 0.0)
	})

	t.Run("opposite vectors", func(t *testing.T) {
		got := vector.Cosine([]float32{1, 2}, []float32{-1, -2})
		gt.True(t, math.Abs(got+1.0) < 1e-9)
	})

	t.Run("unequal length is zero", func(t *testing.T) {
		gt.Equal(t, vector.Cosine([]float32{1, 2}, []float32{1, 2, 3}), 0.0)
	})

	t.Run("empty vectors are zero", func(t *testing.T) {
		gt.Equal(t, vector.Cosine(nil, nil), 0.0)
	})

	t.Run("zero magnitude is zero", func(t *testing.T) {
		gt.Equal(t, vector.Cosine([]float32{0, 0}, []float32{1, 2}), 0.0)
	})
}

func TestEncodeDecode(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		v := []float32{0.1, -2.5, 3.1415927, 0, math.MaxFloat32}
		got := vector.Decode(vector.Encode(v))
		gt.Equal(t, got, v)
	})

	t.Run("empty vector encodes to nil", func(t *testing.T) {
		gt.V(t, vector.Encode(nil)).Nil()
	})

	t.Run("trailing partial chunk is ignored", func(t *testing.T) {
		blob := vector.Encode([]float32{1.5, 2.5})
		blob = append(blob, 0xAA, 0xBB)
		gt.Equal(t, vector.Decode(blob), []float32{1.5, 2.5})
	})

	t.Run("short blob decodes to nil", func(t *testing.T) {
		gt.V(t, vector.Decode([]byte{1, 2, 3})).Nil()
	})
}
