package usecases

import (
	"encoding/binary"
	"math"
)

// l2Normalize returns v scaled to unit length, the normalization spec.md
// §4.2 requires before a vector enters the index (cosine similarity via
// dot product of normalized vectors).
func l2Normalize(v []float32) []float32 {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	norm := math.Sqrt(sumSq)
	if norm == 0 {
		return v
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// float32sToBytes encodes a vector as a flat little-endian byte slice, the
// form ProvenanceContentHash uses to content-hash an embedding's vector.
func float32sToBytes(v []float32) []byte {
	out := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(f))
	}
	return out
}
