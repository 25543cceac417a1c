// Package matrix is the dense single-precision vector and matrix kernel used
// to compute similarity and embedding payloads carried by envelopes.
//
// Every function is pure: inputs are never modified, results go into a
// caller-provided dst slice sized exactly to the output, and no state is
// kept between calls. Functions may therefore run concurrently on unrelated
// buffers. dst must not alias an input unless the function says otherwise.
//
// Matrices are row-major []float32. Scalars that accumulate (DotProduct,
// Magnitude, CosineSimilarity) are computed and returned in float64.
//
// Size mismatches, non-positive dimensions, and empty vectors return a
// *DimensionError; nothing reads or writes out of bounds.
package matrix
