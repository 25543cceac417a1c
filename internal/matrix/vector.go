package matrix

import "math"

// DotProduct returns the sum of elementwise products of a and b.
func DotProduct(a, b []float32) (float64, error) {
	if err := checkPair("dot", a, b); err != nil {
		return 0, err
	}
	return dot(a, b), nil
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// Magnitude returns the Euclidean norm sqrt(dot(v, v)).
func Magnitude(v []float32) (float64, error) {
	if err := checkVector("magnitude", "v", v); err != nil {
		return 0, err
	}
	return math.Sqrt(dot(v, v)), nil
}

// CosineSimilarity returns dot(a, b) / (|a| * |b|).
// The result is exactly 0 when either magnitude is 0.
func CosineSimilarity(a, b []float32) (float64, error) {
	if err := checkPair("cosine", a, b); err != nil {
		return 0, err
	}
	return cosine(a, b), nil
}

func cosine(a, b []float32) float64 {
	magA := math.Sqrt(dot(a, a))
	magB := math.Sqrt(dot(b, b))
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot(a, b) / (magA * magB)
}

// VectorAdd writes a + b into dst. dst may alias a or b.
func VectorAdd(a, b, dst []float32) error {
	if err := checkPair("add", a, b); err != nil {
		return err
	}
	if err := checkLen("add", "dst", len(a), dst); err != nil {
		return err
	}
	for i := range a {
		dst[i] = a[i] + b[i]
	}
	return nil
}

// VectorSubtract writes a - b into dst. dst may alias a or b.
func VectorSubtract(a, b, dst []float32) error {
	if err := checkPair("subtract", a, b); err != nil {
		return err
	}
	if err := checkLen("subtract", "dst", len(a), dst); err != nil {
		return err
	}
	for i := range a {
		dst[i] = a[i] - b[i]
	}
	return nil
}

// VectorScale writes v * scalar into dst. dst may alias v.
func VectorScale(v []float32, scalar float32, dst []float32) error {
	if err := checkVector("scale", "v", v); err != nil {
		return err
	}
	if err := checkLen("scale", "dst", len(v), dst); err != nil {
		return err
	}
	for i := range v {
		dst[i] = v[i] * scalar
	}
	return nil
}

// Normalize writes v / |v| into dst. A zero vector normalizes to the zero
// vector. dst may alias v.
func Normalize(v, dst []float32) error {
	if err := checkVector("normalize", "v", v); err != nil {
		return err
	}
	if err := checkLen("normalize", "dst", len(v), dst); err != nil {
		return err
	}

	mag := math.Sqrt(dot(v, v))
	if mag == 0 {
		clear(dst)
		return nil
	}
	for i := range v {
		dst[i] = float32(float64(v[i]) / mag)
	}
	return nil
}
