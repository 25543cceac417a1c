package matrix

// MatMultiply writes the m x p product of a (m x n) and b (n x p) into dst.
func MatMultiply(a, b []float32, m, n, p int, dst []float32) error {
	for _, d := range []struct {
		name string
		v    int
	}{{"m", m}, {"n", n}, {"p", p}} {
		if d.v <= 0 {
			return &DimensionError{Op: "multiply", Operand: d.name, Want: 1, Got: d.v}
		}
	}
	if err := checkLen("multiply", "a", m*n, a); err != nil {
		return err
	}
	if err := checkLen("multiply", "b", n*p, b); err != nil {
		return err
	}
	if err := checkLen("multiply", "dst", m*p, dst); err != nil {
		return err
	}

	for i := 0; i < m; i++ {
		row := a[i*n : (i+1)*n]
		for j := 0; j < p; j++ {
			var sum float64
			for k := 0; k < n; k++ {
				sum += float64(row[k]) * float64(b[k*p+j])
			}
			dst[i*p+j] = float32(sum)
		}
	}
	return nil
}

// Transpose writes the cols x rows transpose of in (rows x cols) into dst.
func Transpose(in []float32, rows, cols int, dst []float32) error {
	if rows <= 0 {
		return &DimensionError{Op: "transpose", Operand: "rows", Want: 1, Got: rows}
	}
	if cols <= 0 {
		return &DimensionError{Op: "transpose", Operand: "cols", Want: 1, Got: cols}
	}
	if err := checkLen("transpose", "input", rows*cols, in); err != nil {
		return err
	}
	if err := checkLen("transpose", "dst", rows*cols, dst); err != nil {
		return err
	}

	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			dst[c*rows+r] = in[r*cols+c]
		}
	}
	return nil
}
