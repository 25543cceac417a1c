package cli

import (
	"errors"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/umicp/internal/matrix"
)

// MatrixResult holds either a scalar or a vector result.
type MatrixResult struct {
	Op     string    `json:"op"`
	Scalar *float64  `json:"scalar,omitempty"`
	Vector []float32 `json:"vector,omitempty"`
	Rows   int       `json:"rows,omitempty"`
	Cols   int       `json:"cols,omitempty"`
}

// String renders the result for text output. Matrices print one row per
// line.
func (r MatrixResult) String() string {
	if r.Scalar != nil {
		return strconv.FormatFloat(*r.Scalar, 'g', -1, 64)
	}
	cols := r.Cols
	if cols <= 0 {
		cols = len(r.Vector)
	}
	var b strings.Builder
	for i, x := range r.Vector {
		switch {
		case i == 0:
		case i%cols == 0:
			b.WriteByte('\n')
		default:
			b.WriteByte(' ')
		}
		b.WriteString(strconv.FormatFloat(float64(x), 'g', -1, 32))
	}
	return b.String()
}

type matrixArgs struct {
	a, b    []float32
	scalar  float32
	m, n, p int
}

type matrixOp struct {
	use   string
	short string
	flags func(cmd *cobra.Command, args *matrixArgs)
	run   func(args *matrixArgs) (MatrixResult, error)
}

func vectorFlags(withB bool) func(*cobra.Command, *matrixArgs) {
	return func(cmd *cobra.Command, args *matrixArgs) {
		cmd.Flags().Float32SliceVar(&args.a, "a", nil, "first vector, comma-separated")
		if withB {
			cmd.Flags().Float32SliceVar(&args.b, "b", nil, "second vector, comma-separated")
		}
	}
}

func scalarResult(op string, s float64, err error) (MatrixResult, error) {
	return MatrixResult{Op: op, Scalar: &s}, err
}

var matrixOps = []matrixOp{
	{
		use:   "dot",
		short: "Dot product of a and b",
		flags: vectorFlags(true),
		run: func(x *matrixArgs) (MatrixResult, error) {
			s, err := matrix.DotProduct(x.a, x.b)
			return scalarResult("dot", s, err)
		},
	},
	{
		use:   "cosine",
		short: "Cosine similarity of a and b",
		flags: vectorFlags(true),
		run: func(x *matrixArgs) (MatrixResult, error) {
			s, err := matrix.CosineSimilarity(x.a, x.b)
			return scalarResult("cosine", s, err)
		},
	},
	{
		use:   "magnitude",
		short: "Euclidean norm of a",
		flags: vectorFlags(false),
		run: func(x *matrixArgs) (MatrixResult, error) {
			s, err := matrix.Magnitude(x.a)
			return scalarResult("magnitude", s, err)
		},
	},
	{
		use:   "add",
		short: "Element-wise a + b",
		flags: vectorFlags(true),
		run: func(x *matrixArgs) (MatrixResult, error) {
			out := make([]float32, len(x.a))
			return MatrixResult{Op: "add", Vector: out}, matrix.VectorAdd(x.a, x.b, out)
		},
	},
	{
		use:   "sub",
		short: "Element-wise a - b",
		flags: vectorFlags(true),
		run: func(x *matrixArgs) (MatrixResult, error) {
			out := make([]float32, len(x.a))
			return MatrixResult{Op: "sub", Vector: out}, matrix.VectorSubtract(x.a, x.b, out)
		},
	},
	{
		use:   "scale",
		short: "Multiply a by --scalar",
		flags: func(cmd *cobra.Command, x *matrixArgs) {
			vectorFlags(false)(cmd, x)
			cmd.Flags().Float32Var(&x.scalar, "scalar", 1, "scale factor")
		},
		run: func(x *matrixArgs) (MatrixResult, error) {
			out := make([]float32, len(x.a))
			return MatrixResult{Op: "scale", Vector: out}, matrix.VectorScale(x.a, x.scalar, out)
		},
	},
	{
		use:   "normalize",
		short: "Scale a to unit length",
		flags: vectorFlags(false),
		run: func(x *matrixArgs) (MatrixResult, error) {
			out := make([]float32, len(x.a))
			return MatrixResult{Op: "normalize", Vector: out}, matrix.Normalize(x.a, out)
		},
	},
	{
		use:   "multiply",
		short: "Row-major product of a (m x n) and b (n x p)",
		flags: func(cmd *cobra.Command, x *matrixArgs) {
			vectorFlags(true)(cmd, x)
			cmd.Flags().IntVar(&x.m, "m", 0, "rows of a")
			cmd.Flags().IntVar(&x.n, "n", 0, "columns of a and rows of b")
			cmd.Flags().IntVar(&x.p, "p", 0, "columns of b")
		},
		run: func(x *matrixArgs) (MatrixResult, error) {
			out := make([]float32, max(x.m*x.p, 0))
			err := matrix.MatMultiply(x.a, x.b, x.m, x.n, x.p, out)
			return MatrixResult{Op: "multiply", Vector: out, Rows: x.m, Cols: x.p}, err
		},
	},
	{
		use:   "transpose",
		short: "Transpose a (rows x cols)",
		flags: func(cmd *cobra.Command, x *matrixArgs) {
			vectorFlags(false)(cmd, x)
			cmd.Flags().IntVar(&x.m, "rows", 0, "rows of a")
			cmd.Flags().IntVar(&x.n, "cols", 0, "columns of a")
		},
		run: func(x *matrixArgs) (MatrixResult, error) {
			out := make([]float32, len(x.a))
			err := matrix.Transpose(x.a, x.m, x.n, out)
			return MatrixResult{Op: "transpose", Vector: out, Rows: x.n, Cols: x.m}, err
		},
	},
}

// NewMatrixCommand creates the matrix command group.
func NewMatrixCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "matrix",
		Short: "Run the float32 vector and matrix kernel",
		Long: `Run the vector and matrix kernel on float32 operands.

Vectors are comma-separated, e.g. --a 1,2,3. Matrices are row-major.`,
	}
	for _, op := range matrixOps {
		cmd.AddCommand(newMatrixOpCommand(rootOpts, op))
	}
	return cmd
}

func newMatrixOpCommand(rootOpts *RootOptions, op matrixOp) *cobra.Command {
	args := &matrixArgs{}
	cmd := &cobra.Command{
		Use:           op.use,
		Short:         op.short,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := rootOpts.formatter(cmd)
			res, err := op.run(args)
			if err != nil {
				if errors.Is(err, matrix.ErrDimension) {
					return f.Fail(ExitFailure, ErrCodeDimension, "dimension mismatch", err)
				}
				return f.Fail(ExitFailure, ErrCodeGeneric, op.use+" failed", err)
			}
			return f.Success(res)
		},
	}
	op.flags(cmd, args)
	return cmd
}
