package matrix

import (
	"cmp"
	"context"
	"fmt"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"
)

// CosineBatch returns the cosine similarity of query against every vector
// in corpus, in corpus order. Rows are scored concurrently, at most
// GOMAXPROCS at a time. Every row must match the query's length.
func CosineBatch(ctx context.Context, query []float32, corpus [][]float32) ([]float64, error) {
	if err := checkVector("cosine-batch", "query", query); err != nil {
		return nil, err
	}
	for i, row := range corpus {
		if len(row) != len(query) {
			return nil, &DimensionError{Op: "cosine-batch", Operand: fmt.Sprintf("corpus[%d]", i), Want: len(query), Got: len(row)}
		}
	}

	out := make([]float64, len(corpus))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, row := range corpus {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out[i] = cosine(query, row)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// TopK returns the indexes of the k highest scores, best first.
// Ties keep corpus order.
func TopK(scores []float64, k int) []int {
	if k > len(scores) {
		k = len(scores)
	}
	if k <= 0 {
		return nil
	}
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int { return cmp.Compare(scores[b], scores[a]) })
	return idx[:k]
}
