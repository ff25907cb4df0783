package stats

import (
	"fmt"
	"math"
)

// Correlation computes the pairwise Pearson correlation matrix over
// equally long, row-aligned columns. Constant columns correlate 0 with
// everything except themselves.
func Correlation(columns [][]float64) ([][]float64, error) {
	k := len(columns)
	if k == 0 {
		return nil, fmt.Errorf("correlation requires at least one column")
	}
	n := len(columns[0])
	for i, col := range columns {
		if len(col) != n {
			return nil, fmt.Errorf("correlation column %d has %d rows, want %d", i, len(col), n)
		}
	}

	means := make([]float64, k)
	for i, col := range columns {
		means[i] = Mean(col)
	}

	out := make([][]float64, k)
	for i := range out {
		out[i] = make([]float64, k)
		out[i][i] = 1
	}
	for i := 0; i < k; i++ {
		for j := i + 1; j < k; j++ {
			var cov, vi, vj float64
			for r := 0; r < n; r++ {
				di := columns[i][r] - means[i]
				dj := columns[j][r] - means[j]
				cov += di * dj
				vi += di * di
				vj += dj * dj
			}
			var r float64
			if vi > 0 && vj > 0 {
				r = cov / math.Sqrt(vi*vj)
			}
			out[i][j] = r
			out[j][i] = r
		}
	}
	return out, nil
}

// PctReturns converts a close series to simple percent returns, the
// input the correlation matrix runs on. The first element has no
// return and is skipped, so the output is one shorter.
func PctReturns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, (closes[i]-closes[i-1])/closes[i-1]*100)
	}
	return out
}
