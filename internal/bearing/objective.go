package bearing

import "gonum.org/v1/gonum/floats"

// Objective tells downstream layers which end of a score is optimal. It is
// resolved once by the Estimator and carried with every spectrum and
// spline derived from it.
type Objective int

const (
	Maximize Objective = iota
	Minimize
)

func (o Objective) String() string {
	if o == Minimize {
		return "minimize"
	}
	return "maximize"
}

// Better reports whether score a is strictly preferable to b.
func (o Objective) Better(a, b float64) bool {
	if o == Minimize {
		return a < b
	}
	return a > b
}

// Best returns the index of the optimal value in xs, the first one on ties.
// xs must not be empty.
func (o Objective) Best(xs []float64) int {
	if o == Minimize {
		return floats.MinIdx(xs)
	}
	return floats.MaxIdx(xs)
}

// Worst returns the least favourable score, used to seed a search.
func (o Objective) Worst() float64 {
	if o == Minimize {
		return posInf
	}
	return negInf
}
