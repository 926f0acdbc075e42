package covariance

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/qraat/qraat/internal/monitoring"
)

var log = monitoring.Component("covariance")

// Status records whether a confidence region is available.
type Status string

const (
	StatusOK        Status = "ok"
	StatusSingular  Status = "singular"
	StatusNonPosDef Status = "nonposdef"
	StatusUndefined Status = "undefined"
)

var (
	ErrSingular            = errors.New("covariance matrix is singular")
	ErrNotPositiveDefinite = errors.New("covariance matrix is not positive definite")
	ErrBootstrap           = errors.New("not enough samples to perform bootstrap")
	ErrNotNormalized       = errors.New("asymptotic covariance requires a normalized spectrum")
)

// minSamples is the fewest resampled positions a bootstrap accepts.
const minSamples = 3

// Result is the covariance of one position estimate. C is ordered
// (easting, northing) and is nil when no samples were available. W maps a
// confidence level to the squared Mahalanobis radius of its ellipse.
type Result struct {
	Method string
	Status Status
	Center complex128

	C *mat.SymDense
	W map[float64]float64

	// Eigen decomposition of C, valid when Status is ok. Alpha is the
	// angle of the major axis from the easting axis in radians.
	Lambda1, Lambda2 float64
	Alpha            float64

	// M is the average number of sub-samples per site.
	M       float64
	Samples int
}

func newResult(method string, center complex128) *Result {
	return &Result{Method: method, Status: StatusUndefined, Center: center, W: make(map[float64]float64)}
}

// Err returns the error matching Status, or nil when the region is
// available.
func (r *Result) Err() error {
	switch r.Status {
	case StatusOK:
		return nil
	case StatusSingular:
		return ErrSingular
	case StatusNonPosDef:
		return ErrNotPositiveDefinite
	default:
		return ErrBootstrap
	}
}

// Conf returns the confidence ellipse at level, which must be one of the
// levels the result was computed for.
func (r *Result) Conf(level float64) (*Ellipse, error) {
	if err := r.Err(); err != nil {
		return nil, err
	}
	qt, ok := r.W[level]
	if !ok {
		return nil, fmt.Errorf("no confidence level %v in %s result", level, r.Method)
	}
	return &Ellipse{
		Center: r.Center,
		Level:  level,
		Angle:  r.Alpha,
		Axes:   [2]float64{math.Sqrt(qt * r.Lambda1), math.Sqrt(qt * r.Lambda2)},
	}, nil
}

// Levels returns the confidence levels held in W, ascending.
func (r *Result) Levels() []float64 {
	out := make([]float64, 0, len(r.W))
	for l := range r.W {
		out = append(out, l)
	}
	sort.Float64s(out)
	return out
}

// decompose classifies C and fills the eigen fields. Status must already
// be ok for a decomposition to be attempted.
func (r *Result) decompose() {
	if r.Status != StatusOK || r.C == nil {
		return
	}
	var eig mat.EigenSym
	if !eig.Factorize(r.C, true) {
		r.Status = StatusNonPosDef
		return
	}
	vals := eig.Values(nil)
	if !(vals[0] > 0 && vals[1] > 0) {
		r.Status = StatusNonPosDef
		return
	}
	var vecs mat.Dense
	eig.VectorsTo(&vecs)
	// values are ascending, so the major axis is the last column
	r.Lambda1, r.Lambda2 = vals[1], vals[0]
	r.Alpha = math.Atan2(vecs.At(1, 1), vecs.At(0, 1))
}

// toXY converts positions to rows of (easting, northing).
func toXY(ps []complex128) *mat.Dense {
	x := mat.NewDense(len(ps), 2, nil)
	for i, p := range ps {
		x.Set(i, 0, imag(p))
		x.Set(i, 1, real(p))
	}
	return x
}

// fromSamples estimates C from fit and the level radii from test. Each
// radius is the sorted Mahalanobis distance of test around its mean,
// computed with distScale*C^-1 and multiplied by wScale.
func fromSamples(r *Result, fit, test []complex128, distScale, wScale float64, levels []float64) {
	r.C = mat.NewSymDense(2, nil)
	stat.CovarianceMatrix(r.C, toXY(fit), nil)

	var inv mat.Dense
	if err := inv.Inverse(r.C); err != nil {
		log.Debugf("%s: %v", r.Method, err)
		r.Status = StatusSingular
		return
	}
	inv.Scale(distScale, &inv)

	var mean complex128
	for _, p := range test {
		mean += p
	}
	mean /= complex(float64(len(test)), 0)

	dist := make([]float64, len(test))
	y := mat.NewVecDense(2, nil)
	for i, p := range test {
		d := p - mean
		y.SetVec(0, imag(d))
		y.SetVec(1, real(d))
		dist[i] = mat.Inner(y, &inv, y)
	}
	sort.Float64s(dist)
	for _, level := range levels {
		r.W[level] = dist[int(float64(len(dist))*level)] * wScale
	}
	r.Status = StatusOK
	r.decompose()
}
