package track

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qraat/qraat/internal/config"
)

// walk returns n points one minute apart moving 10 m east each step.
func walk(n int) []Point {
	out := make([]Point, n)
	for i := range out {
		out[i] = Point{
			PositionID: int64(i + 1),
			Timestamp:  float64(60 * i),
			P:          complex(0, float64(10*i)),
			Likelihood: 1,
		}
	}
	return out
}

func ids(points []Point) []int64 {
	out := make([]int64, len(points))
	for i, p := range points {
		out[i] = p.PositionID
	}
	return out
}

func TestMaxSpeedFamilies(t *testing.T) {
	t.Parallel()

	params := config.TrackParams{BurstInterval: 60, SustainedInterval: 1800}

	t.Run("const", func(t *testing.T) {
		m, err := NewMaxSpeed(FamilyConst, 0, 0, 2, params)
		require.NoError(t, err)
		assert.Equal(t, 2.0, m(1))
		assert.Equal(t, 2.0, m(1e6))
	})

	t.Run("linear", func(t *testing.T) {
		m, err := NewMaxSpeed(FamilyLinear, 10, 1, 0.5, params)
		require.NoError(t, err)
		assert.InDelta(t, 10, m(60), 1e-12)
		assert.InDelta(t, 1, m(1800), 1e-12)
		assert.Equal(t, 0.5, m(1e6), "floored at the limit")
	})

	t.Run("exp", func(t *testing.T) {
		m, err := NewMaxSpeed(FamilyExp, 10, 1, 0.5, params)
		require.NoError(t, err)
		assert.InDelta(t, 10, m(60), 1e-9)
		assert.InDelta(t, 1, m(1800), 1e-9)
		assert.InDelta(t, 0.5, m(1e7), 1e-9)
		assert.Greater(t, m(100), m(200))
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := NewMaxSpeed("warp", 1, 1, 1, params)
		assert.Error(t, err)
		_, err = NewMaxSpeed(FamilyExp, 1, 1, 2, params)
		assert.Error(t, err)
	})
}

func TestOptimalKeepsFeasibleSequence(t *testing.T) {
	t.Parallel()

	points := walk(20)
	r := NewReconstructor(ConstSpeed(1), config.TrackParams{HopCost: 1, WindowLength: 500, OverlapLength: 100})

	got, err := r.Optimal(points)
	require.NoError(t, err)
	if diff := cmp.Diff(ids(points), ids(got)); diff != "" {
		t.Errorf("track mismatch (-want +got):\n%s", diff)
	}
}

func TestOptimalDropsImpossibleJump(t *testing.T) {
	t.Parallel()

	points := walk(10)
	points[4].P = complex(50000, 0)
	r := NewReconstructor(ConstSpeed(1), config.TrackParams{HopCost: 1})

	got, err := r.Optimal(points)
	require.NoError(t, err)
	assert.NotContains(t, ids(got), int64(5))
	assert.Len(t, got, 9)
}

func TestCriticalPathPrefersLikelihood(t *testing.T) {
	t.Parallel()

	// two candidates at t=60; only one can be on the path
	points := []Point{
		{PositionID: 1, Timestamp: 0, P: 0, Likelihood: 1},
		{PositionID: 2, Timestamp: 60, P: complex(0, 10), Likelihood: 1},
		{PositionID: 3, Timestamp: 60, P: complex(10, 0), Likelihood: 5},
		{PositionID: 4, Timestamp: 120, P: complex(0, 20), Likelihood: 1},
	}
	g := Build(points, ConstSpeed(1))
	order, err := g.Sort()
	require.NoError(t, err)
	path := g.CriticalPath(order, 0)
	assert.Equal(t, []int{0, 2, 3}, path)
	assert.Equal(t, []int{0}, g.Roots())
	assert.Equal(t, 5, g.Edges())
}

func TestSortDetectsCycle(t *testing.T) {
	t.Parallel()

	g := newGraph(walk(3))
	g.addEdge(0, 1)
	g.addEdge(1, 2)
	g.addEdge(2, 0)
	_, err := g.Sort()
	assert.True(t, errors.Is(err, ErrCycle), "err = %v", err)
}

func TestComponents(t *testing.T) {
	t.Parallel()

	points := walk(6)
	// a far-away island at the end
	points[5].P = complex(1e6, 0)
	g := Build(points, ConstSpeed(1))
	comps := g.Components()
	require.Len(t, comps, 2)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, comps[0])
	assert.Equal(t, []int{5}, comps[1])
}

func TestUnionFind(t *testing.T) {
	t.Parallel()

	u := newUnionFind(5)
	u.union(0, 1)
	u.union(2, 3)
	u.union(1, 3)
	assert.Equal(t, u.find(0), u.find(2))
	assert.NotEqual(t, u.find(0), u.find(4))
	assert.Equal(t, 4, u.size[u.find(3)])
}

func TestSpans(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name               string
		n, length, overlap int
		want                []Span
	}{
		{"empty", 0, 500, 100, nil},
		{"single window", 300, 500, 100, []Span{{0, 299}}},
		{"three windows", 1000, 500, 100, []Span{{0, 500}, {333, 833}, {666, 999}}},
		{"two windows", 600, 500, 100, []Span{{0, 500}, {300, 599}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Spans(tt.n, tt.length, tt.overlap)); diff != "" {
				t.Errorf("Spans mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestWidenKeepsTimestampGroups(t *testing.T) {
	t.Parallel()

	points := []Point{{Timestamp: 0}, {Timestamp: 1}, {Timestamp: 1}, {Timestamp: 2}, {Timestamp: 2}}
	assert.Equal(t, Span{1, 4}, widen(points, Span{2, 3}))
	assert.Equal(t, Span{0, 0}, widen(points, Span{0, 0}))
}

func TestWindowedMatchesOptimalOnSmoothTrack(t *testing.T) {
	t.Parallel()

	points := walk(50)
	r := NewReconstructor(ConstSpeed(1), config.TrackParams{HopCost: 1, WindowLength: 20, OverlapLength: 5})

	want, err := r.Optimal(points)
	require.NoError(t, err)
	got, err := r.Windowed(points)
	require.NoError(t, err)
	if diff := cmp.Diff(ids(want), ids(got)); diff != "" {
		t.Errorf("windowed track mismatch (-want +got):\n%s", diff)
	}
}

func TestWindowedReconcilesByLikelihood(t *testing.T) {
	t.Parallel()

	points := walk(30)
	// duplicate fix at t=600 with a better likelihood but same place
	dup := points[10]
	dup.PositionID = 99
	dup.Likelihood = 3
	points = append(points, dup)

	r := NewReconstructor(ConstSpeed(1), config.TrackParams{HopCost: 1, WindowLength: 12, OverlapLength: 4})
	got, err := r.Reconstruct(points, false)
	require.NoError(t, err)
	assert.Len(t, got, 30)
	assert.Contains(t, ids(got), int64(99))
	assert.NotContains(t, ids(got), int64(11))
}

func TestStats(t *testing.T) {
	t.Parallel()

	track := walk(4)
	legs := Legs(track)
	require.Len(t, legs, 3)
	assert.InDelta(t, 10.0/60, legs[0].Speed, 1e-12)
	assert.Equal(t, 30.0, legs[0].Timestamp)

	mean, std := SpeedStats(track)
	assert.InDelta(t, 10.0/60, mean, 1e-12)
	assert.InDelta(t, 0, std, 1e-12)
	for _, a := range Accelerations(track) {
		assert.InDelta(t, 0, a, 1e-12)
	}

	mean, _ = SpeedStats(track[:1])
	assert.True(t, math.IsNaN(mean))
}
