package plume

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindConversionRoundTrip(t *testing.T) {
	tests := []struct {
		name      string
		speed     float64
		direction float64
	}{
		{"northerly", 5, 360},
		{"easterly", 3, 90},
		{"southerly", 7, 180},
		{"westerly", 10, 270},
		{"north-east", 4, 45},
		{"south-west", 6, 225},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, v := WindToUV(tt.speed, tt.direction)
			assert.InDelta(t, tt.speed, WindSpeed(u, v), 1e-9)
			got := WindDirection(u, v)
			if got <= 0 {
				got += 360
			}
			assert.InDelta(t, tt.direction, got, 1e-6)
		})
	}
}

func TestWindToUVComponents(t *testing.T) {
	// Westerly wind blows toward the east: positive u, no v.
	u, v := WindToUV(5, 270)
	assert.InDelta(t, 5, u, 1e-9)
	assert.InDelta(t, 0, v, 1e-9)

	// Southerly wind blows toward the north: positive v, no u.
	u, v = WindToUV(5, 180)
	assert.InDelta(t, 0, u, 1e-9)
	assert.InDelta(t, 5, v, 1e-9)
}

func TestRotateAroundSource(t *testing.T) {
	// An observation 0.1° east of the source under a westerly wind sits
	// on the plume axis.
	x, y := RotateAroundSource(45, 5, 45, 5.1, 270)
	assert.InDelta(t, 0, x, 1e-6)

	// About 0.1° of longitude at 45° latitude in km.
	wantDist := 6378.0 * math.Pi / 180 * 0.1 * math.Cos(45*math.Pi/180)
	assert.InDelta(t, wantDist, math.Abs(y), 0.01)

	// The same observation under an easterly wind lands on the other
	// side of the axis.
	_, yUp := RotateAroundSource(45, 5, 45, 5.1, 90)
	assert.InDelta(t, -y, yUp, 1e-6)
}

func TestFlowContributionShape(t *testing.T) {
	const (
		speed = 5.0
		decay = 1.0 / 3
		width = 7.0
	)

	downwind := FlowContribution(0, -20, speed, decay, width)
	upwind := FlowContribution(0, 20, speed, decay, width)
	assert.Greater(t, downwind, upwind, "plume should extend downwind")

	onAxis := FlowContribution(0, -20, speed, decay, width)
	offAxis := FlowContribution(15, -20, speed, decay, width)
	assert.Greater(t, onAxis, offAxis, "contribution should fall off across the plume")

	near := FlowContribution(0, -10, speed, decay, width)
	far := FlowContribution(0, -200, speed, decay, width)
	assert.Greater(t, near, far, "decay should thin the plume downwind")

	assert.Positive(t, FlowContribution(0, 0, speed, decay, width))
}

func TestAdjustPlumeWidth(t *testing.T) {
	assert.Equal(t, 7.0, adjustPlumeWidth(5, 7), "no widening upwind")
	assert.Equal(t, 7.0, adjustPlumeWidth(0, 7))
	assert.InDelta(t, math.Sqrt(49+1.5*10), adjustPlumeWidth(-10, 7), 1e-12)
}

func TestLSQRRecoversKnownSolution(t *testing.T) {
	// Overdetermined well-conditioned system with a known solution.
	rows := [][]float64{
		{2, 0, 1, 0, 0},
		{0, 3, 0, 0, 1},
		{1, 0, 4, 0, 0},
		{0, 1, 0, 5, 0},
		{0, 0, 1, 0, 6},
		{1, 1, 0, 1, 0},
		{0, 0, 2, 1, 1},
		{3, 0, 0, 0, 2},
	}
	want := []float64{1, -2, 0.5, 3, -1}

	a := newSparseMatrix(len(want))
	b := make([]float64, len(rows))
	for i, r := range rows {
		a.appendRow(r, 0)
		for j, v := range r {
			b[i] += v * want[j]
		}
	}

	got := lsqr(a, b, 0, 200)
	require.Len(t, got, len(want))
	for j := range want {
		assert.InDelta(t, want[j], got[j], 1e-6, "component %d", j)
	}
}

func TestLSQRDampingShrinksSolution(t *testing.T) {
	a := newSparseMatrix(2)
	a.appendRow([]float64{1, 0}, 0)
	a.appendRow([]float64{0, 1}, 0)
	b := []float64{4, -4}

	exact := lsqr(a, b, 0, 100)
	damped := lsqr(a, b, 1, 100)

	assert.InDelta(t, 4, exact[0], 1e-9)
	assert.Less(t, math.Abs(damped[0]), math.Abs(exact[0]))
	assert.Less(t, math.Abs(damped[1]), math.Abs(exact[1]))
}

func TestSparseMatrixOps(t *testing.T) {
	a := newSparseMatrix(3)
	a.appendRow([]float64{1, 0, 2}, 0)
	a.appendRow([]float64{0, 3, 0}, 0)

	dst := make([]float64, 2)
	a.mulVec(dst, []float64{1, 1, 1})
	assert.Equal(t, []float64{3, 3}, dst)

	dstT := make([]float64, 3)
	a.mulTransVec(dstT, []float64{1, 2})
	assert.Equal(t, []float64{1, 6, 2}, dstT)

	// Entries below the threshold are dropped.
	sparse := newSparseMatrix(2)
	sparse.appendRow([]float64{1e-15, 1}, 1e-12)
	assert.Equal(t, 1, len(sparse.data))
}
