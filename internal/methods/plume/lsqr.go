package plume

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// sparseMatrix is a compressed sparse row matrix. Plume contributions
// vanish quickly with distance, so most design matrix entries are zero
// and a dense representation would not fit larger regions in memory.
type sparseMatrix struct {
	rows, cols int
	rowPtr     []int
	colIdx     []int
	data       []float64
}

func newSparseMatrix(cols int) *sparseMatrix {
	return &sparseMatrix{cols: cols, rowPtr: []int{0}}
}

// appendRow adds a row given as a dense slice, keeping entries above the
// threshold.
func (m *sparseMatrix) appendRow(dense []float64, threshold float64) {
	for j, v := range dense {
		if math.Abs(v) > threshold {
			m.colIdx = append(m.colIdx, j)
			m.data = append(m.data, v)
		}
	}
	m.rows++
	m.rowPtr = append(m.rowPtr, len(m.data))
}

// mulVec computes dst = A*x.
func (m *sparseMatrix) mulVec(dst, x []float64) {
	for i := 0; i < m.rows; i++ {
		var sum float64
		for k := m.rowPtr[i]; k < m.rowPtr[i+1]; k++ {
			sum += m.data[k] * x[m.colIdx[k]]
		}
		dst[i] = sum
	}
}

// mulTransVec computes dst = Aᵀ*y.
func (m *sparseMatrix) mulTransVec(dst, y []float64) {
	for j := range dst {
		dst[j] = 0
	}
	for i := 0; i < m.rows; i++ {
		yi := y[i]
		if yi == 0 {
			continue
		}
		for k := m.rowPtr[i]; k < m.rowPtr[i+1]; k++ {
			dst[m.colIdx[k]] += m.data[k] * yi
		}
	}
}

// lsqr solves the damped least squares problem
//
//	min ||A*x - b||² + damp²*||x||²
//
// with the iterative method of Paige and Saunders. The damping keeps the
// under-determined source fit from scattering emissions into noise.
func lsqr(a *sparseMatrix, b []float64, damp float64, maxIter int) []float64 {
	x := make([]float64, a.cols)

	u := make([]float64, len(b))
	copy(u, b)
	beta := floats.Norm(u, 2)
	if beta == 0 {
		return x
	}
	bNorm := beta
	floats.Scale(1/beta, u)

	v := make([]float64, a.cols)
	a.mulTransVec(v, u)
	alpha := floats.Norm(v, 2)
	if alpha == 0 {
		return x
	}
	floats.Scale(1/alpha, v)

	w := make([]float64, a.cols)
	copy(w, v)

	phiBar := beta
	rhoBar := alpha

	tmpRow := make([]float64, len(b))
	tmpCol := make([]float64, a.cols)

	for iter := 0; iter < maxIter; iter++ {
		// Bidiagonalization step.
		a.mulVec(tmpRow, v)
		floats.AddScaled(tmpRow, -alpha, u)
		u, tmpRow = tmpRow, u
		beta = floats.Norm(u, 2)
		if beta > 0 {
			floats.Scale(1/beta, u)
		}

		a.mulTransVec(tmpCol, u)
		floats.AddScaled(tmpCol, -beta, v)
		v, tmpCol = tmpCol, v
		alpha = floats.Norm(v, 2)
		if alpha > 0 {
			floats.Scale(1/alpha, v)
		}

		// Eliminate the damping term.
		rhoBar1 := math.Hypot(rhoBar, damp)
		cs1 := rhoBar / rhoBar1
		phiBar = cs1 * phiBar

		// Plane rotation to eliminate the subdiagonal.
		rho := math.Hypot(rhoBar1, beta)
		if rho == 0 {
			break
		}
		cs := rhoBar1 / rho
		sn := beta / rho
		theta := sn * alpha
		rhoBar = -cs * alpha
		phi := cs * phiBar
		phiBar = sn * phiBar

		// Update the solution and the search direction.
		t1 := phi / rho
		t2 := -theta / rho
		for j := range x {
			x[j] += t1 * w[j]
			w[j] = v[j] + t2*w[j]
		}

		if phiBar <= 1e-12*bNorm || alpha == 0 {
			break
		}
	}
	return x
}
