package methods

import (
	"context"
	"sync/atomic"
)

// Progress tracks the completed fraction of a running calculation. It is
// handed to calculators through the context, so a calculator shared by
// concurrent runs never carries run state itself.
type Progress struct {
	done  atomic.Int64
	total atomic.Int64
}

// SetTotal declares how many steps the run will take.
func (p *Progress) SetTotal(n int) {
	p.total.Store(int64(n))
}

// Step marks one step as finished.
func (p *Progress) Step() {
	p.done.Add(1)
}

// Fraction returns the completed share in [0, 1]. It stays 0 while the
// total is unknown.
func (p *Progress) Fraction() float64 {
	total := p.total.Load()
	if total <= 0 {
		return 0
	}
	f := float64(p.done.Load()) / float64(total)
	if f > 1 {
		return 1
	}
	return f
}

type progressKey struct{}

// WithProgress attaches a progress tracker to the context.
func WithProgress(ctx context.Context, p *Progress) context.Context {
	return context.WithValue(ctx, progressKey{}, p)
}

// ProgressFrom returns the tracker attached to the context. Without one a
// throwaway is returned, so calculators can report unconditionally.
func ProgressFrom(ctx context.Context) *Progress {
	if p, ok := ctx.Value(progressKey{}).(*Progress); ok {
		return p
	}
	return &Progress{}
}
