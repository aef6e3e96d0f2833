package prox

import "github.com/cwbudde/prostsolve/internal/device"

// Permute evaluates Inner on a permuted view of its own range: Perm is
// an index array of length size (Inner's range size); local position k
// reads from local source index Perm[k]. The result is scattered back
// through the inverse permutation so Eval's contract (result mutates
// only [idx, idx+size)) still holds from the caller's point of view.
type Permute[T device.Scalar] struct {
	Inner Prox[T]
	Perm  []int
}

func NewPermute[T device.Scalar](inner Prox[T], perm []int) *Permute[T] {
	return &Permute[T]{Inner: inner, Perm: perm}
}

func (p *Permute[T]) Range() (int, int) { return p.Inner.Range() }
func (p *Permute[T]) DiagSteps() bool   { return p.Inner.DiagSteps() }

func (p *Permute[T]) Eval(result, arg, tauDiag device.View[T], tau T, invert bool) {
	idx, size := p.Inner.Range()
	full := arg.Len()

	permutedArg := make([]T, full)
	copy(permutedArg, arg.Raw())
	permutedDiag := make([]T, full)
	copy(permutedDiag, tauDiag.Raw())

	a := arg.Raw()
	d := tauDiag.Raw()
	for k := 0; k < size; k++ {
		src := idx + p.Perm[k]
		dst := idx + k
		permutedArg[dst] = a[src]
		permutedDiag[dst] = d[src]
	}

	permArgView := device.FromHost(permutedArg, nil).Full()
	permDiagView := device.FromHost(permutedDiag, nil).Full()
	permResult := device.Alloc[T](full, nil).Full()

	p.Inner.Eval(permResult, permArgView, permDiagView, tau, invert)

	res := result.Raw()
	pr := permResult.Raw()
	for k := 0; k < size; k++ {
		src := idx + p.Perm[k]
		dst := idx + k
		res[src] = pr[dst]
	}
}
