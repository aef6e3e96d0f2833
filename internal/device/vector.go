// Package device implements the device array primitive: a typed,
// contiguous buffer that the rest of the solver treats as GPU-resident
// memory, plus the elementwise kernels (axpy, scale, reductions) that
// every Block and Prox leaf is built on.
//
// The scalar type is a Go generic parameter rather than a fixed type,
// per the "parameterize the entire stack by scalar type" design note:
// callers instantiate device.Vector[float32] or device.Vector[float64].
// The float64 kernels delegate to gonum/floats (the idiomatic Go
// numeric-kernels library); float32 kernels use a portable loop since
// gonum/floats only covers float64.
package device

import "github.com/cwbudde/prostsolve/internal/solverr"

// Scalar is the set of scalar types the solver is instantiated over.
type Scalar interface {
	~float32 | ~float64
}

// Stream models the implicit per-instance command queue every device
// vector operation is serialized on. It executes kernels eagerly on host
// memory, so Sync has nothing left to wait for. This holds in every
// build: the gpu-tagged Runtime in gpu_runtime_gpu.go is not connected to
// Stream.
type Stream struct {
	pending []func()
}

// NewStream creates a stream bound to one device vector family.
func NewStream() *Stream { return &Stream{} }

func (s *Stream) enqueue(fn func()) {
	if s == nil {
		fn()
		return
	}
	s.pending = append(s.pending, fn)
	// Eager execution: nothing "in flight" between suspension points on
	// the CPU backend. Kept as a queue (rather than a direct call) so
	// Sync has a real place to drain once a GPU backend is wired in.
	s.drain()
}

func (s *Stream) drain() {
	for len(s.pending) > 0 {
		fn := s.pending[0]
		s.pending = s.pending[1:]
		fn()
	}
}

// Sync blocks the host until every kernel launched on this stream has
// completed. Required before any host-visible read (CurrentSolution,
// residual scalars) per the concurrency model in §5.
func (s *Stream) Sync() {
	if s == nil {
		return
	}
	s.drain()
}

// Vector is a contiguous, mutable, device-resident sequence of T.
// Length is fixed at allocation. Sub-ranges are obtained with View,
// which aliases rather than copies the parent's storage.
type Vector[T Scalar] struct {
	data   []T
	stream *Stream
}

// Alloc allocates a zero-filled vector of length n on the given stream.
// Passing a nil stream is valid; each operation then runs on an
// implicit private stream (useful in tests).
func Alloc[T Scalar](n int, stream *Stream) *Vector[T] {
	if stream == nil {
		stream = NewStream()
	}
	return &Vector[T]{data: make([]T, n), stream: stream}
}

// FromHost copies a host slice into a newly allocated device vector.
func FromHost[T Scalar](host []T, stream *Stream) *Vector[T] {
	v := Alloc[T](len(host), stream)
	copy(v.data, host)
	return v
}

// Len returns the vector's fixed length.
func (v *Vector[T]) Len() int { return len(v.data) }

// Stream returns the stream this vector's operations are serialized on.
func (v *Vector[T]) Stream() *Stream { return v.stream }

// Fill sets every element to val.
func (v *Vector[T]) Fill(val T) {
	v.stream.enqueue(func() {
		for i := range v.data {
			v.data[i] = val
		}
	})
}

// CopyFromHost overwrites the vector's contents from a host slice.
func (v *Vector[T]) CopyFromHost(host []T) {
	if len(host) != len(v.data) {
		panic(solverr.New(solverr.KindShapeMismatch, "CopyFromHost: length mismatch"))
	}
	v.stream.enqueue(func() {
		copy(v.data, host)
	})
}

// CopyToHost synchronizes the stream and returns a host-owned copy.
func (v *Vector[T]) CopyToHost() []T {
	v.stream.Sync()
	out := make([]T, len(v.data))
	copy(out, v.data)
	return out
}

// Raw exposes the backing slice directly. Used by kernels in this
// package and by Block implementations that need direct element access
// (e.g. gradient stencils). Callers outside package device should treat
// the result as aliasing device.Vector, not a safe copy.
func (v *Vector[T]) Raw() []T { return v.data }

// View is an aliasing sub-range [begin, end) of a parent Vector. It does
// not own storage and is invalidated if the parent is reallocated
// (Vectors never reallocate after Alloc, so this is safe for their
// lifetime).
type View[T Scalar] struct {
	data   []T
	stream *Stream
}

// View returns the aliasing sub-range [begin, end) of v.
func (v *Vector[T]) View(begin, end int) View[T] {
	if begin < 0 || end > len(v.data) || begin > end {
		panic(solverr.New(solverr.KindShapeMismatch, "View: out of range"))
	}
	return View[T]{data: v.data[begin:end], stream: v.stream}
}

// Full returns a View spanning the entire vector.
func (v *Vector[T]) Full() View[T] { return v.View(0, len(v.data)) }

// Len returns the view's length.
func (vw View[T]) Len() int { return len(vw.data) }

// Raw exposes the aliased slice.
func (vw View[T]) Raw() []T { return vw.data }

// Stream returns the view's stream.
func (vw View[T]) Stream() *Stream { return vw.stream }
