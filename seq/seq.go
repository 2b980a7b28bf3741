// Package seq describes random-access sequences: anything with a length
// and positional access, where negative positions count from the end.
package seq

import "iter"

type Sequence[E any] interface {
	// Len returns the number of elements
	Len() int
	// At returns element i. -1 is the last element.
	At(i int) (E, error)
}

// Normalize maps i in [-n, n) to [0, n).
// ok is false if i is outside of that range.
func Normalize(i int, n int) (int, bool) {
	if i < -n || i >= n {
		return 0, false
	}
	if i < 0 {
		i += n
	}
	return i, true
}

// All returns an iterator over (position, element) pairs of s.
// Iteration stops at the first error. Call the returned error function
// after iteration to check it.
func All[E any](s Sequence[E]) (iter.Seq2[int, E], func() error) {
	var iterErr error
	it := func(yield func(int, E) bool) {
		n := s.Len()
		for i := 0; i < n; i++ {
			e, err := s.At(i)
			if err != nil {
				iterErr = err
				return
			}
			if !yield(i, e) {
				return
			}
		}
	}
	return it, func() error { return iterErr }
}
