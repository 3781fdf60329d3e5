package cache

// Res is a shared, in-place-mutable resource cell. Every holder of the
// same Res observes the same live value: a reload replaces the value
// behind the cell, so holders never need to re-fetch after a hot reload.
//
// Mutation only ever happens on the cache's owning goroutine (during
// Sync); holders are expected to read from that same goroutine.
type Res[T any] struct {
	val *T
}

func newRes[T any](val *T) *Res[T] {
	return &Res[T]{val: val}
}

// Value returns the live value. The pointer stays valid across reloads.
func (r *Res[T]) Value() *T { return r.val }
