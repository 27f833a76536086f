package containers

// Ring is a fixed set of slots addressed by a monotonically increasing
// counter. Slot i is reused every Len() counts.
type Ring[T any] struct {
	data []T
}

func NewRing[T any](slots []T) *Ring[T] {
	if len(slots) == 0 {
		panic("containers: ring requires at least one slot")
	}
	return &Ring[T]{data: slots}
}

func (r *Ring[T]) Len() int {
	return len(r.data)
}

// Index returns the slot index used for counter n.
func (r *Ring[T]) Index(n uint64) int {
	return int(n % uint64(len(r.data)))
}

// At returns the slot for counter n.
func (r *Ring[T]) At(n uint64) T {
	return r.data[r.Index(n)]
}

// Each visits every slot in index order.
func (r *Ring[T]) Each(fn func(i int, v T)) {
	for i, v := range r.data {
		fn(i, v)
	}
}
