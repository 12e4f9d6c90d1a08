package mesh

// cell is a lazily computed, overridable value.
type cell[T any] struct {
	value T
	ok    bool
}

func (c *cell[T]) get(compute func() T) T {
	if !c.ok {
		c.value = compute()
		c.ok = true
	}
	return c.value
}

func (c *cell[T]) set(v T) {
	c.value = v
	c.ok = true
}

func (c *cell[T]) reset() {
	var zero T
	c.value = zero
	c.ok = false
}
