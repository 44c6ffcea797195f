package ecs

// denseTable is an order-irrelevant array of per-entity records with a back-reference
// column naming each record's owner. remove swaps the last record into the hole and
// calls relocate so the owner's index field (EntityData.hierarchy / .name) follows it.
type denseTable[T any] struct {
	items    []T
	owners   []EntityRef
	relocate func(owner EntityRef, idx int32)
}

func newDenseTable[T any](reserve int, relocate func(EntityRef, int32)) denseTable[T] {
	return denseTable[T]{
		items:    make([]T, 0, reserve),
		owners:   make([]EntityRef, 0, reserve),
		relocate: relocate,
	}
}

// add appends v owned by e and returns its index.
func (d *denseTable[T]) add(owner EntityRef, v T) int32 {
	d.items = append(d.items, v)
	d.owners = append(d.owners, owner)
	return int32(len(d.items) - 1)
}

// remove drops record i in O(1).
func (d *denseTable[T]) remove(i int32) {
	last := int32(len(d.items) - 1)
	if i != last {
		d.items[i] = d.items[last]
		d.owners[i] = d.owners[last]
		d.relocate(d.owners[i], i)
	}
	var zero T
	d.items[last] = zero
	d.items = d.items[:last]
	d.owners = d.owners[:last]
}

func (d *denseTable[T]) at(i int32) *T {
	return &d.items[i]
}

func (d *denseTable[T]) owner(i int32) EntityRef {
	return d.owners[i]
}

func (d *denseTable[T]) len() int {
	return len(d.items)
}
