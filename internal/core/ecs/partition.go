package ecs

import "fmt"

// PartitionHandle names a partition: a set of entities loaded and unloaded together.
type PartitionHandle uint16

type Partition struct {
	Handle PartitionHandle
	Name   string
}

// CreatePartition adds a partition. New entities go to the active partition.
func (w *World) CreatePartition(name string) PartitionHandle {
	if len(w.partitions) > 0xffff {
		panic("ecs: partition handles exhausted")
	}
	h := w.partitionGen
	w.partitionGen++
	w.partitions = append(w.partitions, Partition{Handle: h, Name: name})
	return h
}

// DestroyPartition destroys every entity in the partition and forgets it. If it was
// active, the first remaining partition becomes active.
func (w *World) DestroyPartition(h PartitionHandle) {
	for i := range w.entities.data {
		d := &w.entities.data[i]
		if d.valid && d.partition == h {
			w.DestroyEntity(EntityRef(i))
		}
	}
	for i, p := range w.partitions {
		if p.Handle == h {
			w.partitions = append(w.partitions[:i], w.partitions[i+1:]...)
			break
		}
	}
	if w.activePartition == h && len(w.partitions) > 0 {
		w.activePartition = w.partitions[0].Handle
	}
}

func (w *World) SetActivePartition(h PartitionHandle) {
	w.activePartition = h
}

func (w *World) ActivePartition() PartitionHandle {
	return w.activePartition
}

// Partitions returns a copy of the partition list.
func (w *World) Partitions() []Partition {
	return append([]Partition(nil), w.partitions...)
}

// Partition returns the partition with handle h.
func (w *World) Partition(h PartitionHandle) (Partition, bool) {
	for _, p := range w.partitions {
		if p.Handle == h {
			return p, true
		}
	}
	return Partition{}, false
}

// FindPartition returns the first partition called name.
func (w *World) FindPartition(name string) (PartitionHandle, bool) {
	for _, p := range w.partitions {
		if p.Name == name {
			return p.Handle, true
		}
	}
	return 0, false
}

func (w *World) EntityPartition(e EntityRef) PartitionHandle {
	return w.entities.must(e).partition
}

func (w *World) SetEntityPartition(e EntityRef, h PartitionHandle) {
	if _, ok := w.Partition(h); !ok {
		panic(fmt.Sprintf("ecs: unknown partition %d", h))
	}
	w.entities.must(e).partition = h
}
