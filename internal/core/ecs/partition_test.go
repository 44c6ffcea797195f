package ecs

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartitions(t *testing.T) {
	w, _ := newTestWorld(t, DefaultOptions())
	base := w.ActivePartition()
	keep := w.CreateEntity(mgl64.Vec3{}, mgl64.QuatIdent())

	level := w.CreatePartition("level_1")
	w.SetActivePartition(level)
	a := w.CreateEntity(mgl64.Vec3{}, mgl64.QuatIdent())
	b := w.CreateEntity(mgl64.Vec3{}, mgl64.QuatIdent())
	assert.Equal(t, level, w.EntityPartition(a))
	assert.Equal(t, base, w.EntityPartition(keep))

	w.SetEntityPartition(keep, level)
	w.SetEntityPartition(keep, base)
	assert.Panics(t, func() { w.SetEntityPartition(keep, 99) })

	h, ok := w.FindPartition("level_1")
	require.True(t, ok)
	assert.Equal(t, level, h)
	assert.Len(t, w.Partitions(), 2)

	w.DestroyPartition(level)
	assert.False(t, w.HasEntity(a))
	assert.False(t, w.HasEntity(b))
	assert.True(t, w.HasEntity(keep))
	assert.Equal(t, base, w.ActivePartition())
	_, ok = w.Partition(level)
	assert.False(t, ok)
}
