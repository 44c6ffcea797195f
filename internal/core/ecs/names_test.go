package ecs

import (
	"fmt"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNamesSurviveSwapAndPop(t *testing.T) {
	w, _ := newTestWorld(t, DefaultOptions())
	var ents []EntityRef
	for i := 0; i < 5; i++ {
		e := w.CreateEntity(mgl64.Vec3{}, mgl64.QuatIdent())
		w.SetEntityName(e, fmt.Sprintf("crate_%d", i))
		ents = append(ents, e)
	}

	w.DestroyEntity(ents[1])
	w.DestroyEntity(ents[0])
	assert.Equal(t, 3, w.NamedCount())

	for i := 2; i < 5; i++ {
		name := fmt.Sprintf("crate_%d", i)
		assert.Equal(t, ents[i].Ptr(), w.FindByName(InvalidEntity, name))
		assert.Equal(t, name, w.EntityName(ents[i]))
	}
	assert.Equal(t, InvalidEntity, w.FindByName(InvalidEntity, "crate_0"))
}

func TestSetEntityName(t *testing.T) {
	w, _ := newTestWorld(t, DefaultOptions())
	e := w.CreateEntity(mgl64.Vec3{}, mgl64.QuatIdent())

	w.SetEntityName(e, "")
	assert.Equal(t, 0, w.NamedCount())
	assert.Empty(t, w.EntityName(e))

	w.SetEntityName(e, "door")
	w.SetEntityName(e, "gate")
	assert.Equal(t, 1, w.NamedCount())
	assert.Equal(t, "gate", w.EntityName(e))

	w.SetEntityName(e, strings.Repeat("x", 40))
	assert.Len(t, w.EntityName(e), MaxEntityNameLength-1)

	// truncation never splits a rune
	w.SetEntityName(e, strings.Repeat("\u00e9", 20))
	assert.Equal(t, strings.Repeat("\u00e9", 15), w.EntityName(e))

	// decomposed input is stored composed
	w.SetEntityName(e, "cafe\u0301")
	assert.Equal(t, "caf\u00e9", w.EntityName(e))
	assert.Equal(t, e.Ptr(), w.FindByName(InvalidEntity, "caf\u00e9"))
}

func TestFindByNameScopes(t *testing.T) {
	w, _ := newTestWorld(t, DefaultOptions())
	house := w.CreateEntity(mgl64.Vec3{}, mgl64.QuatIdent())
	door := w.CreateEntity(mgl64.Vec3{}, mgl64.QuatIdent())
	shed := w.CreateEntity(mgl64.Vec3{}, mgl64.QuatIdent())
	shedDoor := w.CreateEntity(mgl64.Vec3{}, mgl64.QuatIdent())
	w.SetEntityName(house, "house")
	w.SetEntityName(door, "door")
	w.SetEntityName(shed, "shed")
	w.SetEntityName(shedDoor, "door")
	require.NoError(t, w.SetParent(house.Ptr(), door))
	require.NoError(t, w.SetParent(shed.Ptr(), shedDoor))

	assert.Equal(t, door.Ptr(), w.FindByName(house.Ptr(), "door"))
	assert.Equal(t, shedDoor.Ptr(), w.FindByName(shed.Ptr(), "door"))
	assert.Equal(t, InvalidEntity, w.FindByName(house.Ptr(), "shed"))

	// without a parent only roots match
	assert.Equal(t, InvalidEntity, w.FindByName(InvalidEntity, "door"))
	assert.Equal(t, shed.Ptr(), w.FindByName(InvalidEntity, "shed"))
}
