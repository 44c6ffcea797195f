package script

import (
	"math"

	"github.com/blackforge/engine/internal/core/ecs"
	"github.com/go-gl/mathgl/mgl64"
	lua "github.com/yuin/gopher-lua"
)

// registerAPI installs the global "world" table. Entities are plain numbers on the
// Lua side; a dead or unknown entity argument raises a Lua error.
func (m *Module) registerAPI() {
	api := m.vm.SetFuncs(m.vm.NewTable(), map[string]lua.LGFunction{
		"create_entity":      m.luaCreateEntity,
		"destroy_entity":     m.luaDestroyEntity,
		"queue_destroy":      m.luaQueueDestroy,
		"get_position":       m.luaGetPosition,
		"set_position":       m.luaSetPosition,
		"get_local_position": m.luaGetLocalPosition,
		"set_local_position": m.luaSetLocalPosition,
		"get_parent":         m.luaGetParent,
		"set_parent":         m.luaSetParent,
		"get_name":           m.luaGetName,
		"set_name":           m.luaSetName,
		"find_by_name":       m.luaFindByName,
	})
	m.vm.SetGlobal("world", api)
}

func (m *Module) checkEntity(L *lua.LState, n int) ecs.EntityRef {
	v := L.CheckInt(n)
	if v < 0 || v > math.MaxInt32 || !m.w.HasEntity(ecs.EntityRef(v)) {
		L.ArgError(n, "no such entity")
	}
	return ecs.EntityRef(v)
}

func checkVec3(L *lua.LState, from int) mgl64.Vec3 {
	return mgl64.Vec3{
		float64(L.OptNumber(from, 0)),
		float64(L.OptNumber(from+1, 0)),
		float64(L.OptNumber(from+2, 0)),
	}
}

func pushVec3(L *lua.LState, v mgl64.Vec3) int {
	L.Push(lua.LNumber(v[0]))
	L.Push(lua.LNumber(v[1]))
	L.Push(lua.LNumber(v[2]))
	return 3
}

func pushEntity(L *lua.LState, p ecs.EntityPtr) int {
	if !p.IsValid() {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LNumber(p))
	return 1
}

// world.create_entity([x, y, z]) -> entity
func (m *Module) luaCreateEntity(L *lua.LState) int {
	e := m.w.CreateEntity(checkVec3(L, 1), mgl64.QuatIdent())
	L.Push(lua.LNumber(e))
	return 1
}

func (m *Module) luaDestroyEntity(L *lua.LState) int {
	m.w.DestroyEntity(m.checkEntity(L, 1))
	return 0
}

// world.queue_destroy(e) destroys e when the host flushes its destroy queue.
func (m *Module) luaQueueDestroy(L *lua.LState) int {
	m.w.MarkForDestruction(m.checkEntity(L, 1))
	return 0
}

// world.get_position(e) -> x, y, z
func (m *Module) luaGetPosition(L *lua.LState) int {
	return pushVec3(L, m.w.Position(m.checkEntity(L, 1)))
}

func (m *Module) luaSetPosition(L *lua.LState) int {
	e := m.checkEntity(L, 1)
	m.w.SetPosition(e, checkVec3(L, 2))
	return 0
}

func (m *Module) luaGetLocalPosition(L *lua.LState) int {
	return pushVec3(L, m.w.LocalTransform(m.checkEntity(L, 1)).Pos)
}

func (m *Module) luaSetLocalPosition(L *lua.LState) int {
	e := m.checkEntity(L, 1)
	m.w.SetLocalPosition(e, checkVec3(L, 2))
	return 0
}

// world.get_parent(e) -> entity or nil
func (m *Module) luaGetParent(L *lua.LState) int {
	return pushEntity(L, m.w.Parent(m.checkEntity(L, 1)))
}

// world.set_parent(parent or nil, child) -> true | false, message
func (m *Module) luaSetParent(L *lua.LState) int {
	parent := ecs.InvalidEntity
	if L.Get(1) != lua.LNil {
		parent = m.checkEntity(L, 1).Ptr()
	}
	child := m.checkEntity(L, 2)
	if err := m.w.SetParent(parent, child); err != nil {
		L.Push(lua.LFalse)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LTrue)
	return 1
}

func (m *Module) luaGetName(L *lua.LState) int {
	L.Push(lua.LString(m.w.EntityName(m.checkEntity(L, 1))))
	return 1
}

func (m *Module) luaSetName(L *lua.LState) int {
	e := m.checkEntity(L, 1)
	m.w.SetEntityName(e, L.CheckString(2))
	return 0
}

// world.find_by_name(name[, parent]) -> entity or nil
func (m *Module) luaFindByName(L *lua.LState) int {
	name := L.CheckString(1)
	parent := ecs.InvalidEntity
	if L.Get(2) != lua.LNil {
		parent = m.checkEntity(L, 2).Ptr()
	}
	return pushEntity(L, m.w.FindByName(parent, name))
}
