// Package script attaches Lua behaviours to entities. Each world runs its own
// gopher-lua VM; library scripts are compiled once per process and shared.
package script

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/blackforge/engine/internal/core/ecs"
	"github.com/blackforge/engine/internal/core/stream"
	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
	"go.uber.org/zap"
)

const (
	ModuleName = "script"
	ScriptType = "lua_script"
)

const moduleVersion int32 = 1

// Script is a loaded behaviour. self is the table the chunk returned.
type Script struct {
	Name    string
	Source  string
	self    *lua.LTable
	started bool
}

// Plugin compiles the library scripts under <dir>/lib and gives every world a Module.
type Plugin struct {
	dir  string
	libs []*lua.FunctionProto
	log  *zap.Logger
}

// NewPlugin compiles the library scripts. A missing directory is not an error.
func NewPlugin(dir string, log *zap.Logger) (*Plugin, error) {
	p := &Plugin{dir: dir, log: log.Named(ModuleName)}
	if dir == "" {
		return p, nil
	}
	if err := p.loadDir(filepath.Join(dir, "lib")); err != nil {
		return nil, fmt.Errorf("load lib scripts: %w", err)
	}
	return p, nil
}

// loadDir compiles all .lua files in a directory, in name order.
func (p *Plugin) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		proto, err := compileFile(path)
		if err != nil {
			return err
		}
		p.libs = append(p.libs, proto)
		p.log.Debug("compiled lua library", zap.String("file", path))
	}
	return nil
}

func compileFile(path string) (*lua.FunctionProto, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	chunk, err := parse.Parse(f, path)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	proto, err := lua.Compile(chunk, path)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", path, err)
	}
	return proto, nil
}

func (p *Plugin) Name() string { return ModuleName }

func (p *Plugin) CreateModules(w *ecs.World) {
	w.AddModule(newModule(w, p))
}

// Module runs the scripts of one world. Single-goroutine access only (world loop).
type Module struct {
	w       *ecs.World
	log     *zap.Logger
	dir     string
	typ     ecs.ComponentType
	vm      *lua.LState
	scripts *ecs.Store[Script]
	order   []ecs.EntityRef
}

func newModule(w *ecs.World, p *Plugin) *Module {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	m := &Module{
		w:       w,
		log:     p.log,
		dir:     p.dir,
		typ:     w.Types().Type(ScriptType),
		vm:      vm,
		scripts: ecs.NewStore[Script](),
	}
	m.registerAPI()
	for _, proto := range p.libs {
		vm.Push(vm.NewFunctionFromProto(proto))
		if err := vm.PCall(0, lua.MultRet, nil); err != nil {
			m.log.Error("lua library error", zap.String("source", proto.SourceName), zap.Error(err))
		}
	}
	w.RegisterComponentType(m.typ, m, m)
	return m
}

func From(w *ecs.World) *Module {
	m, _ := w.Module(ModuleName).(*Module)
	return m
}

func (m *Module) Name() string                  { return ModuleName }
func (m *Module) ScriptType() ecs.ComponentType { return m.typ }

func (m *Module) CreateComponent(w *ecs.World, e ecs.EntityRef) {
	m.scripts.Set(e, &Script{})
	w.OnComponentCreated(e, m.typ, m)
}

func (m *Module) DestroyComponent(w *ecs.World, e ecs.EntityRef) {
	m.scripts.Remove(e)
	w.OnComponentDestroyed(e, m.typ, m)
}

func (m *Module) Script(e ecs.EntityRef) (*Script, bool) {
	return m.scripts.Get(e)
}

// Attach loads a script file relative to the scripts directory onto e.
func (m *Module) Attach(e ecs.EntityRef, path string) error {
	src, err := os.ReadFile(filepath.Join(m.dir, path))
	if err != nil {
		return fmt.Errorf("read script: %w", err)
	}
	return m.AttachSource(e, path, string(src))
}

// AttachSource runs src, which must return a table, and binds that table to e.
// Its start(self) runs on the next Update, then update(self, dt) every Update.
func (m *Module) AttachSource(e ecs.EntityRef, name, src string) error {
	fn, err := m.vm.LoadString(src)
	if err != nil {
		return fmt.Errorf("load script %s: %w", name, err)
	}
	if err := m.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}); err != nil {
		return fmt.Errorf("run script %s: %w", name, err)
	}
	result := m.vm.Get(-1)
	m.vm.Pop(1)

	self, ok := result.(*lua.LTable)
	if !ok {
		return fmt.Errorf("script %s returned %s, want table", name, result.Type())
	}
	self.RawSetString("entity", lua.LNumber(e))

	if !m.scripts.Has(e) {
		m.w.CreateComponent(m.typ, e)
	}
	s, _ := m.scripts.Get(e)
	s.Name = name
	s.Source = src
	s.self = self
	s.started = false
	return nil
}

// Update runs start once and then update for every script, in entity order.
// Script errors are logged and do not stop other scripts.
func (m *Module) Update(dt float64) {
	m.order = m.order[:0]
	for e := range m.w.EntitiesWith(m.typ) {
		m.order = append(m.order, e)
	}
	for _, e := range m.order {
		s, ok := m.scripts.Get(e)
		if !ok || s.self == nil {
			continue
		}
		if !s.started {
			s.started = true
			m.call(e, s, "start")
			if !m.scripts.Has(e) {
				continue
			}
		}
		m.call(e, s, "update", lua.LNumber(dt))
	}
}

func (m *Module) call(e ecs.EntityRef, s *Script, name string, args ...lua.LValue) {
	fn := s.self.RawGetString(name)
	if fn.Type() != lua.LTFunction {
		return
	}
	if err := m.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, append([]lua.LValue{s.self}, args...)...); err != nil {
		m.log.Error("lua script error",
			zap.String("script", s.Name),
			zap.String("func", name),
			zap.Int32("entity", int32(e)),
			zap.Error(err))
	}
}

func (m *Module) Version() int32 { return moduleVersion }

// Serialize stores script sources only; table state is rebuilt and start runs again.
func (m *Module) Serialize(b *stream.Writer) {
	b.WriteU32(uint32(m.scripts.Len()))
	for e := range m.w.EntitiesWith(m.typ) {
		s, _ := m.scripts.Get(e)
		b.WriteI32(int32(e))
		b.WriteString(s.Name)
		b.WriteString(s.Source)
	}
}

func (m *Module) Deserialize(r *stream.Reader, em *ecs.EntityMap, version int32) error {
	if version > moduleVersion {
		return fmt.Errorf("%w: script %d", ecs.ErrUnsupportedVersion, version)
	}
	n := r.ReadU32()
	for i := uint32(0); i < n; i++ {
		e := em.Get(ecs.EntityPtr(r.ReadI32()))
		name := r.ReadString()
		src := r.ReadString()
		if r.Overflow() || !e.IsValid() {
			return fmt.Errorf("%w: scripts", ecs.ErrCorrupted)
		}
		if src == "" {
			m.w.CreateComponent(m.typ, e.MustRef())
			continue
		}
		if err := m.AttachSource(e.MustRef(), name, src); err != nil {
			return err
		}
	}
	return nil
}

// Close shuts down the Lua VM.
func (m *Module) Close() {
	m.vm.Close()
}
