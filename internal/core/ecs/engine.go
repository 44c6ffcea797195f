package ecs

import (
	"github.com/blackforge/engine/internal/core/stream"
	"go.uber.org/zap"
)

// Module is a per-world subsystem (render, navigation, scripting, ...) that owns the
// data behind one or more component types.
type Module interface {
	Name() string
}

// Initializer is implemented by modules that need a pass after every module of the
// world has been created.
type Initializer interface {
	Init()
}

// Updater is implemented by modules that advance every World.Update.
type Updater interface {
	Update(dt float64)
}

// Serializable modules are written into world snapshots after the core tables.
// Deserialize must pass every stored entity handle through the EntityMap.
type Serializable interface {
	Version() int32
	Serialize(w *stream.Writer)
	Deserialize(r *stream.Reader, m *EntityMap, version int32) error
}

// Closer is implemented by modules holding resources released with the world.
type Closer interface {
	Close()
}

// Plugin is the process-wide entry for a subsystem. Every World asks each registered
// plugin to instantiate its modules bound to that world.
type Plugin interface {
	Name() string
	CreateModules(w *World)
}

// Options tune a World.
type Options struct {
	ReservedEntities int
	DestroyPolicy    DestroyPolicy
}

// DefaultOptions matches the engine's stock configuration.
func DefaultOptions() Options {
	return Options{
		ReservedEntities: 1024,
		DestroyPolicy:    DestroyDetach,
	}
}

// Engine owns process-wide state: the component type registry and the plugin list.
// Construct one at startup and pass it to every World explicitly.
type Engine struct {
	Types   *TypeRegistry
	plugins []Plugin
	log     *zap.Logger
}

func NewEngine(log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		Types:   NewTypeRegistry(),
		plugins: make([]Plugin, 0, 8),
		log:     log,
	}
}

// RegisterPlugin appends p; worlds created afterwards get its modules.
func (e *Engine) RegisterPlugin(p Plugin) {
	e.plugins = append(e.plugins, p)
	e.log.Debug("plugin registered", zap.String("plugin", p.Name()))
}

func (e *Engine) Plugins() []Plugin { return e.plugins }

func (e *Engine) Logger() *zap.Logger { return e.log }

// NewWorld builds a world and lets every plugin add its modules, then initializes them.
func (e *Engine) NewWorld(opts Options) *World {
	w := newWorld(e, opts)
	for _, p := range e.plugins {
		p.CreateModules(w)
	}
	for _, m := range w.modules {
		if i, ok := m.(Initializer); ok {
			i.Init()
		}
	}
	e.log.Debug("world created",
		zap.Int("modules", len(w.modules)),
		zap.Int("component_types", e.Types.Count()))
	return w
}

// Shutdown releases plugins that hold process-wide resources.
func (e *Engine) Shutdown() {
	for i := len(e.plugins) - 1; i >= 0; i-- {
		if c, ok := e.plugins[i].(Closer); ok {
			c.Close()
		}
	}
	e.plugins = nil
}
