package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/blackforge/engine/internal/config"
	"github.com/blackforge/engine/internal/core/ecs"
	"github.com/blackforge/engine/internal/core/event"
	coresys "github.com/blackforge/engine/internal/core/system"
	"github.com/blackforge/engine/internal/data"
	"github.com/blackforge/engine/internal/module/nav"
	"github.com/blackforge/engine/internal/module/render"
	"github.com/blackforge/engine/internal/module/script"
	"github.com/blackforge/engine/internal/persist"
	"github.com/blackforge/engine/internal/system"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(scene string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m          blackforge worldd  v0.1.0        \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mscene:\033[0m %s\n\n", scene)
}

func printSection(title string) {
	lineLen := max(46-len(title)-1, 3)
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := max(42-len(label)-len(numStr), 3)
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main loop ─────────────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/world.toml"
	if p := os.Getenv("WORLD_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Scene.Path)

	// 3. Snapshot stores; the database one is optional
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	fileStore := persist.NewFileStore(cfg.Snapshot.Dir)
	stores := []system.SnapshotStore{fileStore}
	if cfg.Database.Enabled {
		printSection("database")
		db, err := persist.NewDB(ctx, cfg.Database, log)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		printOK("PostgreSQL connected")

		if err := persist.RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		printOK("migrations applied")
		stores = append(stores, persist.NewSnapshotRepo(db))
		fmt.Println()
	}

	// 4. Engine and world
	printSection("world")
	scripts, err := script.NewPlugin(cfg.Scripting.Dir, log)
	if err != nil {
		return fmt.Errorf("scripting: %w", err)
	}
	engine := ecs.NewEngine(log.Named("ecs"))
	engine.RegisterPlugin(render.NewPlugin(log))
	engine.RegisterPlugin(nav.NewPlugin(log))
	engine.RegisterPlugin(scripts)
	defer engine.Shutdown()

	world := engine.NewWorld(cfg.WorldOptions())
	defer world.Close()
	printStat("modules", len(world.Modules()))
	printStat("component types", engine.Types.Count())

	// 5. Scene
	scene, err := data.LoadScene(cfg.Scene.Path)
	if err != nil {
		return fmt.Errorf("scene: %w", err)
	}
	if _, err := scene.Instantiate(world, log); err != nil {
		return fmt.Errorf("instantiate scene: %w", err)
	}
	printStat("entities", world.EntityCount())
	printStat("hierarchy nodes", world.HierarchySize())
	fmt.Println()

	// 6. Systems
	bus := event.NewBus()
	unbridge := system.BridgeWorldEvents(world, bus)
	defer unbridge()
	event.Subscribe(bus, func(ev event.AgentArrived) {
		log.Info("agent arrived",
			zap.Int32("entity", int32(ev.Entity)),
			zap.String("name", entityName(world, ev.Entity)))
	})
	event.Subscribe(bus, func(ev event.SnapshotSaved) {
		log.Debug("snapshot event", zap.String("target", ev.Target), zap.Int("bytes", ev.Bytes))
	})

	runner := coresys.NewRunner()
	runner.Register(system.NewEventSystem(bus))
	for _, s := range system.NewModuleSystems(world) {
		runner.Register(s)
	}
	if draw := system.NewDrawSystem(world, cfg.Scene.Camera, log); draw != nil {
		runner.Register(draw)
	}
	snapshots := system.NewSnapshotSystem(world, bus, cfg.Snapshot.Name, cfg.SerializeFlags(),
		cfg.Snapshot.IntervalTicks, log, stores...)
	runner.Register(snapshots)
	runner.Register(system.NewCleanupSystem(world, log))

	// 7. Tick loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Simulation.TickRate)
	defer ticker.Stop()

	printSection("running")
	printReady(fmt.Sprintf("tick %s", cfg.Simulation.TickRate))
	if cfg.Simulation.Ticks > 0 {
		printReady(fmt.Sprintf("stopping after %d ticks", cfg.Simulation.Ticks))
	}
	fmt.Println()

loop:
	for {
		select {
		case <-ticker.C:
			runner.Tick(cfg.Simulation.TickRate)
			if cfg.Simulation.Ticks > 0 && runner.Ticks() >= uint64(cfg.Simulation.Ticks) {
				break loop
			}
		case sig := <-shutdownCh:
			log.Info("shutdown signal", zap.String("signal", sig.String()))
			break loop
		}
	}
	log.Info("simulation stopped",
		zap.Uint64("ticks", runner.Ticks()),
		zap.Int("entities", world.EntityCount()))

	// 8. Final snapshot, then prove it loads
	saveCtx, saveCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer saveCancel()
	if err := snapshots.SaveNow(saveCtx); err != nil {
		return fmt.Errorf("final snapshot: %w", err)
	}
	return reloadCheck(saveCtx, engine, world, fileStore, cfg, log)
}

// reloadCheck loads the snapshot just written into a fresh world and compares it
// with the live one.
func reloadCheck(ctx context.Context, engine *ecs.Engine, live *ecs.World, store *persist.FileStore, cfg *config.Config, log *zap.Logger) error {
	blob, err := store.Load(ctx, cfg.Snapshot.Name)
	if err != nil {
		return err
	}
	copyWorld := engine.NewWorld(cfg.WorldOptions())
	defer copyWorld.Close()

	version, err := copyWorld.Deserialize(bytes.NewReader(blob), ecs.NewEntityMap(live.EntityCount()))
	if err != nil {
		return fmt.Errorf("reload snapshot: %w", err)
	}
	if copyWorld.EntityCount() != live.EntityCount() || copyWorld.HierarchySize() != live.HierarchySize() {
		return errors.New("reloaded snapshot does not match the live world")
	}
	log.Info("snapshot verified",
		zap.String("path", store.Path(cfg.Snapshot.Name)),
		zap.Uint32("version", uint32(version)),
		zap.Int("bytes", len(blob)),
		zap.Int("entities", copyWorld.EntityCount()))
	return nil
}

func entityName(w *ecs.World, e ecs.EntityRef) string {
	if !w.HasEntity(e) {
		return ""
	}
	return w.EntityName(e)
}

// newLogger builds a zap logger from config.
func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
