// Profiling:
// go build ./cmd/worldbench
// ./worldbench -mode cpu
// go tool pprof -http=":8000" ./worldbench cpu.pprof

package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/blackforge/engine/internal/core/ecs"
	"github.com/blackforge/engine/internal/module/render"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/profile"
	"go.uber.org/zap"
)

func main() {
	mode := flag.String("mode", "cpu", "profile: cpu, mem or none")
	rounds := flag.Int("rounds", 20, "worlds to build")
	roots := flag.Int("roots", 200, "root entities per world")
	depth := flag.Int("depth", 4, "children chained under each root")
	moves := flag.Int("moves", 200, "root moves per round")
	flag.Parse()

	var p interface{ Stop() }
	switch *mode {
	case "cpu":
		p = profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook)
	case "mem":
		p = profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook)
	case "none":
	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q\n", *mode)
		os.Exit(2)
	}

	start := time.Now()
	bytesOut := run(*rounds, *roots, *depth, *moves)
	if p != nil {
		p.Stop()
	}
	fmt.Printf("%d rounds in %s, last snapshot %d bytes\n", *rounds, time.Since(start), bytesOut)
}

// run builds chained hierarchies, drags every root around so the whole subtree is
// recomputed, then serializes and reloads the world.
func run(rounds, roots, depth, moves int) int {
	engine := ecs.NewEngine(zap.NewNop())
	engine.RegisterPlugin(render.NewPlugin(zap.NewNop()))
	defer engine.Shutdown()

	size := 0
	for range rounds {
		w := engine.NewWorld(ecs.Options{ReservedEntities: roots * (depth + 1), DestroyPolicy: ecs.DestroyCascade})
		r := render.From(w)

		heads := make([]ecs.EntityRef, 0, roots)
		for i := range roots {
			head := w.CreateEntity(mgl64.Vec3{float64(i), 0, 0}, mgl64.QuatIdent())
			heads = append(heads, head)
			parent := head
			for range depth {
				c := w.CreateEntity(mgl64.Vec3{float64(i), 1, 0}, mgl64.QuatIdent())
				if err := w.SetParent(parent.Ptr(), c); err != nil {
					panic(err)
				}
				r.AddModel(c, "bench.mesh")
				parent = c
			}
		}

		rot := mgl64.QuatRotate(0.01, mgl64.Vec3{0, 1, 0})
		for i := range moves {
			for _, h := range heads {
				w.SetPosition(h, w.Position(h).Add(mgl64.Vec3{0, 0, 0.1}))
				w.SetRotation(h, rot.Mul(w.Rotation(h)))
			}
			if i%50 == 0 {
				r.DrawList(mgl64.Vec3{})
				r.TakeMoved()
			}
		}

		var buf bytes.Buffer
		if err := w.Serialize(&buf, ecs.SerializeNone); err != nil {
			panic(err)
		}
		size = buf.Len()

		copyWorld := engine.NewWorld(ecs.DefaultOptions())
		if _, err := copyWorld.Deserialize(bytes.NewReader(buf.Bytes()), ecs.NewEntityMap(w.EntityCount())); err != nil {
			panic(err)
		}
		copyWorld.Close()

		for _, h := range heads {
			w.DestroyEntity(h)
		}
		w.Close()
	}
	return size
}
