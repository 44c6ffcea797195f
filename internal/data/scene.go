package data

import (
	"fmt"
	"os"

	"github.com/blackforge/engine/internal/core/ecs"
	"github.com/blackforge/engine/internal/core/geom"
	"github.com/blackforge/engine/internal/module/nav"
	"github.com/blackforge/engine/internal/module/render"
	"github.com/blackforge/engine/internal/module/script"
	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Scene is a hand-authored world description loaded from scene.yaml.
type Scene struct {
	Name     string       `yaml:"name"`
	Entities []EntityDesc `yaml:"entities"`
}

// EntityDesc describes one entity. Transforms are relative to Parent when set.
// Rotation is Euler angles in degrees, applied X then Y then Z.
type EntityDesc struct {
	Name      string      `yaml:"name"`
	Parent    string      `yaml:"parent"`
	Partition string      `yaml:"partition"`
	Position  []float64   `yaml:"position"`
	Rotation  []float64   `yaml:"rotation"`
	Scale     []float64   `yaml:"scale"`
	Model     string      `yaml:"model"`
	Hidden    bool        `yaml:"hidden"`
	Camera    *CameraDesc `yaml:"camera"`
	Agent     *AgentDesc  `yaml:"agent"`
	Script    string      `yaml:"script"`
}

type CameraDesc struct {
	FOV    float32 `yaml:"fov"`
	Near   float32 `yaml:"near"`
	Far    float32 `yaml:"far"`
	LookAt string  `yaml:"look_at"`
}

type AgentDesc struct {
	Radius      float64   `yaml:"radius"`
	Height      float64   `yaml:"height"`
	Speed       float64   `yaml:"speed"`
	Follow      string    `yaml:"follow"`
	Destination []float64 `yaml:"destination"`
}

// LoadScene loads a scene file.
func LoadScene(path string) (*Scene, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene: %w", err)
	}
	return ParseScene(raw)
}

// ParseScene parses and checks a scene document.
func ParseScene(raw []byte) (*Scene, error) {
	var s Scene
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parse scene: %w", err)
	}
	seen := make(map[string]bool, len(s.Entities))
	for i, d := range s.Entities {
		if d.Name == "" {
			return nil, fmt.Errorf("scene entity %d has no name", i)
		}
		if seen[d.Name] {
			return nil, fmt.Errorf("scene entity %q defined twice", d.Name)
		}
		seen[d.Name] = true
		for field, v := range map[string][]float64{"position": d.Position, "rotation": d.Rotation, "scale": d.Scale} {
			if v != nil && len(v) != 3 {
				return nil, fmt.Errorf("scene entity %q: %s needs 3 values, got %d", d.Name, field, len(v))
			}
		}
	}
	for _, d := range s.Entities {
		for _, ref := range d.refs() {
			if !seen[ref] {
				return nil, fmt.Errorf("scene entity %q refers to unknown entity %q", d.Name, ref)
			}
		}
	}
	return &s, nil
}

func (d *EntityDesc) refs() []string {
	var out []string
	if d.Parent != "" {
		out = append(out, d.Parent)
	}
	if d.Camera != nil && d.Camera.LookAt != "" {
		out = append(out, d.Camera.LookAt)
	}
	if d.Agent != nil && d.Agent.Follow != "" {
		out = append(out, d.Agent.Follow)
	}
	return out
}

func (d *EntityDesc) transform() geom.Transform {
	t := geom.Identity
	if d.Position != nil {
		t.Pos = vec3(d.Position)
	}
	if d.Rotation != nil {
		t.Rot = geom.EulerDegrees(d.Rotation[0], d.Rotation[1], d.Rotation[2])
	}
	if d.Scale != nil {
		t.Scale = vec3(d.Scale)
	}
	return t
}

func vec3(v []float64) mgl64.Vec3 {
	return mgl64.Vec3{v[0], v[1], v[2]}
}

// Instantiate creates the scene's entities in w and returns them by name. Components
// need the matching plugin installed in w's engine.
func (s *Scene) Instantiate(w *ecs.World, log *zap.Logger) (map[string]ecs.EntityRef, error) {
	byName := make(map[string]ecs.EntityRef, len(s.Entities))
	for _, d := range s.Entities {
		e := w.CreateEntity(mgl64.Vec3{}, mgl64.QuatIdent())
		w.SetEntityName(e, d.Name)
		byName[d.Name] = e
		if d.Partition != "" {
			h, ok := w.FindPartition(d.Partition)
			if !ok {
				h = w.CreatePartition(d.Partition)
			}
			w.SetEntityPartition(e, h)
		}
	}

	for _, d := range s.Entities {
		if d.Parent == "" {
			continue
		}
		if err := w.SetParent(byName[d.Parent].Ptr(), byName[d.Name]); err != nil {
			return byName, fmt.Errorf("scene entity %q: %w", d.Name, err)
		}
	}
	// locals are kept exactly when an ancestor moves later, so order does not matter
	for _, d := range s.Entities {
		w.SetLocalTransform(byName[d.Name], d.transform())
	}

	for _, d := range s.Entities {
		if err := attachComponents(w, &d, byName); err != nil {
			return byName, fmt.Errorf("scene entity %q: %w", d.Name, err)
		}
	}
	log.Info("scene instantiated",
		zap.String("scene", s.Name),
		zap.Int("entities", len(byName)),
		zap.Int("hierarchy_nodes", w.HierarchySize()))
	return byName, nil
}

func attachComponents(w *ecs.World, d *EntityDesc, byName map[string]ecs.EntityRef) error {
	e := byName[d.Name]
	if d.Model != "" || d.Camera != nil {
		r := render.From(w)
		if r == nil {
			return fmt.Errorf("render module not installed")
		}
		if d.Model != "" {
			r.AddModel(e, d.Model).Visible = !d.Hidden
		}
		if d.Camera != nil {
			c := r.AddCamera(e)
			if d.Camera.FOV > 0 {
				c.FOV = d.Camera.FOV
			}
			if d.Camera.Near > 0 {
				c.Near = d.Camera.Near
			}
			if d.Camera.Far > 0 {
				c.Far = d.Camera.Far
			}
			if d.Camera.LookAt != "" {
				c.LookAt = byName[d.Camera.LookAt].Ptr()
			}
		}
	}

	if d.Agent != nil {
		n := nav.From(w)
		if n == nil {
			return fmt.Errorf("nav module not installed")
		}
		a := n.AddAgent(e)
		if d.Agent.Radius > 0 {
			a.Radius = d.Agent.Radius
		}
		if d.Agent.Height > 0 {
			a.Height = d.Agent.Height
		}
		if d.Agent.Speed > 0 {
			a.Speed = d.Agent.Speed
		}
		switch {
		case d.Agent.Follow != "":
			if err := n.FollowEntity(e, byName[d.Agent.Follow]); err != nil {
				return err
			}
		case len(d.Agent.Destination) == 3:
			if err := n.MoveTo(e, vec3(d.Agent.Destination)); err != nil {
				return err
			}
		}
	}

	if d.Script != "" {
		sm := script.From(w)
		if sm == nil {
			return fmt.Errorf("script module not installed")
		}
		if err := sm.Attach(e, d.Script); err != nil {
			return err
		}
	}
	return nil
}
