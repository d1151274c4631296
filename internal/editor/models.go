package editor

import "habitat-server/internal/catalog"

type ModuleID int64

type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (v Vec2) Add(o Vec2) Vec2 { return Vec2{X: v.X + o.X, Y: v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{X: v.X - o.X, Y: v.Y - o.Y} }
func (v Vec2) Scale(f float64) Vec2 {
	return Vec2{X: v.X * f, Y: v.Y * f}
}

// Rect is anchored at its top-left corner.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Contains uses half-open bounds [x, x+w) × [y, y+h).
func (r Rect) Contains(p Vec2) bool {
	return p.X >= r.X && p.X < r.X+r.Width && p.Y >= r.Y && p.Y < r.Y+r.Height
}

func (r Rect) Center() Vec2 {
	return Vec2{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

type Resources struct {
	Oxygen float64 `json:"o2"`
	Energy float64 `json:"energy"`
	Water  float64 `json:"water"`
	Food   float64 `json:"food"`
}

func (r Resources) Add(o Resources) Resources {
	return Resources{
		Oxygen: r.Oxygen + o.Oxygen,
		Energy: r.Energy + o.Energy,
		Water:  r.Water + o.Water,
		Food:   r.Food + o.Food,
	}
}

type PlacedModule struct {
	ID        ModuleID      `json:"id"`
	Type      string        `json:"type"`
	Shape     string        `json:"shape"`
	Occupants int           `json:"occupants"`
	Bounds    Rect          `json:"bounds"`
	Rates     Resources     `json:"rates"`
	Phase     catalog.Phase `json:"phase"`
}

// Connection is undirected; A is the module the gesture started from.
type Connection struct {
	A ModuleID `json:"a"`
	B ModuleID `json:"b"`
}

func (c Connection) References(id ModuleID) bool {
	return c.A == id || c.B == id
}

type Camera struct {
	Scale  float64 `json:"scale"`
	Offset Vec2    `json:"offset"`
}

func (c Camera) ScreenToWorld(p Vec2) Vec2 {
	return Vec2{X: p.X/c.Scale + c.Offset.X, Y: p.Y/c.Scale + c.Offset.Y}
}

func (c Camera) WorldToScreen(p Vec2) Vec2 {
	return Vec2{X: (p.X - c.Offset.X) * c.Scale, Y: (p.Y - c.Offset.Y) * c.Scale}
}

type ZoomDirection string

const (
	ZoomIn  ZoomDirection = "in"
	ZoomOut ZoomDirection = "out"
)

type GestureKind string

const (
	GestureNone       GestureKind = "none"
	GestureDrag       GestureKind = "drag"
	GesturePan        GestureKind = "pan"
	GestureConnection GestureKind = "connection"
)
