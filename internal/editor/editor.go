package editor

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"habitat-server/internal/catalog"
)

// ErrInvalidInput is returned when a module cannot be added because its type
// or shape is missing or unknown. State is left unchanged.
var ErrInvalidInput = errors.New("invalid input")

// Catalog is the read-only module catalog the editor instantiates from.
type Catalog interface {
	ModuleType(key string) (catalog.ModuleType, bool)
	HasShape(shape string) bool
	Sprite(typeKey, shape string) catalog.Sprite
}

type Option func(*SceneEditor)

func WithSettings(s Settings) Option {
	return func(e *SceneEditor) { e.settings = s.withDefaults() }
}

// WithRand sets the source used for module placement.
func WithRand(r *rand.Rand) Option {
	return func(e *SceneEditor) { e.rng = r }
}

type gesture struct {
	kind GestureKind

	// drag: offset between the grab point and the module's top-left corner
	grab Vec2
	// pan: last pointer position in screen pixels
	panLast Vec2
	// connection
	source ModuleID
	cursor *Vec2
}

// SceneEditor owns the layout of one editing session. It is not safe for
// concurrent use; callers serialize access.
type SceneEditor struct {
	catalog  Catalog
	settings Settings
	rng      *rand.Rand

	nextID      ModuleID
	modules     []PlacedModule
	connections []Connection
	camera      Camera
	selected    ModuleID
	gesture     gesture
}

func New(c Catalog, opts ...Option) *SceneEditor {
	e := &SceneEditor{
		catalog:  c,
		settings: DefaultSettings(),
		gesture:  gesture{kind: GestureNone},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		now := uint64(time.Now().UnixNano())
		e.rng = rand.New(rand.NewPCG(now, now>>1|1))
	}
	e.camera = Camera{Scale: e.settings.clampScale(e.settings.InitialScale)}
	return e
}

func (e *SceneEditor) Settings() Settings { return e.settings }

// AddModule places a new instance of typeKey. Occupant counts below one are
// treated as one.
func (e *SceneEditor) AddModule(typeKey, shape string, occupants int) (PlacedModule, error) {
	typeKey = strings.TrimSpace(typeKey)
	shape = strings.TrimSpace(shape)

	if typeKey == "" || shape == "" {
		return PlacedModule{}, fmt.Errorf("%w: module type and shape are required", ErrInvalidInput)
	}
	mt, ok := e.catalog.ModuleType(typeKey)
	if !ok {
		return PlacedModule{}, fmt.Errorf("%w: unknown module type %q", ErrInvalidInput, typeKey)
	}
	if !e.catalog.HasShape(shape) {
		return PlacedModule{}, fmt.Errorf("%w: unknown shape %q", ErrInvalidInput, shape)
	}
	if occupants < 1 {
		occupants = 1
	}

	k := ScaleFactor(occupants, mt.Capacity)
	side := e.settings.BaseModuleSize * (0.7 + 0.05*k)

	e.nextID++
	m := PlacedModule{
		ID:        e.nextID,
		Type:      mt.Key,
		Shape:     shape,
		Occupants: occupants,
		Bounds: Rect{
			X:      e.settings.PlacementOrigin + e.rng.Float64()*e.settings.PlacementSpan,
			Y:      e.settings.PlacementOrigin + e.rng.Float64()*e.settings.PlacementSpan,
			Width:  side,
			Height: side,
		},
		Rates: Resources{
			Oxygen: mt.Oxygen * k,
			Energy: mt.Energy * k,
			Water:  mt.Water * k,
			Food:   mt.Food * k,
		},
		Phase: mt.Phase,
	}
	e.modules = append(e.modules, m)
	return m, nil
}

// ScaleFactor is occupants relative to nominal capacity; a capacity of zero
// counts as one.
func ScaleFactor(occupants, capacity int) float64 {
	if capacity < 1 {
		capacity = 1
	}
	return float64(occupants) / float64(capacity)
}

// RemoveLast pops the most recently added module and prunes every connection
// that referenced it. It reports false when there was nothing to remove.
func (e *SceneEditor) RemoveLast() (PlacedModule, bool) {
	if len(e.modules) == 0 {
		return PlacedModule{}, false
	}
	removed := e.modules[len(e.modules)-1]
	e.modules = e.modules[:len(e.modules)-1]

	e.connections = slices.DeleteFunc(e.connections, func(c Connection) bool {
		return c.References(removed.ID)
	})

	if e.selected == removed.ID {
		e.selected = 0
		if e.gesture.kind == GestureDrag {
			e.gesture = gesture{kind: GestureNone}
		}
	}
	if e.gesture.kind == GestureConnection && e.gesture.source == removed.ID {
		e.gesture = gesture{kind: GestureNone}
	}
	return removed, true
}

// HitTest returns the earliest-added module containing p.
func (e *SceneEditor) HitTest(p Vec2) (PlacedModule, bool) {
	i := e.hitIndex(p)
	if i < 0 {
		return PlacedModule{}, false
	}
	return e.modules[i], true
}

func (e *SceneEditor) hitIndex(p Vec2) int {
	for i := range e.modules {
		if e.modules[i].Bounds.Contains(p) {
			return i
		}
	}
	return -1
}

func (e *SceneEditor) indexOf(id ModuleID) int {
	for i := range e.modules {
		if e.modules[i].ID == id {
			return i
		}
	}
	return -1
}

// SelectAt handles a primary press at a world point. While a connection is
// pending, a press on a different module completes it; a press on the source
// or on empty space changes nothing.
func (e *SceneEditor) SelectAt(p Vec2) {
	i := e.hitIndex(p)

	if e.gesture.kind == GestureConnection {
		if i >= 0 && e.modules[i].ID != e.gesture.source {
			e.connections = append(e.connections, Connection{A: e.gesture.source, B: e.modules[i].ID})
			e.gesture = gesture{kind: GestureNone}
		}
		return
	}

	if i < 0 {
		e.selected = 0
		if e.gesture.kind == GestureDrag {
			e.gesture = gesture{kind: GestureNone}
		}
		return
	}

	m := e.modules[i]
	e.selected = m.ID
	e.gesture = gesture{
		kind: GestureDrag,
		grab: p.Sub(Vec2{X: m.Bounds.X, Y: m.Bounds.Y}),
	}
}

// DragTo moves the selected module so the grab offset is preserved. It does
// nothing outside a drag.
func (e *SceneEditor) DragTo(p Vec2) {
	if e.gesture.kind != GestureDrag {
		return
	}
	i := e.indexOf(e.selected)
	if i < 0 {
		return
	}
	e.modules[i].Bounds.X = p.X - e.gesture.grab.X
	e.modules[i].Bounds.Y = p.Y - e.gesture.grab.Y
}

// EndDrag is the pointer-up transition: it ends a module drag or a camera pan.
// A pending connection is kept.
func (e *SceneEditor) EndDrag() {
	if e.gesture.kind == GestureDrag || e.gesture.kind == GesturePan {
		e.gesture = gesture{kind: GestureNone}
	}
}

func (e *SceneEditor) BeginConnection(p Vec2) bool {
	i := e.hitIndex(p)
	if i < 0 {
		return false
	}
	e.gesture = gesture{kind: GestureConnection, source: e.modules[i].ID}
	return true
}

func (e *SceneEditor) UpdatePendingConnectionCursor(p Vec2) {
	if e.gesture.kind != GestureConnection {
		return
	}
	cursor := p
	e.gesture.cursor = &cursor
}

// CancelGesture abandons whatever gesture is active.
func (e *SceneEditor) CancelGesture() {
	e.gesture = gesture{kind: GestureNone}
}

// Pan moves the camera by a screen-space delta; pan speed is inversely
// proportional to zoom. It ends any drag or pending connection and leaves
// no gesture active.
func (e *SceneEditor) Pan(delta Vec2) {
	e.gesture = gesture{kind: GestureNone}
	e.translate(delta)
}

func (e *SceneEditor) translate(delta Vec2) {
	e.camera.Offset = e.camera.Offset.Add(delta.Scale(1 / e.camera.Scale))
}

// BeginPan starts a pointer-anchored camera pan at a screen position.
func (e *SceneEditor) BeginPan(screen Vec2) {
	e.gesture = gesture{kind: GesturePan, panLast: screen}
}

// PanTo continues a pan started with BeginPan.
func (e *SceneEditor) PanTo(screen Vec2) {
	if e.gesture.kind != GesturePan {
		return
	}
	e.translate(screen.Sub(e.gesture.panLast))
	e.gesture.panLast = screen
}

// Zoom rescales the camera around a screen anchor so the world point under
// the anchor stays fixed.
func (e *SceneEditor) Zoom(anchor Vec2, dir ZoomDirection) {
	world := e.camera.ScreenToWorld(anchor)

	scale := e.camera.Scale
	switch dir {
	case ZoomIn:
		scale *= e.settings.ZoomFactor
	case ZoomOut:
		scale /= e.settings.ZoomFactor
	default:
		return
	}
	scale = e.settings.clampScale(scale)

	e.camera.Scale = scale
	e.camera.Offset = Vec2{X: world.X - anchor.X/scale, Y: world.Y - anchor.Y/scale}
}

func (e *SceneEditor) ScreenToWorld(p Vec2) Vec2 { return e.camera.ScreenToWorld(p) }
func (e *SceneEditor) WorldToScreen(p Vec2) Vec2 { return e.camera.WorldToScreen(p) }

func (e *SceneEditor) Modules() []PlacedModule {
	return slices.Clone(e.modules)
}

func (e *SceneEditor) Module(id ModuleID) (PlacedModule, bool) {
	i := e.indexOf(id)
	if i < 0 {
		return PlacedModule{}, false
	}
	return e.modules[i], true
}

func (e *SceneEditor) Connections() []Connection {
	return slices.Clone(e.connections)
}

func (e *SceneEditor) Camera() Camera { return e.camera }

func (e *SceneEditor) Selected() (ModuleID, bool) {
	return e.selected, e.selected != 0
}

func (e *SceneEditor) Gesture() GestureKind { return e.gesture.kind }

// PendingConnection reports the source of a connection being drawn and the
// last known cursor, which is nil until the pointer has moved.
func (e *SceneEditor) PendingConnection() (ModuleID, *Vec2, bool) {
	if e.gesture.kind != GestureConnection {
		return 0, nil, false
	}
	if e.gesture.cursor == nil {
		return e.gesture.source, nil, true
	}
	cursor := *e.gesture.cursor
	return e.gesture.source, &cursor, true
}
