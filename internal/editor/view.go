package editor

import (
	"fmt"
	"math"

	"habitat-server/internal/catalog"
)

// Route is a polyline in world coordinates.
type Route []Vec2

type ModuleView struct {
	PlacedModule
	Sprite   catalog.Sprite `json:"sprite"`
	Selected bool           `json:"selected"`
}

type ConnectionView struct {
	Connection
	Route Route `json:"route"`
}

// View is the read-only render model of a session: everything a canvas
// needs to draw one frame and refresh its side panel.
type View struct {
	Modules       []ModuleView     `json:"modules"`
	Connections   []ConnectionView `json:"connections"`
	Guide         Route            `json:"guide,omitempty"`
	Camera        Camera           `json:"camera"`
	Gesture       GestureKind      `json:"gesture"`
	Selected      *ModuleID        `json:"selected,omitempty"`
	PendingSource *ModuleID        `json:"pending_source,omitempty"`
	Balance       Balance          `json:"balance"`
	Effectiveness int              `json:"effectiveness"`
	Listing       []string         `json:"listing"`
}

// ElbowRoute joins two points with one orthogonal bend, taken along whichever
// axis separates them more.
func ElbowRoute(a, b Vec2) Route {
	elbow := Vec2{X: a.X, Y: b.Y}
	if math.Abs(a.X-b.X) > math.Abs(a.Y-b.Y) {
		elbow = Vec2{X: b.X, Y: a.Y}
	}
	return Route{a, elbow, b}
}

func ListingLine(m PlacedModule) string {
	return fmt.Sprintf("%s (%s) Phase %d | %d", m.Type, m.Shape, m.Phase, m.Occupants)
}

// View builds the render model. It never mutates the editor.
func (e *SceneEditor) View() View {
	v := View{
		Modules:     make([]ModuleView, 0, len(e.modules)),
		Connections: make([]ConnectionView, 0, len(e.connections)),
		Listing:     make([]string, 0, len(e.modules)),
		Camera:      e.camera,
		Gesture:     e.gesture.kind,
		Balance:     e.Balance(),
	}
	v.Effectiveness = v.Balance.Percent

	for _, m := range e.modules {
		v.Modules = append(v.Modules, ModuleView{
			PlacedModule: m,
			Sprite:       e.catalog.Sprite(m.Type, m.Shape),
			Selected:     m.ID == e.selected,
		})
		v.Listing = append(v.Listing, ListingLine(m))
	}

	for _, c := range e.connections {
		a, okA := e.Module(c.A)
		b, okB := e.Module(c.B)
		if !okA || !okB {
			continue
		}
		v.Connections = append(v.Connections, ConnectionView{
			Connection: c,
			Route:      ElbowRoute(a.Bounds.Center(), b.Bounds.Center()),
		})
	}

	if id, ok := e.Selected(); ok {
		v.Selected = &id
	}

	if source, cursor, ok := e.PendingConnection(); ok {
		v.PendingSource = &source
		if src, found := e.Module(source); found && cursor != nil {
			v.Guide = ElbowRoute(src.Bounds.Center(), *cursor)
		}
	}

	return v
}
