package editor

import (
	"strconv"
	"strings"
)

type PointerKind string

const (
	PointerDown        PointerKind = "down"
	PointerMove        PointerKind = "move"
	PointerUp          PointerKind = "up"
	PointerDoubleClick PointerKind = "dblclick"
	PointerWheel       PointerKind = "wheel"
	KeyDown            PointerKind = "key"
)

// Mouse buttons as reported by the DOM.
const (
	ButtonPrimary   = 0
	ButtonAuxiliary = 1
	ButtonSecondary = 2
)

// PointerEvent is a raw canvas input event in screen pixels.
type PointerEvent struct {
	Kind   PointerKind `json:"kind"`
	Button int         `json:"button"`
	X      float64     `json:"x"`
	Y      float64     `json:"y"`
	DeltaY float64     `json:"delta_y,omitempty"`
	Key    string      `json:"key,omitempty"`
}

func (ev PointerEvent) Screen() Vec2 { return Vec2{X: ev.X, Y: ev.Y} }

// Dispatch translates a canvas event into editor operations. It reports
// whether the event could have changed state.
func (e *SceneEditor) Dispatch(ev PointerEvent) bool {
	switch ev.Kind {
	case PointerDown:
		if ev.Button == ButtonAuxiliary || ev.Button == ButtonSecondary {
			e.BeginPan(ev.Screen())
			return true
		}
		e.SelectAt(e.ScreenToWorld(ev.Screen()))
		return true

	case PointerMove:
		switch e.gesture.kind {
		case GesturePan:
			e.PanTo(ev.Screen())
		case GestureDrag:
			e.DragTo(e.ScreenToWorld(ev.Screen()))
		case GestureConnection:
			e.UpdatePendingConnectionCursor(e.ScreenToWorld(ev.Screen()))
		default:
			return false
		}
		return true

	case PointerUp:
		before := e.gesture.kind
		e.EndDrag()
		return before != e.gesture.kind

	case PointerDoubleClick:
		return e.BeginConnection(e.ScreenToWorld(ev.Screen()))

	case PointerWheel:
		dir := ZoomOut
		if ev.DeltaY < 0 {
			dir = ZoomIn
		}
		e.Zoom(ev.Screen(), dir)
		return true

	case KeyDown:
		if ev.Key == "Escape" && e.gesture.kind != GestureNone {
			e.CancelGesture()
			return true
		}
	}
	return false
}

// ParseOccupants reads an occupant count the way a numeric form field is
// read: leading integer digits, anything unusable or non-positive is 1.
func ParseOccupants(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 1
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil || n < 1 {
		return 1
	}
	return n
}
