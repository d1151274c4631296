package editor

import "testing"

func TestDispatch_MirrorsCanvasBindings(t *testing.T) {
	e := newTestEditor(t)
	a := mustAdd(t, e, "vivienda", "box", 4)
	b := mustAdd(t, e, "energia", "cylinder", 1)
	place(e, 0, 0, 0)
	place(e, 1, 2000, 0)
	e.camera = Camera{Scale: 0.5}

	// Left press on module a (screen 50,50 -> world 100,100) starts a drag.
	e.Dispatch(PointerEvent{Kind: PointerDown, Button: ButtonPrimary, X: 50, Y: 50})
	if e.Gesture() != GestureDrag {
		t.Fatalf("gesture = %s, want drag", e.Gesture())
	}
	e.Dispatch(PointerEvent{Kind: PointerMove, X: 60, Y: 50})
	if got, _ := e.Module(a.ID); got.Bounds.X != 20 {
		t.Errorf("drag moved module to x=%v, want 20", got.Bounds.X)
	}
	if !e.Dispatch(PointerEvent{Kind: PointerUp}) {
		t.Error("pointer-up after a drag should report a change")
	}

	// Double-click on b starts a connection, move updates the guide, a left
	// press on a completes it.
	e.Dispatch(PointerEvent{Kind: PointerDoubleClick, X: 1010, Y: 10})
	if src, _, ok := e.PendingConnection(); !ok || src != b.ID {
		t.Fatalf("pending = %d, %v; want source %d", src, ok, b.ID)
	}
	e.Dispatch(PointerEvent{Kind: PointerMove, X: 100, Y: 100})
	if _, cursor, _ := e.PendingConnection(); cursor == nil || cursor.X != 200 {
		t.Errorf("cursor = %v, want world (200, 200)", cursor)
	}
	e.Dispatch(PointerEvent{Kind: PointerDown, Button: ButtonPrimary, X: 50, Y: 50})
	if conns := e.Connections(); len(conns) != 1 || conns[0].A != b.ID || conns[0].B != a.ID {
		t.Fatalf("connections = %+v", conns)
	}

	// Middle and right buttons pan.
	for _, button := range []int{ButtonAuxiliary, ButtonSecondary} {
		e.camera = Camera{Scale: 0.5}
		e.Dispatch(PointerEvent{Kind: PointerDown, Button: button, X: 10, Y: 10})
		e.Dispatch(PointerEvent{Kind: PointerMove, X: 20, Y: 15})
		e.Dispatch(PointerEvent{Kind: PointerUp})
		if off := e.Camera().Offset; off.X != 20 || off.Y != 10 {
			t.Errorf("button %d: offset = %+v, want (20, 10)", button, off)
		}
	}

	// Wheel up zooms in, wheel down zooms out.
	e.camera = Camera{Scale: 1}
	e.Dispatch(PointerEvent{Kind: PointerWheel, X: 100, Y: 100, DeltaY: -120})
	if s := e.Camera().Scale; !almostEqual(s, 1.1) {
		t.Errorf("scale after wheel up = %v, want 1.1", s)
	}
	e.Dispatch(PointerEvent{Kind: PointerWheel, X: 100, Y: 100, DeltaY: 120})
	if s := e.Camera().Scale; !almostEqual(s, 1) {
		t.Errorf("scale after wheel down = %v, want 1", s)
	}
}

func TestDispatch_IdleMoveAndEscape(t *testing.T) {
	e := newTestEditor(t)
	mustAdd(t, e, "vivienda", "box", 4)
	place(e, 0, 0, 0)

	if e.Dispatch(PointerEvent{Kind: PointerMove, X: 1, Y: 1}) {
		t.Error("move with no gesture should not report a change")
	}
	if e.Dispatch(PointerEvent{Kind: KeyDown, Key: "Escape"}) {
		t.Error("escape with no gesture should not report a change")
	}

	e.Dispatch(PointerEvent{Kind: PointerDoubleClick, X: 1, Y: 1})
	if !e.Dispatch(PointerEvent{Kind: KeyDown, Key: "Escape"}) {
		t.Error("escape should cancel the pending connection")
	}
	if e.Gesture() != GestureNone {
		t.Errorf("gesture = %s, want none", e.Gesture())
	}
}

func TestParseOccupants(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"4", 4},
		{" 12 ", 12},
		{"3.7", 3},
		{"7 people", 7},
		{"+2", 2},
		{"0", 1},
		{"-3", 1},
		{"", 1},
		{"abc", 1},
		{"-", 1},
		{"99999999999999999999999", 1},
	}

	for _, tt := range tests {
		if got := ParseOccupants(tt.in); got != tt.want {
			t.Errorf("ParseOccupants(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
