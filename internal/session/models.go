package session

import (
	"bytes"
	"encoding/json"
	"strconv"

	"habitat-server/internal/editor"
)

// Occupants accepts a JSON number or string and reads it the way a numeric
// form field is read. Missing, null or unusable values become 1.
type Occupants int

func (o *Occupants) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*o = 1
		return nil
	}

	raw := string(data)
	if data[0] == '"' {
		s, err := strconv.Unquote(raw)
		if err != nil {
			return err
		}
		raw = s
	}
	*o = Occupants(editor.ParseOccupants(raw))
	return nil
}

type AddModuleRequest struct {
	Type      string    `json:"type"`
	Shape     string    `json:"shape"`
	Occupants Occupants `json:"occupants"`
}

type PointRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p PointRequest) Vec() editor.Vec2 { return editor.Vec2{X: p.X, Y: p.Y} }

type PanRequest struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

type ZoomRequest struct {
	X         float64              `json:"x"`
	Y         float64              `json:"y"`
	Direction editor.ZoomDirection `json:"direction"`
}

type CreateResult struct {
	ID    string      `json:"id"`
	Token string      `json:"token"`
	View  editor.View `json:"view"`
}

type ModuleResult struct {
	Module editor.PlacedModule `json:"module"`
	View   editor.View         `json:"view"`
}

type RemoveResult struct {
	Removed *editor.PlacedModule `json:"removed"`
	View    editor.View          `json:"view"`
}

type ConnectionResult struct {
	Started bool        `json:"started"`
	View    editor.View `json:"view"`
}

type InputResult struct {
	Changed bool        `json:"changed"`
	View    editor.View `json:"view"`
}

type EffectivenessResult struct {
	Effectiveness int            `json:"effectiveness"`
	Balance       editor.Balance `json:"balance"`
}

// Message is the envelope for every websocket frame in both directions.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

const (
	MessageView       = "view"
	MessageError      = "error"
	MessageInput      = "input"
	MessageAddModule  = "add_module"
	MessageRemoveLast = "remove_last"
	MessageRefresh    = "refresh"
)

type ErrorPayload struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
