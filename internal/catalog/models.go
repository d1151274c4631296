package catalog

type Phase int

const (
	PhaseEssential Phase = 1
	PhaseOptional  Phase = 2
	PhaseExtra     Phase = 3
)

func (p Phase) Valid() bool {
	return p >= PhaseEssential && p <= PhaseExtra
}

func (p Phase) String() string {
	switch p {
	case PhaseEssential:
		return "essential"
	case PhaseOptional:
		return "optional"
	case PhaseExtra:
		return "extra"
	default:
		return "unknown"
	}
}

// ModuleType rates are expressed per nominal capacity; a capacity of zero
// means the module type is not sized by occupants.
type ModuleType struct {
	Key      string  `json:"key" yaml:"key"`
	Name     string  `json:"name" yaml:"name"`
	Phase    Phase   `json:"phase" yaml:"phase"`
	Oxygen   float64 `json:"o2" yaml:"o2"`
	Energy   float64 `json:"energy" yaml:"energy"`
	Water    float64 `json:"water" yaml:"water"`
	Food     float64 `json:"food" yaml:"food"`
	Capacity int     `json:"capacity" yaml:"capacity"`
}

type Shape struct {
	Key  string `json:"key" yaml:"key"`
	Name string `json:"name" yaml:"name"`
}

type SpriteKey struct {
	Type  string
	Shape string
}

type Sprite struct {
	Path     string `json:"path,omitempty"`
	Color    string `json:"color,omitempty"`
	Fallback bool   `json:"fallback"`
}

// SpriteConfig resolves sprite paths. ShapeFiles renames a shape key for the
// {shape} placeholder only; Overrides and Missing use SpriteName keys.
type SpriteConfig struct {
	PathPattern   string            `json:"path_pattern" yaml:"path_pattern"`
	FallbackColor string            `json:"fallback_color" yaml:"fallback_color"`
	ShapeFiles    map[string]string `json:"shape_files,omitempty" yaml:"shape_files"`
	Overrides     map[string]string `json:"overrides,omitempty" yaml:"overrides"`
	Missing       []string          `json:"missing,omitempty" yaml:"missing"`
}

// Document mirrors the catalog YAML file.
type Document struct {
	ModuleTypes []ModuleType `yaml:"module_types"`
	Shapes      []Shape      `yaml:"shapes"`
	Sprites     SpriteConfig `yaml:"sprites"`
}
