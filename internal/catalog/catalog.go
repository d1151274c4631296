package catalog

import (
	"fmt"
	"strings"

	"habitat-server/internal/shared/errors"
)

const (
	DefaultSpritePattern = "img/{type}_{shape}.png"
	DefaultFallbackColor = "#ccc"
)

// Catalog is immutable once built and safe for concurrent reads.
type Catalog struct {
	types    []ModuleType
	index    map[string]int
	shapes   []Shape
	shapeSet map[string]struct{}
	sprites  map[SpriteKey]Sprite
	fallback Sprite
}

func New(types []ModuleType, shapes []Shape, sprites SpriteConfig) (*Catalog, error) {
	if len(types) == 0 {
		return nil, errors.Validation("catalog has no module types")
	}
	if len(shapes) == 0 {
		return nil, errors.Validation("catalog has no shapes")
	}

	c := &Catalog{
		types:    make([]ModuleType, 0, len(types)),
		index:    make(map[string]int, len(types)),
		shapes:   make([]Shape, 0, len(shapes)),
		shapeSet: make(map[string]struct{}, len(shapes)),
	}

	for _, t := range types {
		if t.Key == "" {
			return nil, errors.Validation("module type key is required")
		}
		if _, dup := c.index[t.Key]; dup {
			return nil, errors.Validationf("duplicate module type %q", t.Key)
		}
		if !t.Phase.Valid() {
			return nil, errors.Validationf("module type %q has invalid phase %d", t.Key, t.Phase)
		}
		if t.Capacity < 0 {
			return nil, errors.Validationf("module type %q has negative capacity", t.Key)
		}
		if t.Name == "" {
			t.Name = t.Key
		}
		c.index[t.Key] = len(c.types)
		c.types = append(c.types, t)
	}

	for _, s := range shapes {
		if s.Key == "" {
			return nil, errors.Validation("shape key is required")
		}
		if _, dup := c.shapeSet[s.Key]; dup {
			return nil, errors.Validationf("duplicate shape %q", s.Key)
		}
		if s.Name == "" {
			s.Name = s.Key
		}
		c.shapeSet[s.Key] = struct{}{}
		c.shapes = append(c.shapes, s)
	}

	c.buildSprites(sprites)
	return c, nil
}

func (c *Catalog) buildSprites(cfg SpriteConfig) {
	pattern := cfg.PathPattern
	if pattern == "" {
		pattern = DefaultSpritePattern
	}
	color := cfg.FallbackColor
	if color == "" {
		color = DefaultFallbackColor
	}
	c.fallback = Sprite{Color: color, Fallback: true}

	missing := make(map[string]struct{}, len(cfg.Missing))
	for _, k := range cfg.Missing {
		missing[k] = struct{}{}
	}

	c.sprites = make(map[SpriteKey]Sprite, len(c.types)*len(c.shapes))
	for _, t := range c.types {
		for _, s := range c.shapes {
			name := SpriteName(t.Key, s.Key)
			if _, skip := missing[name]; skip {
				continue
			}
			path, ok := cfg.Overrides[name]
			if !ok {
				file := s.Key
				if alias, ok := cfg.ShapeFiles[s.Key]; ok {
					file = alias
				}
				path = strings.NewReplacer("{type}", t.Key, "{shape}", file).Replace(pattern)
			}
			c.sprites[SpriteKey{Type: t.Key, Shape: s.Key}] = Sprite{Path: path}
		}
	}
}

// SpriteName is the composite "<type>_<shape>" key used by sprite overrides.
func SpriteName(typeKey, shape string) string {
	return fmt.Sprintf("%s_%s", typeKey, shape)
}

func (c *Catalog) ModuleType(key string) (ModuleType, bool) {
	i, ok := c.index[key]
	if !ok {
		return ModuleType{}, false
	}
	return c.types[i], true
}

func (c *Catalog) HasShape(shape string) bool {
	_, ok := c.shapeSet[shape]
	return ok
}

// Sprite resolves the renderable resource for a (type, shape) pair, or the
// fallback flat-colored rectangle when none is registered.
func (c *Catalog) Sprite(typeKey, shape string) Sprite {
	if s, ok := c.sprites[SpriteKey{Type: typeKey, Shape: shape}]; ok {
		return s
	}
	return c.fallback
}

func (c *Catalog) Types() []ModuleType {
	out := make([]ModuleType, len(c.types))
	copy(out, c.types)
	return out
}

func (c *Catalog) Shapes() []Shape {
	out := make([]Shape, len(c.shapes))
	copy(out, c.shapes)
	return out
}
