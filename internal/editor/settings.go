package editor

// Settings holds the tuning constants of an editor session. Distances are in
// world units unless stated otherwise.
type Settings struct {
	InitialScale float64
	MinScale     float64
	MaxScale     float64
	ZoomFactor   float64

	// New modules land at PlacementOrigin + U[0, PlacementSpan) on each axis.
	PlacementOrigin float64
	PlacementSpan   float64
	BaseModuleSize  float64

	// Energy drawn per connection when scoring effectiveness.
	ConnectionUpkeep float64
}

func DefaultSettings() Settings {
	return Settings{
		InitialScale:     0.2,
		MinScale:         0.05,
		MaxScale:         2.0,
		ZoomFactor:       1.1,
		PlacementOrigin:  2000,
		PlacementSpan:    2000,
		BaseModuleSize:   1000,
		ConnectionUpkeep: 0.5,
	}
}

// withDefaults fills zero fields so a partially configured Settings stays usable.
func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s.InitialScale <= 0 {
		s.InitialScale = d.InitialScale
	}
	if s.MinScale <= 0 {
		s.MinScale = d.MinScale
	}
	if s.MaxScale <= 0 || s.MaxScale < s.MinScale {
		s.MaxScale = d.MaxScale
	}
	if s.ZoomFactor <= 1 {
		s.ZoomFactor = d.ZoomFactor
	}
	if s.PlacementSpan < 0 {
		s.PlacementSpan = d.PlacementSpan
	}
	if s.BaseModuleSize <= 0 {
		s.BaseModuleSize = d.BaseModuleSize
	}
	if s.ConnectionUpkeep < 0 {
		s.ConnectionUpkeep = d.ConnectionUpkeep
	}
	return s
}

func (s Settings) clampScale(scale float64) float64 {
	if scale < s.MinScale {
		return s.MinScale
	}
	if scale > s.MaxScale {
		return s.MaxScale
	}
	return scale
}
