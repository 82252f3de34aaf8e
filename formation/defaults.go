package formation

// DefaultLineup is the standard rugby union XV laid out on a half-field:
// front row at the bottom, fullback deepest. Hosts start from this layout
// before saving their own.
func DefaultLineup() *Formation {
	return &Formation{
		Name: "Default XV",
		Positions: map[int]Position{
			1:  {X: 0.35, Y: 0.85},
			2:  {X: 0.5, Y: 0.85},
			3:  {X: 0.65, Y: 0.85},
			4:  {X: 0.42, Y: 0.7},
			5:  {X: 0.58, Y: 0.7},
			6:  {X: 0.3, Y: 0.58},
			7:  {X: 0.7, Y: 0.58},
			8:  {X: 0.5, Y: 0.58},
			9:  {X: 0.46, Y: 0.45},
			10: {X: 0.54, Y: 0.45},
			11: {X: 0.2, Y: 0.25},
			12: {X: 0.4, Y: 0.35},
			13: {X: 0.6, Y: 0.35},
			14: {X: 0.8, Y: 0.25},
			15: {X: 0.5, Y: 0.15},
		},
	}
}
