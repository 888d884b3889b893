package logic

// Totals is a point-in-time copy of the accumulator state.
type Totals struct {
	DistanceMeters  float64
	EnergyKcal      float64
	DurationSeconds int
	WeightKg        float64
	Path            []Coordinate
}

// Accumulator holds the running totals of one tracking period.
// Not safe for concurrent use; the caller serializes access.
type Accumulator struct {
	distance float64
	energy   float64
	seconds  int
	weight   float64
	path     []Coordinate
	last     *Coordinate
}

// NewAccumulator creates an empty accumulator pricing energy at weightKg.
func NewAccumulator(weightKg float64) *Accumulator {
	return &Accumulator{weight: weightKg}
}

// Reset clears all running totals and the path, and adopts weightKg.
func (a *Accumulator) Reset(weightKg float64) {
	a.distance = 0
	a.energy = 0
	a.seconds = 0
	a.weight = weightKg
	a.path = nil
	a.last = nil
}

// AddSample appends c to the path. When a previous coordinate exists the
// segment length is added to the distance and energy is recomputed from the
// cumulative distance. Returns the segment length in meters.
func (a *Accumulator) AddSample(c Coordinate) float64 {
	var segment float64
	if a.last != nil {
		segment = Distance(*a.last, c)
		if segment > 0 {
			a.distance += segment
		}
		a.energy = Calories(a.distance, a.weight)
	}
	a.path = append(a.path, c)
	last := c
	a.last = &last
	return segment
}

// Tick advances the elapsed time by one second.
func (a *Accumulator) Tick() {
	a.seconds++
}

// SetWeight changes the weight and re-prices the whole cumulative distance.
func (a *Accumulator) SetWeight(weightKg float64) {
	a.weight = weightKg
	a.energy = Calories(a.distance, a.weight)
}

// Weight returns the weight currently used for energy.
func (a *Accumulator) Weight() float64 {
	return a.weight
}

// Distance returns the cumulative distance in meters.
func (a *Accumulator) Distance() float64 {
	return a.distance
}

// Totals returns a copy of the running state. The path is copied.
func (a *Accumulator) Totals() Totals {
	path := make([]Coordinate, len(a.path))
	copy(path, a.path)
	return Totals{
		DistanceMeters:  a.distance,
		EnergyKcal:      a.energy,
		DurationSeconds: a.seconds,
		WeightKg:        a.weight,
		Path:            path,
	}
}
