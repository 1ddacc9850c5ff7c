package stats

// TimeWeighted integrates a piecewise-constant level over time.
// Buffers and belts feed it on every occupancy change, so the average is
// exact rather than sampled.
type TimeWeighted struct {
	start float64
	last  float64
	level float64
	area  float64
	max   float64
}

// NewTimeWeighted starts integrating at now with level 0.
func NewTimeWeighted(now float64) *TimeWeighted {
	return &TimeWeighted{start: now, last: now}
}

// Update records that the level changed to v at now.
func (tw *TimeWeighted) Update(now, v float64) {
	if now > tw.last {
		tw.area += tw.level * (now - tw.last)
		tw.last = now
	}
	tw.level = v
	if v > tw.max {
		tw.max = v
	}
}

// Level returns the current level.
func (tw *TimeWeighted) Level() float64 { return tw.level }

// Max returns the highest level seen.
func (tw *TimeWeighted) Max() float64 { return tw.max }

// Mean returns the time-weighted average level over [start, now].
func (tw *TimeWeighted) Mean(now float64) float64 {
	elapsed := now - tw.start
	if elapsed <= 0 {
		return tw.level
	}
	area := tw.area
	if now > tw.last {
		area += tw.level * (now - tw.last)
	}
	return area / elapsed
}
