package desire

// MaxStrength is the saturation point for reinforcement.
const MaxStrength = 1.0

// epsilon absorbs float drift so repeated subtraction lands on the floor
// when the arithmetic says it should.
const epsilon = 1e-9

// Reinforce raises s by boost, saturating at MaxStrength. A positive boost
// strictly increases any s below MaxStrength.
func Reinforce(s, boost float64) float64 {
	next := s + boost
	if next > MaxStrength {
		return MaxStrength
	}
	return next
}

// Decay lowers s by one run's worth of rate, never going below floor.
// The boolean reports whether the floor was reached, which abandons the desire.
func Decay(s, rate, floor float64) (float64, bool) {
	next := s - rate
	if next <= floor+epsilon {
		return floor, true
	}
	return next, false
}

// Clamp pins s into [floor, MaxStrength].
func Clamp(s, floor float64) float64 {
	switch {
	case s < floor:
		return floor
	case s > MaxStrength:
		return MaxStrength
	}
	return s
}
