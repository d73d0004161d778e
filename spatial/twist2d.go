package spatial

import "math"

// Twist2d is a body-frame planar velocity: linear (Vx, Vy) in meters/second
// and angular Omega in radians/second.
type Twist2d struct {
	Vx, Vy, Omega float64
}

// Speed returns the magnitude of the linear velocity component.
func (t Twist2d) Speed() float64 {
	return math.Hypot(t.Vx, t.Vy)
}
