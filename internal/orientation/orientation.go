// Package orientation converts raw orientation samples into the scalar head angles
// used by the gesture classifiers.
package orientation

import (
	"fmt"
	"math"
)

// Extractor kinds accepted by NewExtractor.
const (
	KindGravity = "gravity"
	KindHeading = "heading"
)

// DefaultArmDisplacementDegrees is the heading offset of the device arm relative to the
// wearer's line of sight.
const DefaultArmDisplacementDegrees = 6.0

// Vector is a single three-component sample delivered by the sensor subsystem.
// Its meaning depends on the Extractor: gravity components for GravityExtractor,
// fused (azimuth, pitch, roll) radians for HeadingExtractor.
type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Angles holds the per-axis angles extracted from one Vector, in degrees.
type Angles struct {
	Nod   float64 `json:"nod"`
	Shake float64 `json:"shake"`
}

// Extractor turns a Vector into per-axis angles. Implementations are pure and never
// return NaN or infinite angles.
type Extractor interface {
	Extract(v Vector) Angles
}

// GravityExtractor derives tilt angles from a gravity vector.
//
// The nod angle isolates Z against the X/Y plane, the shake angle isolates X against
// the Y/Z plane.
type GravityExtractor struct{}

// Extract implements Extractor.
func (GravityExtractor) Extract(v Vector) Angles {
	if !finite(v) {
		return Angles{}
	}
	return Angles{
		Nod:   isolate(v.Z, v.X, v.Y),
		Shake: isolate(v.X, v.Y, v.Z),
	}
}

// isolate returns -atan(k / sqrt(i² + j²)) in degrees, or 0 when the denominator is zero.
func isolate(k, i, j float64) float64 {
	d := math.Hypot(i, j)
	if d == 0 {
		return 0
	}
	a := -math.Atan(k/d) * 180 / math.Pi
	if a == 0 {
		// avoid -0 leaking into logs and JSON
		return 0
	}
	return a
}

// HeadingExtractor reads an already fused orientation, X=azimuth, Y=pitch, Z=roll in
// radians. The shake angle is the heading corrected by the arm displacement and wrapped
// into [-180, 180).
type HeadingExtractor struct {
	ArmDisplacementDegrees float64
}

// Extract implements Extractor.
func (h HeadingExtractor) Extract(v Vector) Angles {
	if !finite(v) {
		return Angles{}
	}
	heading := degrees(v.X) - h.ArmDisplacementDegrees
	return Angles{
		Nod:   degrees(v.Y),
		Shake: Wrap180(heading),
	}
}

// Wrap180 maps an angle in degrees into [-180, 180).
func Wrap180(deg float64) float64 {
	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		return 0
	}
	m := math.Mod(deg+180, 360)
	if m < 0 {
		m += 360
	}
	return m - 180
}

// NewExtractor returns the extractor registered under kind.
func NewExtractor(kind string, armDisplacement float64) (Extractor, error) {
	switch kind {
	case "", KindGravity:
		return GravityExtractor{}, nil
	case KindHeading:
		return HeadingExtractor{ArmDisplacementDegrees: armDisplacement}, nil
	default:
		return nil, fmt.Errorf("orientation: unknown extractor %q", kind)
	}
}

func degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

func finite(v Vector) bool {
	for _, c := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
