package spatial

import "math"

type Vec3 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

func V(x, y, z float64) Vec3 { return Vec3{X: x, Y: y, Z: z} }

func (a Vec3) Add(b Vec3) Vec3      { return Vec3{a.X + b.X, a.Y + b.Y, a.Z + b.Z} }
func (a Vec3) Sub(b Vec3) Vec3      { return Vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z} }
func (a Vec3) Scale(s float64) Vec3 { return Vec3{a.X * s, a.Y * s, a.Z * s} }
func (a Vec3) Len() float64         { return math.Sqrt(a.X*a.X + a.Y*a.Y + a.Z*a.Z) }
func (a Vec3) Array() [3]float64    { return [3]float64{a.X, a.Y, a.Z} }
func FromArray(v [3]float64) Vec3   { return Vec3{v[0], v[1], v[2]} }
func Distance(a, b Vec3) float64    { return a.Sub(b).Len() }

// Normalize returns the unit vector, or the zero vector for zero length input.
func (a Vec3) Normalize() Vec3 {
	l := a.Len()
	if l == 0 {
		return Vec3{}
	}
	return a.Scale(1 / l)
}

// MoveToward steps from pos toward target by at most step units, never overshooting.
func MoveToward(pos, target Vec3, step float64) Vec3 {
	d := target.Sub(pos)
	l := d.Len()
	if l <= step || l == 0 {
		return target
	}
	return pos.Add(d.Scale(step / l))
}
