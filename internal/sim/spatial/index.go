package spatial

import "sort"

// Entity is anything with a stable id and a position.
type Entity interface {
	EntityID() uint64
	Position() Vec3
}

// Within returns the items whose distance to origin is <= radius, ordered by id.
// Linear scan; agent counts stay in the low hundreds.
func Within[E Entity](items []E, origin Vec3, radius float64) []E {
	var out []E
	for _, it := range items {
		if Distance(it.Position(), origin) <= radius {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].EntityID() < out[j].EntityID() })
	return out
}

// Closest returns the item nearest to origin; ties go to the lower id.
func Closest[E Entity](items []E, origin Vec3) (E, bool) {
	var best E
	found := false
	bestD := 0.0
	for _, it := range items {
		d := Distance(it.Position(), origin)
		if !found || d < bestD || (d == bestD && it.EntityID() < best.EntityID()) {
			best, bestD, found = it, d, true
		}
	}
	return best, found
}
