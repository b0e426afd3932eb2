// Package resource enumerates the shared hardware capabilities arbitrated
// by the wizard engine and the physical-arrangement constraints attached
// to phases and checks.
package resource

import "sort"

// Resource identifies one shared physical capability requiring mutual
// exclusion. The set is closed: every lockable surface of the printer is
// listed here.
type Resource string

const (
	// Fans covers all cooling fans.
	Fans Resource = "fans"
	// MC is the motion-controller serial bus.
	MC Resource = "mc"
	// Tilt is the tilt axis.
	Tilt Resource = "tilt"
	// Tower is the tower axis.
	Tower Resource = "tower"
	// TowerDown is downward tower movement, held separately from Tower so
	// a levelling move and a generic tower move exclude each other.
	TowerDown Resource = "tower_down"
	// UV is the UV LED.
	UV Resource = "uv"
)

// All lists every resource in canonical order.
func All() []Resource {
	return []Resource{Fans, MC, Tilt, Tower, TowerDown, UV}
}

// String returns the canonical name.
func (r Resource) String() string {
	return string(r)
}

// Sorted returns a copy of rs in canonical (lexicographic) order. Lock
// acquisition always walks this order, so no two units of work can
// acquire the same pair of resources in opposite orders.
func Sorted(rs []Resource) []Resource {
	out := make([]Resource, len(rs))
	copy(out, rs)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
