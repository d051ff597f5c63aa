// Package mask implements the activation mask over a fixed task domain.
//
// A Mask owns two arenas sized once at construction: the boolean flag vector
// and the ascending index list derived from it. Rebuild overwrites both in
// place, so a cycle never sees activations left over from the previous one
// and no per-cycle allocation is needed.
package mask

import (
	"fmt"
)

// Mask marks which tasks of a domain participate in the current cycle.
// It is not safe for concurrent mutation; readers may share it once
// Rebuild has returned.
type Mask struct {
	active  []bool
	indices []int // ascending, len == active count
}

// New allocates a mask for size tasks, all inactive.
func New(size int) *Mask {
	if size < 0 {
		size = 0
	}
	return &Mask{
		active:  make([]bool, size),
		indices: make([]int, 0, size),
	}
}

// Rebuild deactivates every task, then activates exactly those in members.
// Repeated members count once. An out-of-domain member leaves the mask
// all-inactive and returns an error.
func (m *Mask) Rebuild(members []int) error {
	clear(m.active)
	m.indices = m.indices[:0]

	for _, t := range members {
		if t < 0 || t >= len(m.active) {
			clear(m.active)
			return fmt.Errorf("task %d outside domain [0, %d)", t, len(m.active))
		}
		m.active[t] = true
	}
	for t, on := range m.active {
		if on {
			m.indices = append(m.indices, t)
		}
	}
	return nil
}

// Size returns the full domain size.
func (m *Mask) Size() int { return len(m.active) }

// Count returns the number of active tasks.
func (m *Mask) Count() int { return len(m.indices) }

// Active reports whether task t is active. Out-of-domain tasks are inactive.
func (m *Mask) Active(t int) bool {
	return t >= 0 && t < len(m.active) && m.active[t]
}

// Indices returns the active tasks in ascending order. The slice aliases the
// mask's arena and is only valid until the next Rebuild.
func (m *Mask) Indices() []int { return m.indices }
