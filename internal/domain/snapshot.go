package domain

import "sort"

// Snapshot is the set of volume ids present in a kernel session at one point
type Snapshot struct {
	ids map[int]struct{}
}

// NewSnapshot builds a snapshot from a kernel id list
func NewSnapshot(ids []int) Snapshot {
	s := Snapshot{ids: make(map[int]struct{}, len(ids))}
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	return s
}

// Len returns the number of volumes in the snapshot
func (s Snapshot) Len() int {
	return len(s.ids)
}

// Contains reports whether id was present
func (s Snapshot) Contains(id int) bool {
	_, ok := s.ids[id]
	return ok
}

// IDs returns the ids in ascending order
func (s Snapshot) IDs() []int {
	out := make([]int, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

// Diff returns the symmetric difference between s and after, ascending.
// Taken against the snapshot before an import it yields the volumes the
// import introduced; ids consumed by a later unite fall out of both sides.
func (s Snapshot) Diff(after Snapshot) []int {
	var out []int
	for id := range after.ids {
		if !s.Contains(id) {
			out = append(out, id)
		}
	}
	for id := range s.ids {
		if !after.Contains(id) {
			out = append(out, id)
		}
	}
	sort.Ints(out)
	return out
}
