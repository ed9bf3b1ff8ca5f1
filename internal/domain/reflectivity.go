package domain

import "sort"

// SurfaceRecord is the reflectivity state of one surface
type SurfaceRecord struct {
	Reflector bool `json:"reflector"`
}

// Reflectivity maps surface ids of a wedge volume to their record
type Reflectivity map[int]SurfaceRecord

// IsReflectingQuad is the wedge heuristic: a surface reflects when it is
// planar and bounded by exactly four vertices.
func IsReflectingQuad(planar bool, vertices int) bool {
	return planar && vertices == 4
}

// ReconcileResult reports what Reconcile changed
type ReconcileResult struct {
	Dropped []int
	Added   []int
}

// Reconcile brings the record in line with the live surface set. Records
// for surfaces missing from live are dropped; surfaces not yet recorded are
// classified with classify and added. Surfaces already recorded keep their
// flag, so a second pass over an unchanged set changes nothing.
func (r Reflectivity) Reconcile(live []int, classify func(surfaceID int) (bool, error)) (ReconcileResult, error) {
	var result ReconcileResult

	liveSet := make(map[int]struct{}, len(live))
	for _, id := range live {
		liveSet[id] = struct{}{}
	}
	for id := range r {
		if _, ok := liveSet[id]; !ok {
			delete(r, id)
			result.Dropped = append(result.Dropped, id)
		}
	}

	for _, id := range live {
		if _, ok := r[id]; ok {
			continue
		}
		reflector, err := classify(id)
		if err != nil {
			return result, err
		}
		r[id] = SurfaceRecord{Reflector: reflector}
		result.Added = append(result.Added, id)
	}

	sort.Ints(result.Dropped)
	sort.Ints(result.Added)
	return result, nil
}

// Reflectors returns the ids flagged as reflecting, ascending
func (r Reflectivity) Reflectors() []int {
	var out []int
	for id, rec := range r {
		if rec.Reflector {
			out = append(out, id)
		}
	}
	sort.Ints(out)
	return out
}

// Clone returns an independent copy
func (r Reflectivity) Clone() Reflectivity {
	if r == nil {
		return nil
	}
	out := make(Reflectivity, len(r))
	for id, rec := range r {
		out[id] = rec
	}
	return out
}
