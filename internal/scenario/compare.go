package scenario

import (
	"math"

	"github.com/specialistvlad/loopgrid/internal/attrstore"
)

// Diff is the change of one attribute between a baseline and a scenario.
type Diff struct {
	ID    string
	Base  float64
	Value float64
	// Delta is Value - Base.
	Delta float64
	// Relative is Delta / |Base|, or NaN when Base is zero.
	Relative float64
}

// Compare returns one Diff per id present in both snapshots, sorted by id.
func Compare(base, other attrstore.Snapshot) []Diff {
	var diffs []Diff
	for _, id := range base.IDs() {
		b, _ := base.Get(id)
		v, ok := other.Get(id)
		if !ok {
			continue
		}
		d := Diff{ID: id, Base: b, Value: v, Delta: v - b, Relative: math.NaN()}
		if b != 0 {
			d.Relative = d.Delta / math.Abs(b)
		}
		diffs = append(diffs, d)
	}
	return diffs
}
