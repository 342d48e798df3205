package table

import (
	"slices"

	"github.com/pitabwire/tabula/model"
)

// ApplySort returns a sorted copy of rows. An empty key keeps the input order.
// The sort is stable in both directions: descending order negates the
// comparison, so rows with equal keys keep their relative order.
func ApplySort(rows []model.Row, spec model.SortSpec) []model.Row {
	out := slices.Clone(rows)
	if spec.Key == "" {
		return out
	}

	sign := 1
	if spec.Direction == model.SortDesc {
		sign = -1
	}
	slices.SortStableFunc(out, func(a, b model.Row) int {
		av, _ := a.Value(spec.Key)
		bv, _ := b.Value(spec.Key)
		return sign * Compare(av, bv)
	})
	return out
}

// NextSort applies the header-click rule: the active key flips direction,
// any other key starts ascending.
func NextSort(current model.SortSpec, key string) model.SortSpec {
	if current.Key == key {
		if current.Direction == model.SortAsc {
			return model.SortSpec{Key: key, Direction: model.SortDesc}
		}
		return model.SortSpec{Key: key, Direction: model.SortAsc}
	}
	return model.SortSpec{Key: key, Direction: model.SortAsc}
}
