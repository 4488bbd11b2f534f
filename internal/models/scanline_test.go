package models

import "testing"

func TestExtremaObserve(t *testing.T) {
	var e Extrema
	if e.Valid {
		t.Fatal("Expected zero extrema to be invalid")
	}

	e = e.Observe(3)
	if !e.Valid || e.Min != 3 || e.Max != 3 {
		t.Errorf("Expected {3 3 true}, got %+v", e)
	}

	e = e.Observe(-2).Observe(1)
	if e.Min != -2 || e.Max != 3 {
		t.Errorf("Expected min -2 max 3, got %+v", e)
	}
	if e.Range() != 5 {
		t.Errorf("Expected range 5, got %d", e.Range())
	}
}

// TestExtremaSeed verifies that the first observation seeds both bounds,
// so an all-positive image does not report a minimum of zero
func TestExtremaSeed(t *testing.T) {
	e := Extrema{}.Observe(4).Observe(7)
	if e.Min != 4 {
		t.Errorf("Expected min 4, got %d", e.Min)
	}
}

func TestExtremaMerge(t *testing.T) {
	a := Extrema{}.Observe(-1).Observe(2)
	b := Extrema{}.Observe(5)

	m := a.Merge(b)
	if m.Min != -1 || m.Max != 5 {
		t.Errorf("Expected merged {-1 5}, got %+v", m)
	}

	if got := a.Merge(Extrema{}); got != a {
		t.Errorf("Merging an empty extrema changed the value: %+v", got)
	}
	if got := (Extrema{}).Merge(b); got != b {
		t.Errorf("Merging into an empty extrema should yield the other, got %+v", got)
	}
}

func TestGridRow(t *testing.T) {
	g := NewGrid(3, 2)
	g.Set(1, 1, Pixel{10, 20, 30})

	row := g.Row(1)
	if len(row) != 3 {
		t.Fatalf("Expected row length 3, got %d", len(row))
	}
	if row[1] != (Pixel{10, 20, 30}) {
		t.Errorf("Expected pixel {10 20 30}, got %v", row[1])
	}
	if !g.SameSize(NewGrid(3, 2)) {
		t.Error("Expected grids of equal dimensions to match")
	}
	if g.SameSize(NewGrid(2, 3)) {
		t.Error("Expected transposed grid not to match")
	}
}

func TestDisparityMapCount(t *testing.T) {
	m := NewDisparityMap(4, 2)
	m.Rows[0] = DisparityRow{0, 1, 1}
	m.Rows[1] = DisparityRow{2}
	if m.Count() != 4 {
		t.Errorf("Expected 4 disparities, got %d", m.Count())
	}
}

func TestDisparityMapTotalOcclusions(t *testing.T) {
	m := NewDisparityMap(4, 3)
	if m.TotalOcclusions() != 0 {
		t.Errorf("Expected no occlusions in a new map, got %d", m.TotalOcclusions())
	}
	m.Occlusions[0] = 2
	m.Occlusions[2] = 5
	if m.TotalOcclusions() != 7 {
		t.Errorf("Expected 7 occlusions, got %d", m.TotalOcclusions())
	}
}
