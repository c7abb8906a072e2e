package nearest

import (
	"testing"

	"github.com/hangarwatch/aerofuse/internal/snapshot"
)

func d(v float64) *float64 { return &v }

func TestSelectMilitaryHierarchy(t *testing.T) {
	x := &snapshot.Plane{Hex: "X", DistanceNM: d(5), Classification: "Commercial"}
	y := &snapshot.Plane{Hex: "Y", DistanceNM: d(7), Classification: "Military"}

	n, nc := Select([]*snapshot.Plane{x, y})
	if n.Hex != "X" {
		t.Fatalf("expected X nearest overall, got %s", n.Hex)
	}
	if nc.Hex != "X" {
		t.Fatalf("expected X nearest_commercial when closer than military, got %s", nc.Hex)
	}
}

func TestSelectMilitaryWinsWhenCloser(t *testing.T) {
	x := &snapshot.Plane{Hex: "X", DistanceNM: d(5), Classification: "Commercial"}
	y := &snapshot.Plane{Hex: "Y", DistanceNM: d(4), Classification: "Military"}

	n, nc := Select([]*snapshot.Plane{x, y})
	if n.Hex != "Y" {
		t.Fatalf("expected Y nearest overall, got %s", n.Hex)
	}
	if nc.Hex != "Y" {
		t.Fatalf("expected Y nearest_commercial (military-closer rule), got %s", nc.Hex)
	}
}

func TestSelectMilitaryWinsExactTie(t *testing.T) {
	x := &snapshot.Plane{Hex: "X", DistanceNM: d(5), Classification: "Commercial"}
	y := &snapshot.Plane{Hex: "Y", DistanceNM: d(5), Classification: "Military"}

	_, nc := Select([]*snapshot.Plane{x, y})
	if nc.Hex != "Y" {
		t.Fatalf("expected military to win an exact-distance tie, got %s", nc.Hex)
	}
}

func TestSelectIgnoresPlanesWithoutPosition(t *testing.T) {
	noPos := &snapshot.Plane{Hex: "NOPOS"}
	withPos := &snapshot.Plane{Hex: "HASPOS", DistanceNM: d(10)}

	n, _ := Select([]*snapshot.Plane{noPos, withPos})
	if n == nil || n.Hex != "HASPOS" {
		t.Fatalf("expected HASPOS selected, got %+v", n)
	}
}

func TestApplyDefaultsFillsScaffolding(t *testing.T) {
	p := &snapshot.Plane{Hex: "X"}
	ApplyDefaults(p)

	if p.RemainingNM == nil || *p.RemainingNM != 0 {
		t.Fatal("expected remaining_nm default of 0.0")
	}
	if p.ETAMin == nil || *p.ETAMin != 0 {
		t.Fatal("expected eta_min default of 0.0")
	}
	if p.SoulsOnBoardMaxText != "N/A" {
		t.Fatalf("expected N/A default, got %q", p.SoulsOnBoardMaxText)
	}
}
