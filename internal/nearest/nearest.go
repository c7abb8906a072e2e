// Package nearest selects the single nearest aircraft and the nearest
// "interesting" one (military or commercial) from a built set of
// Planes.
package nearest

import (
	"github.com/hangarwatch/aerofuse/internal/snapshot"
)

// Select returns the minimum-distance Plane overall, and the
// minimum-distance Plane among Military/Commercial classifications —
// military wins exact-distance ties. Both return nil when no Plane in
// planes has a resolved position.
func Select(planes []*snapshot.Plane) (nearestOverall, nearestCommercial *snapshot.Plane) {
	for _, p := range planes {
		if p.DistanceNM == nil {
			continue
		}

		if nearestOverall == nil || *p.DistanceNM < *nearestOverall.DistanceNM {
			nearestOverall = p
		}

		if p.Classification != "Commercial" && p.Classification != "Military" {
			continue
		}
		if nearestCommercial == nil {
			nearestCommercial = p
			continue
		}
		if *p.DistanceNM < *nearestCommercial.DistanceNM {
			nearestCommercial = p
		} else if *p.DistanceNM == *nearestCommercial.DistanceNM && p.Classification == "Military" && nearestCommercial.Classification != "Military" {
			// Exact-distance tie: military wins.
			nearestCommercial = p
		}
	}
	return nearestOverall, nearestCommercial
}

// ApplyDefaults fills the fixed set of default-valued fields on
// selected aircraft, so downstream consumers can rely on schema
// stability regardless of how much enrichment succeeded.
func ApplyDefaults(p *snapshot.Plane) {
	if p == nil {
		return
	}
	zero := 0.0
	if p.RemainingNM == nil {
		p.RemainingNM = &zero
	}
	if p.ETAMin == nil {
		eta := 0.0
		p.ETAMin = &eta
	}
	if p.SoulsOnBoardMaxText == "" {
		p.SoulsOnBoardMaxText = "N/A"
	}
	if p.Sources == nil {
		p.Sources = []string{}
	}
	if p.FieldSources == nil {
		p.FieldSources = map[string]string{}
	}
}
