// Package media optionally enriches the nearest and nearest-commercial
// aircraft with recent photos and flight history via an injected
// collaborator. A cycle never fails because media enrichment failed —
// errors are recorded on the affected Plane and swallowed.
package media

import (
	"context"
	"strings"

	"github.com/hangarwatch/aerofuse/internal/snapshot"
	"github.com/hangarwatch/aerofuse/pkg/logger"
)

// Image is one photo the media provider returns for an aircraft.
type Image struct {
	FullURL      string
	ThumbnailURL string
}

// AircraftMedia is the media provider's response for one registration.
type AircraftMedia struct {
	Images  []Image
	Flights []snapshot.FlightRow
}

// Provider fetches recent photos and flight history for an aircraft
// registration. A nil *AircraftMedia with a nil error means "nothing
// found", not a failure.
type Provider interface {
	FetchAircraftMedia(ctx context.Context, registration string) (*AircraftMedia, error)
}

// ImageProcessor converts a source photo URL into a pair of published
// URLs: a re-hosted copy of the original and a display-ready BMP.
type ImageProcessor interface {
	ProcessImage(ctx context.Context, imageURL, registration string) (processedURL, displayBMPURL string, err error)
}

// Enricher attaches media to the nearest/nearest-commercial aircraft.
type Enricher struct {
	provider       Provider
	imageProcessor ImageProcessor // optional, may be nil
	maxWorkers     int
	maxThumbnails  int
	log            *logger.Logger
}

// NewEnricher constructs an Enricher. imageProcessor may be nil when
// image re-hosting isn't configured.
func NewEnricher(provider Provider, imageProcessor ImageProcessor, maxWorkers, maxThumbnails int, log *logger.Logger) *Enricher {
	if maxWorkers <= 0 {
		maxWorkers = 8
	}
	if maxThumbnails <= 0 {
		maxThumbnails = 4
	}
	return &Enricher{
		provider:       provider,
		imageProcessor: imageProcessor,
		maxWorkers:     maxWorkers,
		maxThumbnails:  maxThumbnails,
		log:            log.Named("media"),
	}
}

// EnrichAll fetches media for every distinct Plane in planes (typically
// just nearest and nearest_commercial), running the per-aircraft photo
// page fetches through a pool sized min(maxWorkers, len(planes)).
func (e *Enricher) EnrichAll(ctx context.Context, planes []*snapshot.Plane) {
	if e.provider == nil {
		return
	}

	distinct := dedupeByHex(planes)
	if len(distinct) == 0 {
		return
	}

	poolSize := e.maxWorkers
	if len(distinct) < poolSize {
		poolSize = len(distinct)
	}
	sem := make(chan struct{}, poolSize)
	done := make(chan struct{}, len(distinct))

	for _, p := range distinct {
		sem <- struct{}{}
		go func(plane *snapshot.Plane) {
			defer func() { <-sem; done <- struct{}{} }()
			e.enrichOne(ctx, plane)
		}(p)
	}
	for range distinct {
		<-done
	}
}

func dedupeByHex(planes []*snapshot.Plane) []*snapshot.Plane {
	seen := make(map[string]bool, len(planes))
	out := make([]*snapshot.Plane, 0, len(planes))
	for _, p := range planes {
		if p == nil || p.Registration == "" || seen[p.Hex] {
			continue
		}
		seen[p.Hex] = true
		out = append(out, p)
	}
	return out
}

func (e *Enricher) enrichOne(ctx context.Context, p *snapshot.Plane) {
	media, err := e.provider.FetchAircraftMedia(ctx, p.Registration)
	if err != nil {
		e.log.Warn("media fetch failed", logger.String("registration", p.Registration), logger.Error(err))
		p.MediaErrors = append(p.MediaErrors, err.Error())
		return
	}
	if media == nil {
		return
	}

	if len(media.Images) > 0 {
		p.Media = &snapshot.Media{PlaneImage: media.Images[0].FullURL}

		thumbs := make([]string, 0, e.maxThumbnails)
		for _, img := range media.Images {
			if img.ThumbnailURL == "" {
				continue
			}
			thumbs = append(thumbs, img.ThumbnailURL)
			if len(thumbs) >= e.maxThumbnails {
				break
			}
		}
		p.Media.Thumbnails = thumbs

		if e.imageProcessor != nil && p.Media.PlaneImage != "" {
			processed, displayBMP, err := e.imageProcessor.ProcessImage(ctx, p.Media.PlaneImage, p.Registration)
			if err != nil {
				e.log.Warn("image processing failed", logger.String("registration", p.Registration), logger.Error(err))
				p.MediaErrors = append(p.MediaErrors, err.Error())
			} else {
				p.Media.ProcessedImageURL = processed
				p.Media.DisplayBMPURL = displayBMP
			}
		}
	}

	for _, row := range media.Flights {
		row.ArrOrETAHHMM = arrivalOrETA(row)
		p.History = append(p.History, row)
	}
}

// arrivalOrETA derives the "Arr HH:MM" / "ETA HH:MM" display string
// shown alongside each history row.
func arrivalOrETA(row snapshot.FlightRow) string {
	prefix := "ETA"
	if strings.Contains(strings.ToLower(row.StatusText), "arr") {
		prefix = "Arr"
	}

	sta := row.ArrivalTimeHHMM
	if sta == "" {
		sta = row.DepartureTimeHHMM
	}
	if sta == "" {
		return prefix
	}
	return prefix + " " + sta
}
