// Package jetphotos implements media.Provider by querying a JetPhotos
// search mirror for recent photos of a registration and a
// FlightRadar24-style history endpoint for its recent flights.
package jetphotos

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hangarwatch/aerofuse/internal/media"
	"github.com/hangarwatch/aerofuse/internal/snapshot"
	"github.com/hangarwatch/aerofuse/pkg/logger"
)

// Config points at the two upstream endpoints this provider queries.
type Config struct {
	PhotosBaseURL  string // e.g. https://api.example.com/jetphotos/search
	FlightsBaseURL string // e.g. https://api.example.com/flightradar/history
	TimeoutSeconds int
}

// Client fetches aircraft photos and flight history for a registration.
type Client struct {
	httpClient     *http.Client
	photosBaseURL  string
	flightsBaseURL string
	log            *logger.Logger
}

// New constructs a Client. Either base URL may be empty, in which case
// that half of FetchAircraftMedia is simply skipped.
func New(cfg Config, log *logger.Logger) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		httpClient:     &http.Client{Timeout: timeout},
		photosBaseURL:  cfg.PhotosBaseURL,
		flightsBaseURL: cfg.FlightsBaseURL,
		log:            log.Named("jetphotos"),
	}
}

type photoSearchResponse struct {
	Images []struct {
		Image     string `json:"Image"`
		Thumbnail string `json:"Thumbnail"`
	} `json:"Images"`
}

type flightHistoryResponse struct {
	Flights []struct {
		Flight           string `json:"Flight"`
		From             string `json:"From"`
		To               string `json:"To"`
		Date             string `json:"Date"`
		BlockTime        string `json:"BlockTime"`
		DepartureTime    string `json:"DepartureTime"`
		ActualDeparture  string `json:"ActualDeparture"`
		ArrivalTime      string `json:"ArrivalTime"`
		Status           string `json:"Status"`
	} `json:"Flights"`
}

// FetchAircraftMedia fetches up to 4 photos and up to 5 recent flights
// for registration. A registration with no photos and no flight
// history returns a non-nil AircraftMedia with empty slices, not an
// error — absence of coverage is not a fetch failure.
func (c *Client) FetchAircraftMedia(ctx context.Context, registration string) (*media.AircraftMedia, error) {
	registration = strings.TrimSpace(registration)
	if registration == "" {
		return nil, fmt.Errorf("registration is required")
	}

	result := &media.AircraftMedia{}

	if c.photosBaseURL != "" {
		images, err := c.fetchPhotos(ctx, registration)
		if err != nil {
			c.log.Warn("jetphotos photo fetch failed", logger.String("registration", registration), logger.Error(err))
		} else {
			result.Images = images
		}
	}

	if c.flightsBaseURL != "" {
		flights, err := c.fetchFlights(ctx, registration)
		if err != nil {
			c.log.Warn("flight history fetch failed", logger.String("registration", registration), logger.Error(err))
		} else {
			result.Flights = flights
		}
	}

	return result, nil
}

func (c *Client) fetchPhotos(ctx context.Context, registration string) ([]media.Image, error) {
	u := fmt.Sprintf("%s?reg=%s&limit=4", c.photosBaseURL, url.QueryEscape(registration))
	var resp photoSearchResponse
	if err := c.getJSON(ctx, u, &resp); err != nil {
		return nil, err
	}

	images := make([]media.Image, 0, len(resp.Images))
	for _, img := range resp.Images {
		full := img.Image
		if full == "" {
			full = img.Thumbnail
		}
		if full == "" {
			continue
		}
		images = append(images, media.Image{FullURL: full, ThumbnailURL: img.Thumbnail})
	}
	return images, nil
}

func (c *Client) fetchFlights(ctx context.Context, registration string) ([]snapshot.FlightRow, error) {
	u := fmt.Sprintf("%s?reg=%s&limit=5", c.flightsBaseURL, url.QueryEscape(registration))
	var resp flightHistoryResponse
	if err := c.getJSON(ctx, u, &resp); err != nil {
		return nil, err
	}

	rows := make([]snapshot.FlightRow, 0, len(resp.Flights))
	for _, f := range resp.Flights {
		dest := f.To
		if dest == "" {
			dest = "Unknown"
		}
		rows = append(rows, snapshot.FlightRow{
			Flight:                  f.Flight,
			Origin:                  f.From,
			Destination:             dest,
			DateYYYYMMDD:            f.Date,
			BlockTimeHHMM:           f.BlockTime,
			DepartureTimeHHMM:       f.DepartureTime,
			ActualDepartureTimeHHMM: f.ActualDeparture,
			ArrivalTimeHHMM:         f.ArrivalTime,
			StatusText:              f.Status,
		})
	}
	return rows, nil
}

func (c *Client) getJSON(ctx context.Context, u string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
