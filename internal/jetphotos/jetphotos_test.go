package jetphotos

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hangarwatch/aerofuse/pkg/logger"
)

func TestFetchAircraftMediaCombinesPhotosAndFlights(t *testing.T) {
	photosServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("reg"); got != "N12345" {
			t.Fatalf("expected reg=N12345, got %q", got)
		}
		json.NewEncoder(w).Encode(photoSearchResponse{
			Images: []struct {
				Image     string `json:"Image"`
				Thumbnail string `json:"Thumbnail"`
			}{
				{Image: "https://example.test/full1.jpg", Thumbnail: "https://example.test/thumb1.jpg"},
			},
		})
	}))
	defer photosServer.Close()

	flightsServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(flightHistoryResponse{
			Flights: []struct {
				Flight          string `json:"Flight"`
				From            string `json:"From"`
				To              string `json:"To"`
				Date            string `json:"Date"`
				BlockTime       string `json:"BlockTime"`
				DepartureTime   string `json:"DepartureTime"`
				ActualDeparture string `json:"ActualDeparture"`
				ArrivalTime     string `json:"ArrivalTime"`
				Status          string `json:"Status"`
			}{
				{Flight: "AA100", From: "JFK", To: "", Date: "2026-07-30", Status: "Arrived"},
			},
		})
	}))
	defer flightsServer.Close()

	log, _ := logger.New(logger.Config{Level: "error", Format: "console"})
	c := New(Config{PhotosBaseURL: photosServer.URL, FlightsBaseURL: flightsServer.URL}, log)

	media, err := c.FetchAircraftMedia(context.Background(), "N12345")
	if err != nil {
		t.Fatalf("FetchAircraftMedia: %v", err)
	}

	if len(media.Images) != 1 || media.Images[0].FullURL != "https://example.test/full1.jpg" {
		t.Fatalf("unexpected images: %+v", media.Images)
	}
	if len(media.Flights) != 1 || media.Flights[0].Destination != "Unknown" {
		t.Fatalf("expected blank destination to fall back to Unknown, got: %+v", media.Flights)
	}
}

func TestFetchAircraftMediaRequiresRegistration(t *testing.T) {
	log, _ := logger.New(logger.Config{Level: "error", Format: "console"})
	c := New(Config{}, log)

	if _, err := c.FetchAircraftMedia(context.Background(), "  "); err == nil {
		t.Fatal("expected an error for a blank registration")
	}
}

func TestFetchAircraftMediaSkipsUnconfiguredEndpoints(t *testing.T) {
	log, _ := logger.New(logger.Config{Level: "error", Format: "console"})
	c := New(Config{}, log)

	media, err := c.FetchAircraftMedia(context.Background(), "N999")
	if err != nil {
		t.Fatalf("FetchAircraftMedia: %v", err)
	}
	if media.Images != nil || media.Flights != nil {
		t.Fatalf("expected no media when no endpoints are configured, got: %+v", media)
	}
}
