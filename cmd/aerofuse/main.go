package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hangarwatch/aerofuse/internal/catalog"
	"github.com/hangarwatch/aerofuse/internal/config"
	"github.com/hangarwatch/aerofuse/internal/enrich"
	"github.com/hangarwatch/aerofuse/internal/httpapi"
	"github.com/hangarwatch/aerofuse/internal/jetphotos"
	"github.com/hangarwatch/aerofuse/internal/media"
	"github.com/hangarwatch/aerofuse/internal/milcache"
	"github.com/hangarwatch/aerofuse/internal/pipeline"
	"github.com/hangarwatch/aerofuse/internal/provider"
	"github.com/hangarwatch/aerofuse/internal/publish"
	"github.com/hangarwatch/aerofuse/internal/scheduler"
	"github.com/hangarwatch/aerofuse/internal/store"
	"github.com/hangarwatch/aerofuse/internal/wsdebug"
	"github.com/hangarwatch/aerofuse/internal/zipline"
	"github.com/hangarwatch/aerofuse/pkg/logger"
)

var (
	// Version is injected at build time.
	Version = "dev"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file (optional - will search in configs/ and root directory)")
	flag.Parse()

	cfg, err := config.LoadWithFallback(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("starting aerofuse",
		logger.String("version", Version),
		logger.String("config_path", *configPath),
	)

	catalogs := catalog.Load(
		cfg.Catalogs.AircraftTypesPath,
		cfg.Catalogs.AirlinesPath,
		cfg.Catalogs.AirportsPath,
		cfg.Catalogs.CountriesPath,
		log,
	)

	milCache := milcache.New(
		cfg.MilCache.Path,
		time.Duration(cfg.MilCache.TTLSeconds)*time.Second,
		cfg.MilCache.APIBaseURL,
		log,
	)

	providers, err := buildProviders(cfg, milCache, log)
	if err != nil {
		log.Error("failed to build providers", logger.Error(err))
		os.Exit(1)
	}

	enricher := enrich.NewEnricher(
		catalogs,
		cfg.Enrich.PrivateDesignationSeats,
		cfg.Enrich.AirlineLogoBaseURL,
		cfg.Enrich.AirlineLogoAssetRoot,
		cfg.Enrich.CountryFlagBaseURL,
	)

	var mediaEnricher *media.Enricher
	if cfg.Media.Enabled {
		photoClient := jetphotos.New(jetphotos.Config{
			PhotosBaseURL:  cfg.Media.PhotosBaseURL,
			FlightsBaseURL: cfg.Media.FlightsBaseURL,
			TimeoutSeconds: cfg.Media.TimeoutSeconds,
		}, log)

		var imageProcessor media.ImageProcessor
		if cfg.Media.ZiplineToken != "" {
			imageProcessor = zipline.New(zipline.Config{
				BaseURL:        cfg.Media.ZiplineBaseURL,
				Token:          cfg.Media.ZiplineToken,
				FolderID:       cfg.Media.ZiplineFolderID,
				TimeoutSeconds: cfg.Media.ZiplineTimeoutSeconds,
			}, log)
		}

		mediaEnricher = media.NewEnricher(photoClient, imageProcessor, cfg.Media.MaxWorkers, cfg.Media.MaxThumbnails, log)
	}

	publisher := publish.New(publish.Config{
		Host:                     cfg.MQTT.Host,
		Port:                     cfg.MQTT.Port,
		Username:                 cfg.MQTT.Username,
		Password:                 cfg.MQTT.Password,
		ClientID:                 cfg.MQTT.ClientID,
		TopicPrefix:              cfg.MQTT.TopicPrefix,
		PublishPlanes:            cfg.MQTT.PublishPlanes,
		PublishNearestCommercial: cfg.MQTT.PublishNearestCommercial,
	}, log)

	var statsStore *store.Store
	if cfg.Storage.StatsDBPath != "" {
		statsStore, err = store.Open(cfg.Storage.StatsDBPath, log)
		if err != nil {
			log.Error("failed to open stats store", logger.Error(err))
			os.Exit(1)
		}
		defer statsStore.Close()
	}

	apiHandler := httpapi.NewHandler(log)
	hub := wsdebug.NewHub(log)
	go hub.Run()

	pl := pipeline.New(cfg, providers, enricher, mediaEnricher, publisher, statsStore, apiHandler, hub, log)

	sched := scheduler.New(cfg.Scheduler.FetchIntervalMinSeconds, cfg.Scheduler.FetchIntervalMaxSeconds, pl.Run, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sched.Start(ctx)

	router := chi.NewRouter()
	router.Mount("/", apiHandler.Routes())
	router.Get("/ws", hub.ServeHTTP)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: router,
	}
	go func() {
		log.Info("starting debug http server", logger.String("addr", addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("debug http server error", logger.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down aerofuse")

	sched.Stop()
	publisher.Disconnect()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("debug http server shutdown error", logger.Error(err))
	}

	cancel()
	log.Info("aerofuse stopped")
}

// buildProviders constructs the enabled provider clients in priority
// order A, B, C. Providers marked skip in config are simply omitted.
func buildProviders(cfg *config.Config, milCache *milcache.Cache, log *logger.Logger) ([]provider.Client, error) {
	var clients []provider.Client

	if !cfg.Providers.A.Skip {
		a := cfg.Providers.A
		clients = append(clients, provider.NewClientA(
			a.BaseURL,
			a.CredentialsPath,
			a.ClientID,
			a.ClientSecret,
			cfg.Station.Lat, cfg.Station.Lon, cfg.Station.RadiusNM,
			a.BBoxLamin, a.BBoxLomin, a.BBoxLamax, a.BBoxLomax,
			time.Duration(a.TimeoutSeconds)*time.Second,
			milCache, log,
		))
	}

	if !cfg.Providers.B.Skip {
		b := cfg.Providers.B
		clients = append(clients, provider.NewClientB(
			b.URL, b.APIHost, b.APIKey,
			cfg.Station.Lat, cfg.Station.Lon, cfg.Station.RadiusNM,
			time.Duration(b.TimeoutSeconds)*time.Second,
			milCache, log,
		))
	}

	if !cfg.Providers.C.Skip {
		c := cfg.Providers.C
		clients = append(clients, provider.NewClientC(
			c.LocalURL,
			time.Duration(c.TimeoutSeconds)*time.Second,
			milCache, log,
		))
	}

	if len(clients) == 0 {
		return nil, fmt.Errorf("no providers enabled")
	}
	return clients, nil
}
