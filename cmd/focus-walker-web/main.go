package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Bucknalla/go-focus-walker/internal/config"
	"github.com/Bucknalla/go-focus-walker/walk"
	"github.com/Bucknalla/go-focus-walker/web"
	log "github.com/sirupsen/logrus"
)

// Version information - populated at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	var (
		configPath  string
		listen      string
		staticDir   string
		showVersion bool
	)
	flag.StringVar(&configPath, "config", "", "Config file (yaml, toml or json)")
	flag.StringVar(&listen, "listen", "", "Listen address (default from config, :8080)")
	flag.StringVar(&staticDir, "static", "", "Directory with the web front-end (default from config, ./static)")
	flag.BoolVar(&showVersion, "version", false, "Show version information and exit")
	flag.Parse()

	if showVersion {
		if Version != "dev" {
			fmt.Printf("v%s\n", Version)
		} else {
			fmt.Printf("%s\n", Commit)
		}
		return
	}

	loader, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg := loader.Config()
	if listen != "" {
		cfg.Listen = listen
	}
	if staticDir != "" {
		cfg.StaticDir = staticDir
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := log.StandardLogger()
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}
	if cfg.Quiet {
		logger.SetLevel(log.WarnLevel)
	}

	hub := web.NewHub(logger)
	feed := walk.NewLocationFeed()

	acquirer, err := walk.NewAcquirer(walk.NewOSRMClient(cfg.OSRMBaseURL, cfg.Profile), cfg.RouteTimeout, logger)
	if err != nil {
		log.Fatalf("Failed to create route acquirer: %v", err)
	}
	scheduler, err := walk.NewTickerScheduler(cfg.TickRate)
	if err != nil {
		log.Fatalf("Failed to create scheduler: %v", err)
	}
	session, err := walk.NewSession(cfg, acquirer, scheduler,
		walk.WithRenderers(hub, walk.NewLogRenderer(logger, 30*time.Second)),
		walk.WithLogger(logger),
	)
	if err != nil {
		log.Fatalf("Failed to create session: %v", err)
	}
	defer session.Close()

	loader.Watch(speedReloader(session, logger), func(err error) {
		logger.WithError(err).Warn("Config reload failed")
	})

	server := web.NewServer(web.Options{
		Session:      session,
		Hub:          hub,
		LocationFeed: feed,
		Geocoder:     walk.NewNominatimClient(cfg.NominatimBaseURL, cfg.UserAgent),
		StaticDir:    cfg.StaticDir,
		Logger:       logger,
	})

	httpServer := &http.Server{
		Addr:         cfg.Listen,
		Handler:      server,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		hub.Close()
		httpServer.Shutdown(shutdown)
	}()

	logger.WithField("listen", cfg.Listen).Info("Starting focus walker web server")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Fatal("Server failed")
	}
}

// speedReloader applies speed_kmh from a reloaded config to the session
func speedReloader(session *walk.Session, logger log.FieldLogger) func(walk.Config) {
	return func(updated walk.Config) {
		speed := walk.KMHToMPS(updated.SpeedKMH)
		if speed == session.Speed() {
			return
		}
		if err := session.SetSpeed(speed); err != nil {
			logger.WithError(err).Warn("Ignoring speed from config")
		}
	}
}
