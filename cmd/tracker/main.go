package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"busao-tracker/internal/config"
	"busao-tracker/internal/feed"
	"busao-tracker/internal/ingest"
	"busao-tracker/internal/metrics"
	"busao-tracker/internal/publisher"
	"busao-tracker/internal/server"
	"busao-tracker/internal/store"
	"busao-tracker/internal/vehicle"
)

func main() {
	// Load configuration from .env and environment
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	// Root context with cancellation on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var st store.Store
	if cfg.DatabaseURL != "" {
		pg, err := store.OpenPostgres(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("db open error: %v", err)
		}
		if err := pg.Ping(ctx); err != nil {
			log.Fatalf("db ping error: %v", err)
		}
		st = pg
		log.Printf("using postgres store")
	} else {
		st = store.NewMemory()
		log.Printf("no DATABASE_URL set, using in-memory store")
	}
	defer st.Close()

	mcol := metrics.NewCollector()

	var pub *publisher.Publisher
	if cfg.NATSURL != "" {
		pub, err = publisher.New(cfg.NATSURL, cfg.LogNATSSubjects, wrapPublisherMetrics(mcol))
		if err != nil {
			log.Fatalf("nats error: %v", err)
		}
		defer pub.Close()
	}

	feedClient := &http.Client{Timeout: cfg.FeedTimeout}
	sources := map[vehicle.Class]feed.Source{
		vehicle.ClassBus: &feed.BusFeed{
			BaseURL: cfg.BusFeedURL,
			Window:  cfg.BusWindow,
			Loc:     cfg.Location,
			Client:  feedClient,
		},
		vehicle.ClassBRT: &feed.BRTFeed{
			URL:    cfg.BRTFeedURL,
			Client: feedClient,
		},
	}
	syncer := ingest.NewSyncer(sources, st, pub, mcol)

	// Internal sync loop; external schedulers hit /api/*/sync instead
	if cfg.SyncInterval > 0 {
		go syncer.RunLoop(ctx, cfg.SyncInterval)
		log.Printf("internal sync loop every %s", cfg.SyncInterval)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: server.New(st, syncer, mcol).Router(cfg.CORSOrigins),
	}
	go func() {
		log.Printf("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Block until context cancelled
	<-ctx.Done()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Println("shutdown complete")
}

// wrapPublisherMetrics adapts the Collector to the publisher.Metrics interface.
func wrapPublisherMetrics(c *metrics.Collector) publisher.Metrics {
	if c == nil {
		return nil
	}
	return &pubMetrics{c: c}
}

type pubMetrics struct{ c *metrics.Collector }

func (p *pubMetrics) NATSPublishedInc()  { p.c.NATSPublished.Inc() }
func (p *pubMetrics) NATSPublishErrInc() { p.c.NATSPublishErrs.Inc() }
func (p *pubMetrics) NATSSetConnected(b bool) {
	if b {
		p.c.NATSConnected.Set(1)
	} else {
		p.c.NATSConnected.Set(0)
	}
}
