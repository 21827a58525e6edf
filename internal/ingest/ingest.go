// Package ingest runs one sync cycle: fetch the raw feed, reconcile it
// into the canonical snapshot, and replace the persisted set.
package ingest

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"busao-tracker/internal/feed"
	"busao-tracker/internal/metrics"
	"busao-tracker/internal/normalize"
	"busao-tracker/internal/publisher"
	"busao-tracker/internal/store"
	"busao-tracker/internal/vehicle"
)

// Reconcile deduplicates raw reports by vehicle identity, keeping the
// last occurrence in feed order, and maps them to canonical records.
// A record with unparseable coordinates is normalized to 0, not
// dropped: one bad report must not abort the rest of the batch.
func Reconcile(reports []feed.Report) []vehicle.Record {
	byID := make(map[string]vehicle.Record, len(reports))
	order := make([]string, 0, len(reports))
	for _, r := range reports {
		if _, seen := byID[r.ID]; !seen {
			order = append(order, r.ID)
		}
		plate := r.Plate
		if plate == "" {
			plate = r.ID
		}
		byID[r.ID] = vehicle.Record{
			ID:        r.ID,
			Plate:     plate,
			Linha:     r.Linha,
			Latitude:  normalize.ParseCoordinate(r.Latitude),
			Longitude: normalize.ParseCoordinate(r.Longitude),
			Speed:     normalize.ParseCoordinate(r.Speed),
			Timestamp: r.ReportedAt,
			Heading:   r.Heading,
		}
	}
	out := make([]vehicle.Record, 0, len(byID))
	for _, id := range order {
		out = append(out, byID[id])
	}
	return out
}

// Syncer owns the feed sources and runs sync cycles against the store.
// Cycles for the same class are serialized; bus and BRT never block
// each other.
type Syncer struct {
	sources map[vehicle.Class]feed.Source
	store   store.Store
	pub     *publisher.Publisher
	metrics *metrics.Collector

	locks sync.Map // vehicle.Class -> *sync.Mutex
}

func NewSyncer(sources map[vehicle.Class]feed.Source, st store.Store, pub *publisher.Publisher, m *metrics.Collector) *Syncer {
	return &Syncer{sources: sources, store: st, pub: pub, metrics: m}
}

// Sync runs one fetch-and-replace cycle for a class and returns how
// many vehicles were stored. Any feed or store failure aborts the
// cycle before or inside the replace; the previous snapshot survives a
// pre-store failure.
func (s *Syncer) Sync(ctx context.Context, class vehicle.Class) (int, error) {
	src, ok := s.sources[class]
	if !ok {
		return 0, fmt.Errorf("no feed source for class %q", class)
	}
	muAny, _ := s.locks.LoadOrStore(class, &sync.Mutex{})
	mu := muAny.(*sync.Mutex)
	mu.Lock()
	defer mu.Unlock()

	start := time.Now()
	reports, err := src.Fetch(ctx)
	if err != nil {
		s.observe(class, "fetch_error", start)
		return 0, err
	}
	recs := Reconcile(reports)
	if err := s.store.ReplaceSnapshot(ctx, class, recs); err != nil {
		s.observe(class, "store_error", start)
		return 0, fmt.Errorf("replace %s snapshot: %w", class, err)
	}
	s.observe(class, "ok", start)
	if s.metrics != nil {
		s.metrics.VehiclesStored.WithLabelValues(string(class)).Set(float64(len(recs)))
	}
	if s.pub != nil {
		for _, r := range recs {
			if err := s.pub.PublishRecord(class, r); err != nil {
				log.Printf("publish %s/%s error: %v", class, r.ID, err)
			}
		}
	}
	return len(recs), nil
}

func (s *Syncer) observe(class vehicle.Class, result string, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.Syncs.WithLabelValues(string(class), result).Inc()
	s.metrics.SyncDuration.Observe(time.Since(start).Seconds())
}

// RunLoop syncs every class on a fixed cadence until ctx is done. The
// first round runs immediately. Failures are logged and the loop keeps
// going.
func (s *Syncer) RunLoop(ctx context.Context, interval time.Duration) {
	syncAll := func() {
		for class := range s.sources {
			count, err := s.Sync(ctx, class)
			if err != nil {
				log.Printf("sync %s error: %v", class, err)
				continue
			}
			log.Printf("sync %s stored %d vehicles", class, count)
		}
	}
	syncAll()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			syncAll()
		}
	}
}
