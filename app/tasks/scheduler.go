// Package tasks runs the periodic ingestion sweep.
package tasks

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/roboticshub/newsfeed/app/ingest"
)

// IngestRunner is the part of the ingestion pipeline the scheduler drives.
type IngestRunner interface {
	Run(ctx context.Context) ([]ingest.SourceResult, error)
}

var _ IngestRunner = (*ingest.Ingestor)(nil)

// Scheduler sweeps all enabled sources on a fixed interval. Sweeps run
// sequentially; a slow sweep delays the next tick rather than overlapping it.
type Scheduler struct {
	runner   IngestRunner
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

func NewScheduler(runner IngestRunner, interval time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		runner:   runner,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches the sweep loop. An interval of zero or less disables
// scheduled ingestion entirely; the HTTP trigger still works.
func (s *Scheduler) Start() {
	if s.interval <= 0 {
		slog.Info("Scheduled ingestion disabled", "interval", s.interval.String())
		return
	}

	slog.Info("Scheduled ingestion started", "interval", s.interval.String())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		s.sweep()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.sweep()
			}
		}
	}()
}

func (s *Scheduler) sweep() {
	started := time.Now()

	results, err := s.runner.Run(s.ctx)
	if err != nil {
		slog.Error("Ingest sweep failed", "error", err)
		return
	}

	total := 0
	failed := 0
	for _, result := range results {
		total += result.Items
		if result.Error != "" {
			failed++
		}
	}

	slog.Info("Ingest sweep completed",
		"sources", len(results),
		"items", total,
		"failed", failed,
		"duration", time.Since(started).Round(time.Millisecond).String())
}

// Stop cancels the loop and waits for an in-flight sweep to finish.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	slog.Info("Scheduled ingestion stopped")
}
