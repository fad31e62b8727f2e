// Package sim generates synthetic readings against the seeded zone catalog.
// Intended for local development and load checks, never for production traffic.
package sim

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"sitewatch/internal/catalog"
	"sitewatch/internal/clock"
	"sitewatch/internal/domain"
	"sitewatch/internal/ingest"
)

// Simulator pushes randomized readings for every zone rule at a fixed rate.
// Params: reading sink, zone catalog, and tick interval.
// Returns: runnable traffic generator.
type Simulator struct {
	sink     ingest.ReadingSink
	catalog  *catalog.Catalog
	interval time.Duration
	clock    clock.Clock
	logger   *slog.Logger
	rand     *rand.Rand
}

// New creates a simulator over one catalog snapshot.
// Params: sink, catalog, tick interval, clock, and logger.
// Returns: initialized simulator.
func New(sink ingest.ReadingSink, cat *catalog.Catalog, interval time.Duration, clk clock.Clock, logger *slog.Logger) *Simulator {
	return &Simulator{
		sink:     sink,
		catalog:  cat,
		interval: interval,
		clock:    clk,
		logger:   logger,
		rand:     rand.New(rand.NewSource(clk.Now().UnixNano())),
	}
}

// Run emits one reading per zone rule every interval until cancellation.
// Params: context controlling the loop.
// Returns: nil on context cancellation.
// Values spread from below warning to past critical so roughly a third of the
// generated readings violate their rule.
func (s *Simulator) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick pushes one randomized reading for every rule in the catalog.
// Params: context for sink calls.
// Returns: none.
func (s *Simulator) tick(ctx context.Context) {
	now := s.clock.Now()
	for _, zone := range s.catalog.ListZones() {
		for _, rule := range zone.Rules {
			reading := domain.Reading{
				SourceID: fmt.Sprintf("sim-%s-%s", zone.ID, rule.ID),
				ZoneID:   zone.ID,
				Metric:   rule.Metric,
				Value:    s.sampleValue(rule),
				DT:       now.UnixMilli(),
			}
			if _, err := s.sink.Push(ctx, reading); err != nil {
				s.logger.Warn("simulated reading rejected",
					"zone_id", zone.ID,
					"metric", rule.Metric,
					"error", err.Error())
			}
		}
	}
}

// sampleValue draws one value spanning the rule threshold range.
// Params: rule with warning/critical bounds.
// Returns: value in [0.5*warning, 1.2*critical).
func (s *Simulator) sampleValue(rule catalog.Rule) float64 {
	low := rule.Warning * 0.5
	high := rule.Critical * 1.2
	if high <= low {
		high = low + 1
	}
	return low + s.rand.Float64()*(high-low)
}
