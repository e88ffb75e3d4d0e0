// Package metrics computes the read-only figures behind GET /metrics
// (C9): plain SQL aggregates over the ticket store plus the
// materialized daily_stats trend, with no mutable state of its own.
package metrics

import (
	"context"
	"time"

	"github.com/5knew/deskcore/pkg/config"
	"github.com/5knew/deskcore/pkg/store"
)

// Aggregator computes metrics directly against the store's connection.
type Aggregator struct {
	store *store.Store
	cfg   config.MetricsConfig
}

// New builds an Aggregator.
func New(st *store.Store, cfg config.MetricsConfig) *Aggregator {
	return &Aggregator{store: st, cfg: cfg}
}

// Snapshot is the full GET /metrics response body.
type Snapshot struct {
	Total                         int
	Closed                        int
	AutoClosed                    int
	ByCategory                    map[string]int
	ByQueue                       map[string]int
	ByIssueType                   map[string]int
	MeanConfidence                float64
	AutoResolutionRate            float64
	NeedsClarificationRate        float64
	RoutingErrorRate              float64
	CSAT                          float64
	MeanResolutionHoursByCategory map[string]float64
	DailyTrend                    []store.DailyStatRow
}

// Compute assembles a full Snapshot as of now.
func (a *Aggregator) Compute(ctx context.Context) (Snapshot, error) {
	counts, err := a.store.CountTickets(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	byCategory, err := a.store.CountByColumn(ctx, "category_id")
	if err != nil {
		return Snapshot{}, err
	}
	byQueue, err := a.store.CountByColumn(ctx, "assigned_department_id")
	if err != nil {
		return Snapshot{}, err
	}
	byIssueType, err := a.store.CountByColumn(ctx, "issue_type")
	if err != nil {
		return Snapshot{}, err
	}

	resolutionHours, err := a.store.MeanResolutionHoursByCategory(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	trend, err := a.store.DailyTrend(ctx, time.Now().UTC(), 7)
	if err != nil {
		return Snapshot{}, err
	}

	var autoRate, clarificationRate, routingErrorRate float64
	if counts.Total > 0 {
		autoRate = float64(counts.AutoClosed) / float64(counts.Total)
		clarificationRate = float64(counts.NeedsClarification) / float64(counts.Total)
		routingErrorRate = float64(counts.RoutingErrors) / float64(counts.Total)
	}

	return Snapshot{
		Total:                         counts.Total,
		Closed:                        counts.Closed,
		AutoClosed:                    counts.AutoClosed,
		ByCategory:                    byCategory,
		ByQueue:                       byQueue,
		ByIssueType:                   byIssueType,
		MeanConfidence:                counts.MeanConfidence,
		AutoResolutionRate:            autoRate,
		NeedsClarificationRate:        clarificationRate,
		RoutingErrorRate:              routingErrorRate,
		CSAT:                          a.csat(autoRate),
		MeanResolutionHoursByCategory: resolutionHours,
		DailyTrend:                    trend,
	}, nil
}

// csat implements the §4.9 formula: a base score of 70, up to 20 points
// for the auto-resolution rate, and a speed bonus of 10 minus ten times
// the configured response-time constant, capped at 100. The speed bonus
// is a fixed linear term against that constant, not a ratio against the
// live average response time.
func (a *Aggregator) csat(autoRate float64) float64 {
	score := 70.0 + cap20(autoRate*20)
	score += cap10max0(10.0 - 10.0*a.cfg.CSATResponseTimeBonusSeconds)

	if score > 100 {
		score = 100
	}
	return score
}

func cap20(v float64) float64 {
	if v > 20 {
		return 20
	}
	return v
}

// cap10max0 mirrors the original's max(0, ...) floor on the speed bonus
// term before adding it to the score.
func cap10max0(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}
