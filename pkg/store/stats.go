package store

import (
	"context"
	"time"

	"github.com/5knew/deskcore/pkg/errs"
)

// RefreshDailyStats recomputes the daily_stats row for asOf's calendar
// day (UTC) from the tickets created that day, and upserts it. Grounded
// on the original update_daily_stats batch job: a same-day rerun simply
// overwrites the row, so the daily snapshot job can rerun it safely.
func (s *Store) RefreshDailyStats(ctx context.Context, asOf time.Time) error {
	day := asOf.UTC().Truncate(24 * time.Hour)
	next := day.Add(24 * time.Hour)

	var totalTickets, autoResolved, misroutes int
	var aiAccuracy, avgResponseSec float64

	err := s.db.QueryRowContext(ctx, `
		SELECT
			count(*),
			count(*) FILTER (WHERE auto_resolved),
			count(*) FILTER (WHERE needs_clarification OR ai_confidence < 0.70),
			coalesce(avg(ai_confidence), 0)
		FROM tickets
		WHERE created_at >= $1 AND created_at < $2`, day, next,
	).Scan(&totalTickets, &autoResolved, &misroutes, &aiAccuracy)
	if err != nil {
		return errs.Wrap(errs.Unavailable, "aggregate daily ticket stats", err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT coalesce(avg(extract(epoch FROM first_reply.sent_at - t.created_at)), 0)
		FROM tickets t
		JOIN LATERAL (
			SELECT min(m.created_at) AS sent_at
			FROM ticket_messages m
			WHERE m.ticket_id = t.id AND m.sender_user_id <> t.author_user_id
		) first_reply ON first_reply.sent_at IS NOT NULL
		WHERE t.created_at >= $1 AND t.created_at < $2`, day, next,
	).Scan(&avgResponseSec)
	if err != nil {
		return errs.Wrap(errs.Unavailable, "aggregate daily response time", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO daily_stats (day, total_tickets, auto_resolved, ai_accuracy, misroutes, avg_response_time_sec)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (day) DO UPDATE SET
			total_tickets = excluded.total_tickets,
			auto_resolved = excluded.auto_resolved,
			ai_accuracy = excluded.ai_accuracy,
			misroutes = excluded.misroutes,
			avg_response_time_sec = excluded.avg_response_time_sec`,
		day, totalTickets, autoResolved, aiAccuracy, misroutes, avgResponseSec)
	if err != nil {
		return errs.Wrap(errs.Unavailable, "upsert daily_stats", err)
	}
	return nil
}

// DailyTrend returns the last n days of daily_stats, oldest first.
func (s *Store) DailyTrend(ctx context.Context, asOf time.Time, days int) ([]DailyStatRow, error) {
	since := asOf.UTC().Truncate(24 * time.Hour).AddDate(0, 0, -days+1)
	rows, err := s.db.QueryContext(ctx, `
		SELECT day, total_tickets, auto_resolved, ai_accuracy, misroutes, avg_response_time_sec
		FROM daily_stats WHERE day >= $1 ORDER BY day ASC`, since)
	if err != nil {
		return nil, errs.Wrap(errs.Unavailable, "list daily trend", err)
	}
	defer rows.Close()

	var out []DailyStatRow
	for rows.Next() {
		var r DailyStatRow
		if err := rows.Scan(&r.Day, &r.TotalTickets, &r.AutoResolved, &r.AIAccuracy, &r.Misroutes, &r.AvgResponseTimeSec); err != nil {
			return nil, errs.Wrap(errs.Internal, "scan daily stat", err)
		}
		out = append(out, r)
	}
	return out, nil
}

// DailyStatRow is one day's materialized trend snapshot.
type DailyStatRow struct {
	Day                time.Time
	TotalTickets       int
	AutoResolved       int
	AIAccuracy         float64
	Misroutes          int
	AvgResponseTimeSec float64
}
