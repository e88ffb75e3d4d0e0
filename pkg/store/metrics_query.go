package store

import (
	"context"

	"github.com/5knew/deskcore/pkg/errs"
	"github.com/5knew/deskcore/pkg/models"
)

// TicketCounts are the raw tallies behind the C9 metrics snapshot.
type TicketCounts struct {
	Total              int
	Closed             int
	AutoClosed         int
	NeedsClarification int
	RoutingErrors      int
	MeanConfidence     float64
}

// CountTickets aggregates the whole-table counts and mean confidence
// used to derive every rate in the metrics snapshot.
func (s *Store) CountTickets(ctx context.Context) (TicketCounts, error) {
	var c TicketCounts
	err := s.db.QueryRowContext(ctx, `
		SELECT
			count(*),
			count(*) FILTER (WHERE status = $1),
			count(*) FILTER (WHERE status = $2),
			count(*) FILTER (WHERE needs_clarification),
			count(*) FILTER (WHERE needs_clarification OR ai_confidence < 0.70),
			coalesce(avg(ai_confidence), 0)
		FROM tickets`, models.StatusClosed, models.StatusAutoResolved,
	).Scan(&c.Total, &c.Closed, &c.AutoClosed, &c.NeedsClarification, &c.RoutingErrors, &c.MeanConfidence)
	if err != nil {
		return TicketCounts{}, errs.Wrap(errs.Unavailable, "count tickets", err)
	}
	return c, nil
}

// CountByColumn groups ticket counts by an allowed column name. The
// column is never caller-supplied free text; it is one of a fixed set
// of identifiers chosen by the metrics package, so string-building the
// query here carries no injection risk.
func (s *Store) CountByColumn(ctx context.Context, column string) (map[string]int, error) {
	switch column {
	case "category_id", "assigned_department_id", "priority", "issue_type", "status":
	default:
		return nil, errs.New(errs.Internal, "unsupported group-by column: "+column)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT coalesce(`+column+`::text, 'unassigned'), count(*) FROM tickets GROUP BY `+column)
	if err != nil {
		return nil, errs.Wrap(errs.Unavailable, "count tickets by "+column, err)
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return nil, errs.Wrap(errs.Internal, "scan group count", err)
		}
		out[key] = n
	}
	return out, nil
}

// MeanResolutionHoursByCategory returns the average wall-clock time
// from creation to close, in hours, for every category that has at
// least one closed or auto-resolved ticket.
func (s *Store) MeanResolutionHoursByCategory(ctx context.Context) (map[string]float64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT coalesce(c.name, 'Uncategorized'), avg(extract(epoch FROM t.closed_at - t.created_at)) / 3600.0
		FROM tickets t
		LEFT JOIN categories c ON c.id = t.category_id
		WHERE t.closed_at IS NOT NULL
		GROUP BY c.name`)
	if err != nil {
		return nil, errs.Wrap(errs.Unavailable, "mean resolution hours by category", err)
	}
	defer rows.Close()

	out := map[string]float64{}
	for rows.Next() {
		var name string
		var hours float64
		if err := rows.Scan(&name, &hours); err != nil {
			return nil, errs.Wrap(errs.Internal, "scan resolution hours", err)
		}
		out[name] = hours
	}
	return out, nil
}
