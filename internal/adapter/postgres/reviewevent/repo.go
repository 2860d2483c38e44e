// Package reviewevent implements the append-only review event store using
// PostgreSQL. Events are immutable; Create is idempotent on the event id so
// a two-way sync that offers the same event twice is a no-op.
package reviewevent

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/heartwood-labs/lexicard-backend/internal/adapter/postgres"
	"github.com/heartwood-labs/lexicard-backend/internal/domain"
)

// Repo provides review event persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new review event repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Create appends an event to the log. Inserting an id that already exists is
// a no-op; the return value reports whether a row was actually written.
func (r *Repo) Create(ctx context.Context, e domain.ReviewEvent) (bool, error) {
	if err := e.Validate(); err != nil {
		return false, err
	}

	query, args, err := psql.Insert("review_events").
		Columns("id", "card_id", "rating", "reviewed_at").
		Values(e.ID, e.CardID, int(e.Rating), e.ReviewedAt.UTC()).
		Suffix("ON CONFLICT (id) DO NOTHING").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build insert review_event: %w", err)
	}

	tag, err := postgres.QuerierFromCtx(ctx, r.pool).Exec(ctx, query, args...)
	if err != nil {
		return false, postgres.MapError(err, "review_event", e.ID)
	}

	return tag.RowsAffected() > 0, nil
}

// ListByCardID returns every event of a card in replay order
// (reviewed_at ascending, ties by id).
func (r *Repo) ListByCardID(ctx context.Context, cardID string) ([]domain.ReviewEvent, error) {
	return r.list(ctx, cardID, nil)
}

// ListByCardIDAfter returns the events of a card strictly after the given
// timestamp, in replay order. Used for checkpoint fast-forward.
func (r *Repo) ListByCardIDAfter(ctx context.Context, cardID string, after time.Time) ([]domain.ReviewEvent, error) {
	return r.list(ctx, cardID, &after)
}

func (r *Repo) list(ctx context.Context, cardID string, after *time.Time) ([]domain.ReviewEvent, error) {
	b := psql.Select("id", "card_id", "rating", "reviewed_at").
		From("review_events").
		Where(sq.Eq{"card_id": cardID}).
		OrderBy("reviewed_at ASC", "id ASC")
	if after != nil {
		b = b.Where(sq.Gt{"reviewed_at": after.UTC()})
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select review_events: %w", err)
	}

	rows, err := postgres.QuerierFromCtx(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, postgres.MapError(err, "review_events", cardID)
	}
	defer rows.Close()

	events := []domain.ReviewEvent{}
	for rows.Next() {
		var (
			e      domain.ReviewEvent
			rating int
		)
		if err := rows.Scan(&e.ID, &e.CardID, &rating, &e.ReviewedAt); err != nil {
			return nil, fmt.Errorf("scan review_event: %w", err)
		}
		e.Rating = domain.Rating(rating)
		e.ReviewedAt = e.ReviewedAt.UTC()
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review_events: %w", err)
	}

	return events, nil
}

// LatestReviewedAt returns the newest event timestamp of a card, or nil when
// the card has no events.
func (r *Repo) LatestReviewedAt(ctx context.Context, cardID string) (*time.Time, error) {
	query, args, err := psql.Select("max(reviewed_at)").
		From("review_events").
		Where(sq.Eq{"card_id": cardID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select max reviewed_at: %w", err)
	}

	var latest *time.Time
	if err := postgres.QuerierFromCtx(ctx, r.pool).QueryRow(ctx, query, args...).Scan(&latest); err != nil {
		return nil, postgres.MapError(err, "review_events", cardID)
	}
	if latest != nil {
		t := latest.UTC()
		latest = &t
	}

	return latest, nil
}

// CountByCardID returns the number of events recorded for a card.
func (r *Repo) CountByCardID(ctx context.Context, cardID string) (int, error) {
	query, args, err := psql.Select("count(*)").
		From("review_events").
		Where(sq.Eq{"card_id": cardID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count review_events: %w", err)
	}

	var count int
	if err := postgres.QuerierFromCtx(ctx, r.pool).QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, postgres.MapError(err, "review_events", cardID)
	}

	return count, nil
}

// ListCardIDs returns the distinct card ids present in the event log.
func (r *Repo) ListCardIDs(ctx context.Context) ([]string, error) {
	query, args, err := psql.Select("DISTINCT card_id").
		From("review_events").
		OrderBy("card_id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select card ids: %w", err)
	}

	rows, err := postgres.QuerierFromCtx(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list card ids: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan card id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate card ids: %w", err)
	}

	return ids, nil
}
