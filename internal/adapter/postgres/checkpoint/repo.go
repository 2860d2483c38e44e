// Package checkpoint implements the card checkpoint cache using PostgreSQL.
// A checkpoint is never a source of truth: every row here can be rebuilt by
// replaying the card's review events, and settings changes drop the table.
package checkpoint

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/heartwood-labs/lexicard-backend/internal/adapter/postgres"
	"github.com/heartwood-labs/lexicard-backend/internal/domain"
)

// Repo provides checkpoint persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new checkpoint repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Get returns the checkpoint of a card.
// Returns domain.ErrNotFound when none is cached.
func (r *Repo) Get(ctx context.Context, cardID string) (domain.CardCheckpoint, error) {
	query, args, err := psql.Select("card_id", "checkpoint_at", "event_count", "state").
		From("card_checkpoints").
		Where(sq.Eq{"card_id": cardID}).
		ToSql()
	if err != nil {
		return domain.CardCheckpoint{}, fmt.Errorf("build select checkpoint: %w", err)
	}

	var (
		cp    domain.CardCheckpoint
		state []byte
	)
	row := postgres.QuerierFromCtx(ctx, r.pool).QueryRow(ctx, query, args...)
	if err := row.Scan(&cp.CardID, &cp.CheckpointAt, &cp.EventCount, &state); err != nil {
		return domain.CardCheckpoint{}, postgres.MapError(err, "checkpoint", cardID)
	}
	cp.CheckpointAt = cp.CheckpointAt.UTC()

	cp.State, err = domain.DecodeCardState(state)
	if err != nil {
		return domain.CardCheckpoint{}, fmt.Errorf("checkpoint %s: %w", cardID, err)
	}

	return cp, nil
}

// Upsert stores a checkpoint, replacing any previous one for the card.
func (r *Repo) Upsert(ctx context.Context, cp domain.CardCheckpoint) error {
	state, err := domain.EncodeCardState(cp.State)
	if err != nil {
		return fmt.Errorf("checkpoint %s: encode state: %w", cp.CardID, err)
	}

	query, args, err := psql.Insert("card_checkpoints").
		Columns("card_id", "checkpoint_at", "event_count", "state").
		Values(cp.CardID, cp.CheckpointAt.UTC(), cp.EventCount, state).
		Suffix(`ON CONFLICT (card_id) DO UPDATE
			SET checkpoint_at = EXCLUDED.checkpoint_at,
			    event_count = EXCLUDED.event_count,
			    state = EXCLUDED.state`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert checkpoint: %w", err)
	}

	if _, err := postgres.QuerierFromCtx(ctx, r.pool).Exec(ctx, query, args...); err != nil {
		return postgres.MapError(err, "checkpoint", cp.CardID)
	}

	return nil
}

// Delete removes the checkpoint of a card. Missing rows are not an error:
// deleting a checkpoint that never existed leaves the same end state.
func (r *Repo) Delete(ctx context.Context, cardID string) error {
	query, args, err := psql.Delete("card_checkpoints").
		Where(sq.Eq{"card_id": cardID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete checkpoint: %w", err)
	}

	if _, err := postgres.QuerierFromCtx(ctx, r.pool).Exec(ctx, query, args...); err != nil {
		return postgres.MapError(err, "checkpoint", cardID)
	}

	return nil
}

// DeleteAll drops every cached checkpoint. Run when the FSRS weights or the
// requested retention change, since cached states are then derived under
// settings that no longer apply.
func (r *Repo) DeleteAll(ctx context.Context) (int64, error) {
	tag, err := postgres.QuerierFromCtx(ctx, r.pool).Exec(ctx, "DELETE FROM card_checkpoints")
	if err != nil {
		return 0, fmt.Errorf("delete all checkpoints: %w", err)
	}
	return tag.RowsAffected(), nil
}
