package decisionlog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/serroba/message-ratelimiter/internal/events"
)

const schema = `
	CREATE TABLE IF NOT EXISTS message_decisions (
		id            TEXT PRIMARY KEY,
		account_id    TEXT        NOT NULL,
		phone         TEXT        NOT NULL,
		account_count INTEGER     NOT NULL,
		phone_count   INTEGER     NOT NULL,
		accepted      BOOLEAN     NOT NULL,
		reason        TEXT        NOT NULL DEFAULT '',
		decided_at    TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS message_decisions_account_idx
		ON message_decisions (account_id, decided_at DESC);
`

// PostgresStore is a PostgreSQL implementation of Store.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed decision store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the decision table if it does not exist.
func (p *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure decision schema: %w", err)
	}

	return nil
}

// SaveDecision inserts event. Redelivered events are ignored.
func (p *PostgresStore) SaveDecision(ctx context.Context, event *events.DecisionEvent) error {
	query := `
		INSERT INTO message_decisions
			(id, account_id, phone, account_count, phone_count, accepted, reason, decided_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := p.pool.Exec(ctx, query,
		event.ID,
		event.AccountID,
		event.Phone,
		event.AccountMessageCount,
		event.PhoneMessageCount,
		event.Accepted,
		event.Reason,
		event.DecidedAt,
	)
	if err != nil {
		return fmt.Errorf("save decision %s: %w", event.ID, err)
	}

	return nil
}

// ListByAccount returns the most recent decisions for accountID, newest first.
func (p *PostgresStore) ListByAccount(ctx context.Context, accountID string, limit int) ([]events.DecisionEvent, error) {
	query := `
		SELECT id, account_id, phone, account_count, phone_count, accepted, reason, decided_at
		FROM message_decisions
		WHERE account_id = $1
		ORDER BY decided_at DESC
		LIMIT $2
	`

	rows, err := p.pool.Query(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("list decisions for account %s: %w", accountID, err)
	}

	decisions, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (events.DecisionEvent, error) {
		var event events.DecisionEvent

		err := row.Scan(
			&event.ID,
			&event.AccountID,
			&event.Phone,
			&event.AccountMessageCount,
			&event.PhoneMessageCount,
			&event.Accepted,
			&event.Reason,
			&event.DecidedAt,
		)

		return event, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan decisions for account %s: %w", accountID, err)
	}

	return decisions, nil
}

// Compile-time checks.
var (
	_ Store = (*PostgresStore)(nil)
	_ Store = (*Noop)(nil)
)
