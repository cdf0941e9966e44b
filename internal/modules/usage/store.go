package usage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store handles ai_usage persistence.
type Store struct {
	db      *pgxpool.Pool
	monthly int
	now     func() time.Time
}

func NewStore(db *pgxpool.Pool, monthly int) *Store {
	if monthly <= 0 {
		monthly = DefaultMonthlyTokens
	}
	return &Store{db: db, monthly: monthly, now: time.Now}
}

// UseToken atomically checks the monthly quota and deducts one token,
// resetting the counter when last_reset_month is behind the current month.
// Zero affected rows (exhausted or absent) yields ErrInsufficientTokens.
func (s *Store) UseToken(ctx context.Context, uid string) error {
	month := s.now().UTC().Format(monthLayout)

	tag, err := s.db.Exec(ctx, `
		UPDATE ai_usage SET
			tokens_remaining = CASE WHEN last_reset_month != $1 THEN $2 - 1 ELSE tokens_remaining - 1 END,
			last_reset_month = $1
		WHERE uid = $3 AND (last_reset_month < $1 OR tokens_remaining > 0)
	`, month, s.monthly, uid)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInsufficientTokens
	}
	return nil
}

// EnsureUser inserts a row with the full allowance; existing rows are left alone.
func (s *Store) EnsureUser(ctx context.Context, uid string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO ai_usage (uid, tokens_remaining, last_reset_month)
		VALUES ($1, $2, $3)
		ON CONFLICT (uid) DO NOTHING
	`, uid, s.monthly, s.now().UTC().Format(monthLayout))
	return err
}

// Refund returns one token spent this month. It never raises the balance
// above the monthly allowance and leaves rows from earlier months alone.
func (s *Store) Refund(ctx context.Context, uid string) error {
	_, err := s.db.Exec(ctx, `
		UPDATE ai_usage SET tokens_remaining = LEAST(tokens_remaining + 1, $2)
		WHERE uid = $3 AND last_reset_month = $1
	`, s.now().UTC().Format(monthLayout), s.monthly, uid)
	return err
}
