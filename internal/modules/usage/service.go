// README: Completion quota; one token per grounded answer, reset monthly, backed by Postgres.
package usage

import (
	"context"
	"errors"
)

type Service struct {
	store *Store
}

func NewService(store *Store) *Service {
	return &Service{store: store}
}

// UseToken deducts one token from the identity's monthly allowance,
// creating its row on first use.
func (s *Service) UseToken(ctx context.Context, uid string) error {
	err := s.store.UseToken(ctx, uid)
	if !errors.Is(err, ErrInsufficientTokens) {
		return err
	}

	// Row may be missing: create it, then retry the deduction once.
	if initErr := s.store.EnsureUser(ctx, uid); initErr != nil {
		return initErr
	}
	return s.store.UseToken(ctx, uid)
}

// Refund gives back a token whose completion never produced an answer.
func (s *Service) Refund(ctx context.Context, uid string) error {
	return s.store.Refund(ctx, uid)
}
