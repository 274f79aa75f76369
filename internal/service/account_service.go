package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/foliotrack/backend/internal/domain"
	"github.com/foliotrack/backend/internal/repository"
	"github.com/foliotrack/backend/internal/storage"
)

// AccountService orchestrates account lifecycle commands.
type AccountService struct {
	accounts *repository.AccountStorage
}

func NewAccountService(accounts *repository.AccountStorage) *AccountService {
	return &AccountService{accounts: accounts}
}

// CreateAccount provisions an account for the owner. Idempotent: an
// existing account is returned as-is.
func (s *AccountService) CreateAccount(ctx context.Context, ownerID, email string) (*domain.Account, error) {
	existing, err := s.accounts.GetAccount(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	a := domain.NewAccount(ownerID)
	if err := a.Create(email, time.Now().UTC()); err != nil {
		return nil, err
	}
	if err := s.accounts.Save(ctx, a, ownerID); err != nil {
		return nil, err
	}
	slog.Info("Account created", "owner", ownerID)
	return a, nil
}

// GetAccount returns the owner's account, or ErrNotFound.
func (s *AccountService) GetAccount(ctx context.Context, ownerID string) (*domain.Account, error) {
	a, err := s.accounts.GetAccount(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, fmt.Errorf("%w: account %s", storage.ErrNotFound, ownerID)
	}
	return a, nil
}

// ChangeEmail updates the account email.
func (s *AccountService) ChangeEmail(ctx context.Context, ownerID, email string) (*domain.Account, error) {
	var account *domain.Account
	err := withConflictRetry(func() error {
		a, err := s.accounts.GetAccount(ctx, ownerID)
		if err != nil {
			return err
		}
		if a == nil {
			return fmt.Errorf("%w: account %s", storage.ErrNotFound, ownerID)
		}
		if err := a.ChangeEmail(email, time.Now().UTC()); err != nil {
			return err
		}
		if err := s.accounts.Save(ctx, a, ownerID); err != nil {
			return err
		}
		account = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// RecordLogin appends an entry to the owner's login log.
func (s *AccountService) RecordLogin(ctx context.Context, ownerID, ip, userAgent string) error {
	return s.accounts.RecordLogin(ctx, ownerID, repository.LoginRecord{
		At:        time.Now().UTC(),
		IP:        ip,
		UserAgent: userAgent,
	})
}

// RecentLogins returns up to limit most-recent login entries.
func (s *AccountService) RecentLogins(ctx context.Context, ownerID string, limit int64) ([]repository.LoginRecord, error) {
	return s.accounts.RecentLogins(ctx, ownerID, limit)
}

// DeleteAccount closes the account, then deletes every stream the owner
// has. The closed event is saved first so downstream consumers observe the
// closure before the history disappears.
func (s *AccountService) DeleteAccount(ctx context.Context, ownerID string) error {
	a, err := s.accounts.GetAccount(ctx, ownerID)
	if err != nil {
		return err
	}
	if a == nil {
		return fmt.Errorf("%w: account %s", storage.ErrNotFound, ownerID)
	}
	if !a.Closed {
		if err := a.Close(time.Now().UTC()); err != nil {
			return err
		}
		if err := s.accounts.Save(ctx, a, ownerID); err != nil {
			return err
		}
	}
	if err := s.accounts.Delete(ctx, ownerID); err != nil {
		return err
	}
	slog.Info("Account deleted", "owner", ownerID)
	return nil
}
