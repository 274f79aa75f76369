package domain

import (
	"fmt"
	"time"
)

// Account is the aggregate for one user account. Its aggregate id is the
// owner id itself, so each owner has exactly one account stream.
type Account struct {
	AggregateBase
	OwnerID   string
	Email     string
	Closed    bool
	CreatedAt time.Time
}

// NewAccount creates an empty account aggregate for an owner.
func NewAccount(ownerID string) *Account {
	return &Account{
		AggregateBase: AggregateBase{ID: ownerID},
		OwnerID:       ownerID,
	}
}

// NewAccountFromEvents replays a stored history into an account.
func NewAccountFromEvents(ownerID string, events []Event) (*Account, error) {
	a := NewAccount(ownerID)
	for _, e := range events {
		if err := a.apply(e); err != nil {
			return nil, fmt.Errorf("failed to replay account %s: %w", ownerID, err)
		}
		a.record(e)
	}
	a.MarkCommitted()
	return a, nil
}

// Exists reports whether the account has been created.
func (a *Account) Exists() bool { return !a.CreatedAt.IsZero() }

// Create provisions the account. Valid only once per owner.
func (a *Account) Create(email string, at time.Time) error {
	if a.Exists() {
		return fmt.Errorf("account %s already exists", a.OwnerID)
	}
	return a.emit(AccountCreated{OwnerID: a.OwnerID, Email: email, CreatedAt: at})
}

// ChangeEmail updates the account email.
func (a *Account) ChangeEmail(email string, at time.Time) error {
	if !a.Exists() {
		return fmt.Errorf("account %s does not exist", a.OwnerID)
	}
	if email == a.Email {
		return nil
	}
	return a.emit(AccountEmailChanged{OwnerID: a.OwnerID, Email: email, ChangedAt: at})
}

// Close marks the account closed; the caller is expected to follow up by
// deleting the owner's streams.
func (a *Account) Close(at time.Time) error {
	if !a.Exists() || a.Closed {
		return fmt.Errorf("account %s cannot be closed", a.OwnerID)
	}
	return a.emit(AccountClosed{OwnerID: a.OwnerID, ClosedAt: at})
}

func (a *Account) emit(e Event) error {
	if err := a.apply(e); err != nil {
		return err
	}
	a.record(e)
	return nil
}

func (a *Account) apply(ev Event) error {
	switch e := ev.(type) {
	case AccountCreated:
		a.Email = e.Email
		a.CreatedAt = e.CreatedAt
	case AccountEmailChanged:
		a.Email = e.Email
	case AccountClosed:
		a.Closed = true
	default:
		return fmt.Errorf("unknown event type for Account: %s", ev.Kind())
	}
	return nil
}
