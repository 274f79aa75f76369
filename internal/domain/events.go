package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event kind tags. These are the stable discriminators written to storage;
// keep them in sync with the codec registry and never reuse a retired tag.
const (
	KindStockPurchased EventKind = "stock.purchased"
	KindStockSold      EventKind = "stock.sold"
	KindStockNotesSet  EventKind = "stock.notes_set"

	KindOptionOpened   EventKind = "option.opened"
	KindOptionClosed   EventKind = "option.closed"
	KindOptionExpired  EventKind = "option.expired"
	KindOptionAssigned EventKind = "option.assigned"

	KindCryptoPurchased EventKind = "crypto.purchased"
	KindCryptoSold      EventKind = "crypto.sold"

	KindAlertCreated   EventKind = "alert.created"
	KindAlertTriggered EventKind = "alert.triggered"
	KindAlertCleared   EventKind = "alert.cleared"

	KindAccountCreated      EventKind = "account.created"
	KindAccountEmailChanged EventKind = "account.email_changed"
	KindAccountClosed       EventKind = "account.closed"
)

// --- Stock events ---

// StockPurchased is emitted when shares of a ticker are bought.
type StockPurchased struct {
	Ticker      string          `json:"ticker"`
	Shares      decimal.Decimal `json:"shares"`
	Price       decimal.Decimal `json:"price"`
	PurchasedAt time.Time       `json:"purchased_at"`
	Notes       string          `json:"notes,omitempty"`
}

func (e StockPurchased) Kind() EventKind     { return KindStockPurchased }
func (e StockPurchased) AggregateID() string { return e.Ticker }

// StockSold is emitted when shares of a ticker are sold.
type StockSold struct {
	Ticker string          `json:"ticker"`
	Shares decimal.Decimal `json:"shares"`
	Price  decimal.Decimal `json:"price"`
	SoldAt time.Time       `json:"sold_at"`
	Notes  string          `json:"notes,omitempty"`
}

func (e StockSold) Kind() EventKind     { return KindStockSold }
func (e StockSold) AggregateID() string { return e.Ticker }

// StockNotesSet replaces the free-form notes attached to a position.
type StockNotesSet struct {
	Ticker string `json:"ticker"`
	Notes  string `json:"notes"`
}

func (e StockNotesSet) Kind() EventKind     { return KindStockNotesSet }
func (e StockNotesSet) AggregateID() string { return e.Ticker }

// --- Option events ---

// OptionOpened is emitted when an option contract is bought or sold to open.
type OptionOpened struct {
	OptionID   string          `json:"option_id"`
	Ticker     string          `json:"ticker"`
	OptionType string          `json:"option_type"` // "call" or "put"
	Position   string          `json:"position"`    // "buy" or "sell"
	Strike     decimal.Decimal `json:"strike"`
	Premium    decimal.Decimal `json:"premium"`
	Contracts  int             `json:"contracts"`
	Expiration time.Time       `json:"expiration"`
	OpenedAt   time.Time       `json:"opened_at"`
}

func (e OptionOpened) Kind() EventKind     { return KindOptionOpened }
func (e OptionOpened) AggregateID() string { return e.OptionID }

// OptionClosed is emitted when the contract is closed before expiration.
type OptionClosed struct {
	OptionID string          `json:"option_id"`
	Premium  decimal.Decimal `json:"premium"`
	ClosedAt time.Time       `json:"closed_at"`
}

func (e OptionClosed) Kind() EventKind     { return KindOptionClosed }
func (e OptionClosed) AggregateID() string { return e.OptionID }

// OptionExpired is emitted when the contract expires worthless.
type OptionExpired struct {
	OptionID  string    `json:"option_id"`
	ExpiredAt time.Time `json:"expired_at"`
}

func (e OptionExpired) Kind() EventKind     { return KindOptionExpired }
func (e OptionExpired) AggregateID() string { return e.OptionID }

// OptionAssigned is emitted when the contract is exercised against the owner.
type OptionAssigned struct {
	OptionID   string    `json:"option_id"`
	AssignedAt time.Time `json:"assigned_at"`
}

func (e OptionAssigned) Kind() EventKind     { return KindOptionAssigned }
func (e OptionAssigned) AggregateID() string { return e.OptionID }

// --- Crypto events ---

// CryptoPurchased is emitted when a quantity of a token is bought.
type CryptoPurchased struct {
	Token        string          `json:"token"`
	Quantity     decimal.Decimal `json:"quantity"`
	DollarAmount decimal.Decimal `json:"dollar_amount"`
	PurchasedAt  time.Time       `json:"purchased_at"`
}

func (e CryptoPurchased) Kind() EventKind     { return KindCryptoPurchased }
func (e CryptoPurchased) AggregateID() string { return e.Token }

// CryptoSold is emitted when a quantity of a token is sold.
type CryptoSold struct {
	Token        string          `json:"token"`
	Quantity     decimal.Decimal `json:"quantity"`
	DollarAmount decimal.Decimal `json:"dollar_amount"`
	SoldAt       time.Time       `json:"sold_at"`
}

func (e CryptoSold) Kind() EventKind     { return KindCryptoSold }
func (e CryptoSold) AggregateID() string { return e.Token }

// --- Alert events ---

// AlertCreated is emitted when a price alert is armed for a ticker.
type AlertCreated struct {
	AlertID   string          `json:"alert_id"`
	Ticker    string          `json:"ticker"`
	Threshold decimal.Decimal `json:"threshold"`
	Direction string          `json:"direction"` // "above" or "below"
	CreatedAt time.Time       `json:"created_at"`
}

func (e AlertCreated) Kind() EventKind     { return KindAlertCreated }
func (e AlertCreated) AggregateID() string { return e.AlertID }

// AlertTriggered is emitted when the watched price crosses the threshold.
type AlertTriggered struct {
	AlertID     string          `json:"alert_id"`
	Price       decimal.Decimal `json:"price"`
	TriggeredAt time.Time       `json:"triggered_at"`
}

func (e AlertTriggered) Kind() EventKind     { return KindAlertTriggered }
func (e AlertTriggered) AggregateID() string { return e.AlertID }

// AlertCleared re-arms a triggered alert.
type AlertCleared struct {
	AlertID   string    `json:"alert_id"`
	ClearedAt time.Time `json:"cleared_at"`
}

func (e AlertCleared) Kind() EventKind     { return KindAlertCleared }
func (e AlertCleared) AggregateID() string { return e.AlertID }

// --- Account events ---

// AccountCreated is emitted when a user account is provisioned.
type AccountCreated struct {
	OwnerID   string    `json:"owner_id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func (e AccountCreated) Kind() EventKind     { return KindAccountCreated }
func (e AccountCreated) AggregateID() string { return e.OwnerID }

// AccountEmailChanged is emitted when the account email is updated.
type AccountEmailChanged struct {
	OwnerID   string    `json:"owner_id"`
	Email     string    `json:"email"`
	ChangedAt time.Time `json:"changed_at"`
}

func (e AccountEmailChanged) Kind() EventKind     { return KindAccountEmailChanged }
func (e AccountEmailChanged) AggregateID() string { return e.OwnerID }

// AccountClosed is emitted when the user closes their account.
type AccountClosed struct {
	OwnerID  string    `json:"owner_id"`
	ClosedAt time.Time `json:"closed_at"`
}

func (e AccountClosed) Kind() EventKind     { return KindAccountClosed }
func (e AccountClosed) AggregateID() string { return e.OwnerID }
