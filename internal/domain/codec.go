package domain

import (
	"encoding/json"
	"fmt"
)

// SerializationError reports a stored payload that could not be decoded to
// its declared event kind. It always surfaces loudly: an undecodable event
// means unreadable history, never something to skip over.
type SerializationError struct {
	Kind EventKind
	Err  error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("cannot decode event %q: %v", e.Kind, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

func decodeInto[T Event](payload []byte) (Event, error) {
	var e T
	if err := json.Unmarshal(payload, &e); err != nil {
		return nil, err
	}
	return e, nil
}

// eventFactories maps each stable kind tag to its concrete decoder. Adding
// an event means adding exactly one row here.
var eventFactories = map[EventKind]func([]byte) (Event, error){
	KindStockPurchased: decodeInto[StockPurchased],
	KindStockSold:      decodeInto[StockSold],
	KindStockNotesSet:  decodeInto[StockNotesSet],

	KindOptionOpened:   decodeInto[OptionOpened],
	KindOptionClosed:   decodeInto[OptionClosed],
	KindOptionExpired:  decodeInto[OptionExpired],
	KindOptionAssigned: decodeInto[OptionAssigned],

	KindCryptoPurchased: decodeInto[CryptoPurchased],
	KindCryptoSold:      decodeInto[CryptoSold],

	KindAlertCreated:   decodeInto[AlertCreated],
	KindAlertTriggered: decodeInto[AlertTriggered],
	KindAlertCleared:   decodeInto[AlertCleared],

	KindAccountCreated:      decodeInto[AccountCreated],
	KindAccountEmailChanged: decodeInto[AccountEmailChanged],
	KindAccountClosed:       decodeInto[AccountClosed],
}

// legacyKinds rewrites tags that older deployments wrote before the tag set
// was frozen. Rows are only ever added, never removed: dropping one makes
// the streams it covers unreadable.
var legacyKinds = map[EventKind]EventKind{
	"StockPurchased": KindStockPurchased,
	"StockSold":      KindStockSold,
	"OptionSold":     KindOptionOpened,
	"OptionClosed":   KindOptionClosed,
	"AlertCreated":   KindAlertCreated,
}

// CanonicalKind resolves a possibly-legacy tag to its current form.
func CanonicalKind(kind EventKind) EventKind {
	if canon, ok := legacyKinds[kind]; ok {
		return canon
	}
	return kind
}

// DecodeEvent deserializes a stored payload into its concrete event type.
// Legacy tags are rewritten before lookup, so streams written under retired
// names replay the same as current ones.
func DecodeEvent(kind EventKind, payload []byte) (Event, error) {
	canon := CanonicalKind(kind)
	factory, ok := eventFactories[canon]
	if !ok {
		return nil, &SerializationError{Kind: kind, Err: fmt.Errorf("unknown event kind")}
	}
	ev, err := factory(payload)
	if err != nil {
		return nil, &SerializationError{Kind: canon, Err: err}
	}
	return ev, nil
}

// EncodeEvent serializes an event payload for storage.
func EncodeEvent(ev Event) ([]byte, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, &SerializationError{Kind: ev.Kind(), Err: err}
	}
	return payload, nil
}
