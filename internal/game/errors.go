package game

import (
	"errors"
	"fmt"

	"github.com/leaderbattle/battle-server-go/internal/game/catalog"
)

// ErrorKind classifies rejected actions.
type ErrorKind string

const (
	KindInvalidAction    ErrorKind = "InvalidAction"
	KindIllegalPlacement ErrorKind = "IllegalPlacement"
	KindOutOfTurn        ErrorKind = "OutOfTurn"
	KindCardNotFound     ErrorKind = "CardNotFound"
)

// ActionError is returned for every rejected engine call. The match state passed in is
// left untouched whenever one is returned.
type ActionError struct {
	Kind    ErrorKind
	Reason  string
	Details map[string]string
	Err     error
}

func (e *ActionError) Error() string {
	if e.Reason == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

// Is matches sentinels of the same kind, so errors.Is(err, ErrIllegalPlacement) works.
func (e *ActionError) Is(target error) bool {
	t, ok := target.(*ActionError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Reason == "" || t.Reason == e.Reason)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

// Sentinels for errors.Is.
var (
	ErrInvalidAction    = &ActionError{Kind: KindInvalidAction}
	ErrIllegalPlacement = &ActionError{Kind: KindIllegalPlacement}
	ErrOutOfTurn        = &ActionError{Kind: KindOutOfTurn}
	ErrCardNotFound     = &ActionError{Kind: KindCardNotFound}
)

func invalidAction(format string, args ...interface{}) *ActionError {
	return &ActionError{Kind: KindInvalidAction, Reason: fmt.Sprintf(format, args...)}
}

func outOfTurn(format string, args ...interface{}) *ActionError {
	return &ActionError{Kind: KindOutOfTurn, Reason: fmt.Sprintf(format, args...)}
}

func illegalPlacement(reason string, details map[string]string) *ActionError {
	return &ActionError{Kind: KindIllegalPlacement, Reason: reason, Details: details}
}

// asActionError translates internal failures into the boundary error shape.
func asActionError(err error) error {
	if err == nil {
		return nil
	}
	var ae *ActionError
	if errors.As(err, &ae) {
		return ae
	}
	if errors.Is(err, catalog.ErrCardNotFound) || errors.Is(err, catalog.ErrLeaderNotFound) {
		return &ActionError{Kind: KindCardNotFound, Reason: err.Error(), Err: err}
	}
	return &ActionError{Kind: KindInvalidAction, Reason: err.Error(), Err: err}
}

// KindOf returns the kind of an engine error, or "" for other errors.
func KindOf(err error) ErrorKind {
	var ae *ActionError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}
