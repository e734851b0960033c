package game

import (
	"errors"
	"fmt"
)

// Error is a coded engine error. Sentinels below are matched by Code, so a
// sentinel with a cause attached still satisfies errors.Is.
type Error struct {
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func (e *Error) Is(target error) bool {
	var t *Error
	return errors.As(target, &t) && t.Code == e.Code
}

// WithCause returns a copy of e carrying cause.
func (e *Error) WithCause(cause error) *Error {
	return &Error{Code: e.Code, Message: e.Message, Cause: cause}
}

func newError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

var (
	ErrInvalidState      = newError("INVALID_STATE", "engine state is inconsistent")
	ErrInvalidConfig     = newError("INVALID_CONFIG", "invalid engine configuration")
	ErrGameFinished      = newError("GAME_FINISHED", "game is already finished")
	ErrUnknownAbility    = newError("UNKNOWN_ABILITY", "unknown ability")
	ErrAbilityNoEffect   = newError("ABILITY_NO_EFFECT", "ability has nothing to act on")
	ErrUnknownDifficulty = newError("UNKNOWN_DIFFICULTY", "unknown difficulty")
)

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
