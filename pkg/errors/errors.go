package errors

import (
	goerrors "errors"
	"fmt"
)

// contextError wraps an error with a short description of what was being
// attempted when it occurred.
type contextError struct {
	context string
	cause   error
}

// WithContext annotates err with the given context. The context should read
// like a verb phrase, e.g. "open source".
func WithContext(err error, context string) error {
	if err == nil {
		return nil
	}
	return contextError{context: context, cause: err}
}

func (err contextError) Error() string {
	return fmt.Sprintf("%s: %s", err.context, err.cause)
}

func (err contextError) Unwrap() error {
	return err.cause
}

// RootCause returns the error at the bottom of a chain of WithContext calls.
func RootCause(err error) error {
	for {
		ctxErr, ok := err.(contextError)
		if !ok {
			return err
		}
		err = ctxErr.cause
	}
}

// New creates a new error with the formatted message.
func New(format string, args ...interface{}) error {
	if len(args) == 0 {
		return goerrors.New(format)
	}
	return fmt.Errorf(format, args...)
}

// Is and As are re-exported so that callers don't have to import both this
// package and the standard library.
var (
	Is = goerrors.Is
	As = goerrors.As
)

// FriendlyError is an error whose message is meant to be shown to the user
// as is, without any of the wrapping context.
type FriendlyError struct {
	template string
	args     []interface{}
}

// NewFriendlyError creates a FriendlyError from a format string.
func NewFriendlyError(template string, args ...interface{}) error {
	return FriendlyError{template: template, args: args}
}

func (err FriendlyError) Error() string {
	return err.FriendlyMessage()
}

// FriendlyMessage returns the message to show to the user.
func (err FriendlyError) FriendlyMessage() string {
	return fmt.Sprintf(err.template, err.args...)
}

// Friendly is implemented by errors that can be shown directly to the user.
type Friendly interface {
	FriendlyMessage() string
}

// GetFriendlyMessage returns the user-facing message for err, if any error
// in its chain provides one.
func GetFriendlyMessage(err error) (string, bool) {
	var friendly Friendly
	if goerrors.As(err, &friendly) {
		return friendly.FriendlyMessage(), true
	}
	return "", false
}
