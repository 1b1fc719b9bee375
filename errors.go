package texter

import "errors"

// Kind classifies an operation failure for the presentation layer.
type Kind int

const (
	KindValidation Kind = iota // empty or malformed input, caught before any remote call
	KindConflict               // duplicate number or duplicate chat
	KindNotFound               // unknown user, update without a session
	KindAuth                   // bad credentials or provider-side auth failure
	KindTransport              // any other remote-call failure
)

// Error is the single error type the client returns. Msg is the
// human-readable string that also goes into the notification relay.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf reports the classification of err. ok is false for errors that did
// not originate from this client.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

func validationErr(msg string) *Error {
	return &Error{Kind: KindValidation, Msg: msg}
}

func conflictErr(msg string) *Error {
	return &Error{Kind: KindConflict, Msg: msg}
}

func notFoundErr(msg string) *Error {
	return &Error{Kind: KindNotFound, Msg: msg}
}

func authErr(msg string, err error) *Error {
	return &Error{Kind: KindAuth, Msg: msg, Err: err}
}

func transportErr(msg string, err error) *Error {
	return &Error{Kind: KindTransport, Msg: msg, Err: err}
}
