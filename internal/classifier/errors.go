package classifier

import (
	"errors"
	"fmt"
)

// ErrUnavailable matches every *Error. A classifier that is unreachable, misbehaving or switched off is
// unavailable; it never produces a verdict.
var ErrUnavailable = errors.New("classifier unavailable")

// Kind identifies how a classification call failed.
type Kind string

const (
	KindTransport    Kind = "transport"
	KindStatus       Kind = "status"
	KindEmptyContent Kind = "empty_content"
	KindDecode       Kind = "decode"
	KindDisabled     Kind = "disabled"
)

// Error is a classification failure. Err and Body may contain upstream detail and must only be logged.
type Error struct {
	Kind       Kind
	StatusCode int
	Body       string
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("classifier %s: status %d", e.Kind, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("classifier %s: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("classifier %s", e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == ErrUnavailable }

// KindOf returns the failure kind of err, or an empty Kind when err is not a classifier error.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}
