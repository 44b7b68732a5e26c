package errors

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrInvalid       = errors.New("invalid")
	ErrInternal      = errors.New("internal")
	ErrProvider      = errors.New("provider unavailable")
	ErrConfiguration = errors.New("configuration error")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsInvalid(err error) bool {
	return errors.Is(err, ErrInvalid)
}

func IsProvider(err error) bool {
	return errors.Is(err, ErrProvider)
}

func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}
