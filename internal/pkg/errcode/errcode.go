package errcode

const (
	ErrUnknown = 10000000 + iota
	ErrUnauthorized
	ErrForbidden
	ErrNotFound
	ErrInvalid
	ErrInternal
	ErrInvalidFile
	ErrUploadFailed
	ErrIngestFailed
	ErrAIUnavailable
	ErrTooMany
	ErrTooLarge
)
