package domain

import "errors"

var (
	ErrNotFound                = errors.New("resource not found")
	ErrUnauthorized            = errors.New("unauthorized")
	ErrForbidden               = errors.New("forbidden")
	ErrFileTooLarge            = errors.New("file exceeds maximum allowed size")
	ErrUnsupportedFormat       = errors.New("unsupported file format")
	ErrMalformedMapping        = errors.New("malformed mapping plan")
	ErrNoExtractableData       = errors.New("no extractable data found")
	ErrSessionExpired          = errors.New("parse session expired, re-preview the file")
	ErrSessionAlreadyConfirmed = errors.New("parse session already confirmed")
	ErrSessionNotConfirmed     = errors.New("parse session not confirmed yet")
	ErrTransientProvider       = errors.New("reasoning provider temporarily unavailable")
	ErrNonRecoverableProvider  = errors.New("reasoning provider rejected the request")
)
