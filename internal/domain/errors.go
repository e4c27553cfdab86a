package domain

import "errors"

var (
	ErrNotFound              = errors.New("resource not found")
	ErrValidation            = errors.New("validation failed")
	ErrConflict              = errors.New("conflict")
	ErrDonorNotAvailable     = errors.New("donor not available")
	ErrRequestExpired        = errors.New("request expired")
	ErrInvalidDonationStatus = errors.New("invalid donation status")
	ErrUpstream              = errors.New("upstream failure")
)
