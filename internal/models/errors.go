package models

import "errors"

var (
	ErrSourceUnavailable     = errors.New("data source unavailable")
	ErrOutOfOrderObservation = errors.New("out of order observation")
	ErrInvalidObservation    = errors.New("invalid observation")
	ErrInvalidSettings       = errors.New("invalid settings")
	ErrNotFound              = errors.New("instrument not found")
	ErrInvalidSymbol         = errors.New("invalid symbol")
)
