package services

import "errors"

// Dashboard service errors. Returned errors also wrap an *errors.APIError
// so transports can render them without a mapping table.
var (
	ErrInvalidRange = errors.New("invalid date range")
	ErrInvalidDate  = errors.New("invalid date")
	ErrNoDataset    = errors.New("dataset not loaded")
)
