package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidImage        = errors.New("invalid image")
	ErrUnsupportedCategory = errors.New("category not supported for try-on")
	ErrNoModelSelected     = errors.New("no base model selected")
	ErrProviderFailure     = errors.New("provider failure")
)
