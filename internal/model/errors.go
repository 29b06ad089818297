package model

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrUnsupported      = errors.New("unsupported")
	ErrInvalidArgument  = errors.New("invalid argument")
)
