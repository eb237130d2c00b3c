package domain

import "errors"

var (
	ErrNoSession = errors.New("no voting session for request")
)
