// internal/services/errors.go
package services

import "errors"

// Soft lookup misses: the surrounding processing still succeeds, callers
// decide whether to surface them.
var (
	ErrAffiliateNotFound  = errors.New("affiliate not found")
	ErrOrderNotFound      = errors.New("order not found")
	ErrProductNotFound    = errors.New("product not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
)
