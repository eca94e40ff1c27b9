// Package validation provides common validation utilities for configuration
// parameters across the gopool packages.
//
// Every helper returns a *errors.ValidationError, so callers can test for
// errors.ErrInvalidConfiguration with errors.Is regardless of which check failed.
package validation
