// Package store holds what the memory and postgres implementations share.
package store

import (
	"errors"

	dErrors "domainflow/pkg/domain-errors"
	"domainflow/pkg/platform/sentinel"
)

// Translate maps an infrastructure sentinel to a coded domain error, naming
// the record kind in the message. Unknown errors become internal.
func Translate(err error, what string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, what+" not found")
	case errors.Is(err, sentinel.ErrStaleVersion):
		return dErrors.Wrap(err, dErrors.CodeConflict, what+" was modified concurrently, retry")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, what+" already exists")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, what+" temporarily unavailable")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "store failure on "+what)
	}
}
