package api

import (
	"errors"
	"net/http"

	"gsm-dashboard/internal/directory"
	"gsm-dashboard/internal/prompt"
)

// statusFor maps domain errors to HTTP statuses. Anything else, including
// *directory.PersistError, came from the modem or the network.
func statusFor(err error) int {
	switch {
	case errors.Is(err, directory.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, directory.ErrContactNotFound), errors.Is(err, prompt.ErrUnknownRequest):
		return http.StatusNotFound
	case errors.Is(err, directory.ErrDuplicatePhone), errors.Is(err, directory.ErrNotConfirmed):
		return http.StatusConflict
	case errors.Is(err, directory.ErrNotLoaded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}
