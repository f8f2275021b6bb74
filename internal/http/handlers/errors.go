package handlers

import (
	"errors"
	"net/http"

	"github.com/MartonCsizmazia/order-processing-system/internal/domain/model"
	"github.com/MartonCsizmazia/order-processing-system/internal/http/lib/api/response"
)

// respondError maps domain errors to HTTP statuses: validation 400,
// not found 404, state conflicts 409, everything else 500.
func respondError(w http.ResponseWriter, err error) {
	var validationErr *model.ValidationError
	var transitionErr *model.InvalidTransitionError

	switch {
	case errors.As(err, &validationErr):
		response.BadRequest(w, validationErr.Error())
	case errors.Is(err, model.ErrOrderNotFound), errors.Is(err, model.ErrSagaNotFound):
		response.NotFound(w, "order not found")
	case errors.Is(err, model.ErrOrderCompleted):
		response.Conflict(w, err.Error())
	case errors.As(err, &transitionErr):
		response.Conflict(w, transitionErr.Error())
	default:
		response.InternalError(w)
	}
}
