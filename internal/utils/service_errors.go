package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"hiv-clinic-server/internal/services"
)

// ServiceError maps a typed domain error onto the HTTP response it
// deserves. Every handler funnels service-layer failures through here so
// the taxonomy stays consistent across the API.
func ServiceError(c *gin.Context, err error) {
	var (
		validationErr  *services.ValidationError
		transitionErr  *services.InvalidTransitionError
		preconditionEr *services.PreconditionError
		conflictErr    *services.ConflictError
		providerErr    *services.ProviderUnavailableError
	)

	switch {
	case errors.Is(err, services.ErrNotFound):
		NotFound(c, err.Error())
	case errors.As(err, &validationErr):
		BadRequest(c, validationErr.Error())
	case errors.As(err, &transitionErr):
		Conflict(c, transitionErr.Error())
	case errors.As(err, &preconditionEr):
		Error(c, http.StatusPreconditionFailed, preconditionEr.Error())
	case errors.As(err, &conflictErr):
		Conflict(c, conflictErr.Error())
	case errors.As(err, &providerErr):
		Error(c, http.StatusBadGateway, providerErr.Error())
	default:
		InternalServerError(c, err.Error())
	}
}
