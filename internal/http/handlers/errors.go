package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/obispado/citas-backend/internal/services"
)

// Error codes returned in ErrorResponse.Code. Clients branch on these.
const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Domain-specific:
	ErrCodeValidation        = "validation_failed"
	ErrCodeSlotNotAllowed    = string(services.KindSlotNotAllowed)
	ErrCodeSlotTaken         = string(services.KindSlotTaken)
	ErrCodeSystem            = string(services.KindSystem)
	ErrCodeAuth              = string(services.KindAuth)
	ErrCodeInvalidTransition = "invalid_transition"
	ErrCodeNotConfigured     = "not_configured"
	ErrCodeCreateFailed      = "create_failed"
)

// writeServiceError translates a service error into a response. It returns
// true when the error means the operator's session must end.
func writeServiceError(c *gin.Context, err error) (endSession bool) {
	var ve *services.ValidationError
	if errors.As(err, &ve) {
		failFields(c, http.StatusUnprocessableEntity, ErrCodeValidation, "Revise los datos del formulario", ve.Fields)
		return false
	}

	switch services.KindOf(err) {
	case services.KindSlotNotAllowed:
		fail(c, http.StatusUnprocessableEntity, ErrCodeSlotNotAllowed, err.Error())
		return false
	case services.KindSlotTaken:
		fail(c, http.StatusConflict, ErrCodeSlotTaken, err.Error())
		return false
	case services.KindSystem:
		fail(c, http.StatusServiceUnavailable, ErrCodeSystem, err.Error())
		return false
	case services.KindNotFound:
		fail(c, http.StatusNotFound, ErrCodeNotFound, err.Error())
		return false
	case services.KindAuth:
		fail(c, http.StatusUnauthorized, ErrCodeAuth, err.Error())
		return true
	}

	switch {
	case errors.Is(err, services.ErrInvalidCredentials):
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "Usuario o contraseña incorrectos")
	case errors.Is(err, services.ErrSessionExpired):
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "Sesión expirada. Inicie sesión nuevamente.")
	case errors.Is(err, services.ErrInvalidTransition):
		fail(c, http.StatusConflict, ErrCodeInvalidTransition, "No se puede cambiar la cita a ese estado")
	case errors.Is(err, services.ErrInvalidInput):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, services.ErrNotConfigured):
		fail(c, http.StatusServiceUnavailable, ErrCodeNotConfigured, "Función no configurada")
	case errors.Is(err, services.ErrPersistence):
		fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, "No se pudo guardar la cita. Intente de nuevo.")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "Error interno del servidor")
	}
	return false
}
