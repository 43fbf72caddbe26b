package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/pos-terminal/middlewares"
	"github.com/yeremiapane/pos-terminal/services"
	"github.com/yeremiapane/pos-terminal/utils"
)

// classify maps the core error taxonomy onto an HTTP status and the error
// class reported in the envelope.
func classify(err error) (int, string) {
	var remoteErr *services.RemoteError
	switch {
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest, "validation"
	case errors.Is(err, services.ErrPolicyViolation):
		return http.StatusForbidden, "policy_violation"
	case errors.Is(err, services.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, services.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, services.ErrTransientNetwork):
		return http.StatusServiceUnavailable, "offline"
	case errors.As(err, &remoteErr):
		return http.StatusBadGateway, "remote_rejected"
	}
	return http.StatusInternalServerError, "internal"
}

func statusFor(err error) int {
	status, _ := classify(err)
	return status
}

func respondServiceError(c *gin.Context, err error) {
	respondServiceErrorWith(c, err, nil)
}

func respondServiceErrorWith(c *gin.Context, err error, data interface{}) {
	status, class := classify(err)
	if status == http.StatusInternalServerError {
		utils.ErrorLogger.WithError(err).Errorf("%s %s failed", c.Request.Method, c.FullPath())
	}
	_ = c.Error(err)
	utils.RespondErrorCode(c, status, class, err, data)
}

// currentOperator builds the operator from the verified session.
func currentOperator(c *gin.Context) (services.Operator, bool) {
	claims, ok := middlewares.Claims(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("session not found in context"))
		return services.Operator{}, false
	}
	return services.OperatorFromClaims(claims), true
}
