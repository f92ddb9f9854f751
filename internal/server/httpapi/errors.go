package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/neurorecall/internal/common"
	"github.com/gin-gonic/gin"
)

const internalErrorMessage = "Internal server error"

// statusOf maps a service error to its HTTP status.
func statusOf(err error) int {
	switch {
	case common.IsValidation(err), errors.Is(err, common.ErrorAlreadyExists):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrRefreshTokenExpired):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrorForbidden):
		return http.StatusForbidden
	case errors.Is(err, common.ErrorLocked):
		return http.StatusLocked
	case errors.Is(err, common.ErrorRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// messageOf returns the text shown to clients for a non-internal err.
func messageOf(err error, status int) string {
	if msg, ok := common.PublicMessage(err); ok {
		return msg
	}
	switch {
	case errors.Is(err, common.ErrorAlreadyExists):
		return "Already exists"
	case errors.Is(err, common.ErrRefreshTokenExpired):
		return "Refresh token expired"
	case errors.Is(err, common.ErrTokenExpired):
		return "Token expired"
	case errors.Is(err, common.ErrInvalidToken):
		return "Invalid token"
	}
	return http.StatusText(status)
}

// fail writes err as {"error": ...}, merged with extra, and aborts the chain.
func (s *Server) fail(c *gin.Context, err error, extra gin.H) {
	s.failAs(c, err, internalErrorMessage, extra)
}

// failAs is fail with a custom message for internal errors. Their details
// are only logged.
func (s *Server) failAs(c *gin.Context, err error, internalMessage string, extra gin.H) {
	status := statusOf(err)
	msg := internalMessage
	if status == http.StatusInternalServerError {
		s.logger.Error(c.Request.Context(), "request failed",
			"method", c.Request.Method, "path", c.FullPath(), "error", err.Error())
	} else {
		msg = messageOf(err, status)
	}

	body := gin.H{"error": msg}
	for k, v := range extra {
		body[k] = v
	}
	c.AbortWithStatusJSON(status, body)
}

func badRequest(c *gin.Context, msg string, extra gin.H) {
	body := gin.H{"error": msg}
	for k, v := range extra {
		body[k] = v
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, body)
}

// noCache marks auth-state responses as uncacheable.
func noCache(c *gin.Context) {
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate, max-age=0")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")
}
