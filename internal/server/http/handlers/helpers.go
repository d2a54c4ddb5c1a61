package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/polkiloo/storefront/internal/domain/errors"
	"github.com/polkiloo/storefront/internal/server/http/middleware"
)

// CurrentUserID extracts authenticated user identifier from context.
func CurrentUserID(c *gin.Context) int64 {
	val, ok := c.Get(middleware.UserIDContextKey)
	if !ok {
		return 0
	}
	id, _ := val.(int64)
	return id
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// abortWithError maps domain errors onto HTTP statuses.
func abortWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domainErrors.ErrInvalidRequest):
		status = http.StatusBadRequest
	case errors.Is(err, domainErrors.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domainErrors.ErrAlreadyExists), errors.Is(err, domainErrors.ErrInvalidTransition):
		status = http.StatusConflict
	case domainErrors.IsBusiness(err):
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		c.AbortWithStatusJSON(status, errorResponse{Code: "INTERNAL", Message: "internal error"})
		return
	}
	c.AbortWithStatusJSON(status, errorResponse{Code: domainErrors.Code(err), Message: err.Error()})
}
