package handler

import (
	"errors"
	"net/http"

	"github.com/HappilyMart/deal-service/internal/dto"
	"github.com/HappilyMart/deal-service/internal/model"
	"github.com/gin-gonic/gin"
)

var (
	errNotAuthorized   = errors.New("user is not authorized")
	errInvalidPostID   = errors.New("invalid post ID")
	errTooManyRequests = errors.New("too many requests, please wait")
)

// respondError maps domain failures onto HTTP statuses. Every message
// is passed through as-is: the service layer already phrases them in
// actionable terms (required vs. available amounts and so on).
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	switch {
	case model.IsInsufficientCredit(err):
		status = http.StatusPaymentRequired
	case errors.Is(err, model.ErrInvalidTransition):
		status = http.StatusConflict
	case errors.Is(err, model.ErrNotOwner):
		status = http.StatusForbidden
	case errors.Is(err, model.ErrAuthorUnavailable):
		status = http.StatusGone
	case errors.Is(err, model.ErrPostExpired), errors.Is(err, model.ErrPostClosed):
		status = http.StatusConflict
	case errors.Is(err, model.ErrPostNotFound):
		status = http.StatusNotFound
	case errors.Is(err, model.ErrInvalidValidity):
		status = http.StatusBadRequest
	}

	c.JSON(status, dto.NewBasicResponse(false, err.Error()))
}
