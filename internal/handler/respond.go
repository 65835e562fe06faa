package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"purse/internal/apperr"
)

// writeError is the only place the error taxonomy meets HTTP status codes.
// The engine and stores never see a status code.
func writeError(c *gin.Context, err error) {
	var status int
	switch apperr.KindOf(err) {
	case apperr.NotFound:
		status = http.StatusNotFound
	case apperr.Conflict:
		status = http.StatusConflict
	case apperr.InsufficientFunds:
		status = http.StatusUnprocessableEntity
	case apperr.Inactive:
		status = http.StatusForbidden
	case apperr.InvalidArgument:
		status = http.StatusBadRequest
	default:
		status = http.StatusInternalServerError
	}

	msg := "something went wrong, please try again"
	var e *apperr.Error
	if errors.As(err, &e) {
		msg = e.Msg
	}
	c.JSON(status, gin.H{"success": false, "error": msg})
}

func writeOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

func writeCreated(c *gin.Context, message string, data any) {
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": message, "data": data})
}

func writeBadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": msg})
}
