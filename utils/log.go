package utils

import (
	"log"
	"net/http"

	"ResidentPulse-Server/model"

	"github.com/gin-gonic/gin"
)

// SendError writes a JSON error response and logs the underlying error
// if one is supplied.
func SendError(c *gin.Context, code int, msg string, errs ...error) {
	var err error
	if len(errs) > 0 {
		err = errs[0]
	}
	LogError(msg, err)

	c.JSON(code, gin.H{
		"error":   msg,
		"status":  code,
		"success": false,
	})
	c.Abort()
}

// SendAppError maps the engine's error taxonomy onto HTTP status codes.
func SendAppError(c *gin.Context, err error) {
	switch {
	case model.IsKind(err, model.KindValidation):
		SendError(c, http.StatusBadRequest, err.Error())
	case model.IsKind(err, model.KindNotFound):
		SendError(c, http.StatusNotFound, err.Error())
	case model.IsKind(err, model.KindRateLimited):
		SendError(c, http.StatusTooManyRequests, err.Error())
	case model.IsKind(err, model.KindPrecondition):
		SendError(c, http.StatusConflict, err.Error())
	case model.IsKind(err, model.KindExternal):
		SendError(c, http.StatusBadGateway, err.Error(), err)
	default:
		SendError(c, http.StatusInternalServerError, "internal error", err)
	}
}

func LogError(context string, err error) {
	if err != nil {
		log.Printf("[ERROR] %s: %v", context, err)
	} else {
		log.Printf("[ERROR] %s", context)
	}
}

func InternalError(c *gin.Context, err error) {
	SendError(c, http.StatusInternalServerError, "internal error", err)
}
