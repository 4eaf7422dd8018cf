package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quickpick/api/internal/apperr"
)

// respondError maps an engine error onto an HTTP status and a machine code
// the UI can localize. Internal detail is logged here and never forwarded.
func respondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := http.StatusInternalServerError
	message := "internal error"

	switch kind {
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindValidation:
		status = http.StatusBadRequest
	case apperr.KindFull, apperr.KindConflict:
		status = http.StatusConflict
	case apperr.KindUnauthorized:
		status = http.StatusForbidden
	}

	if kind == apperr.KindInternal {
		log.Printf("internal error on %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	} else {
		message = err.Error()
	}

	c.JSON(status, gin.H{"code": apperr.CodeOf(err), "error": message})
}
