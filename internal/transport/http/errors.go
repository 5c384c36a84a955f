package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/you/campus-resource-hub/internal/domain"
)

// respondErr maps the domain taxonomy onto HTTP statuses; everything in
// it is recoverable by the caller, so only unknown errors become 500s.
func respondErr(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidWindow), errors.Is(err, domain.ErrInvalidContext):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrInvalidTransition):
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
