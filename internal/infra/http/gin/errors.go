package ginserver

import (
	"errors"
	"net/http"

	gin "github.com/gin-gonic/gin"

	unitsapp "rentdesk/internal/app/handlers/units"
	"rentdesk/internal/app/uow"
	domainbilling "rentdesk/internal/domain/billing"
	domainbooking "rentdesk/internal/domain/booking"
	domainunit "rentdesk/internal/domain/unit"
	domainuser "rentdesk/internal/domain/user"
)

// respondError maps domain failures to HTTP statuses so callers can tell a
// lost race (409) from a bad request (400) or a rights problem (403).
func respondError(c *gin.Context, err error) {
	var conflict domainbooking.ConflictError
	switch {
	case errors.As(err, &conflict),
		errors.Is(err, uow.ErrConcurrentUpdate):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domainbooking.ErrForbidden),
		errors.Is(err, domainbilling.ErrForbidden),
		errors.Is(err, unitsapp.ErrNotOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, domainunit.ErrNotFound),
		errors.Is(err, domainbooking.ErrNotFound),
		errors.Is(err, domainbilling.ErrInvoiceNotFound),
		errors.Is(err, domainuser.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}
