package ginserver

import (
	"net/http"

	gin "github.com/gin-gonic/gin"

	"rentdesk/internal/app/commands"
	billingapp "rentdesk/internal/app/handlers/billing"
	"rentdesk/internal/app/queries"
)

type BillingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
}

func (h BillingHandler) Pay(c *gin.Context) {
	user, ok := requireRole(c, "")
	if !ok {
		return
	}
	cmd := billingapp.PayInvoiceCommand{
		InvoiceID:       c.Param("id"),
		ActorID:         user.ID,
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[billingapp.PayInvoiceCommand, *billingapp.PayInvoiceResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BillingHandler) Ledger(c *gin.Context) {
	user, ok := requireRole(c, "landlord")
	if !ok {
		return
	}
	q := billingapp.LandlordLedgerQuery{
		ActorID:   user.ID,
		ActorRole: user.Role,
		Currency:  c.Query("currency"),
	}
	result, err := queries.Ask[billingapp.LandlordLedgerQuery, *billingapp.LandlordLedgerResult](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BillingHandler) MonthlyRevenue(c *gin.Context) {
	user, ok := requireRole(c, "landlord")
	if !ok {
		return
	}
	q := billingapp.MonthlyRevenueQuery{ActorID: user.ID, ActorRole: user.Role}
	result, err := queries.Ask[billingapp.MonthlyRevenueQuery, *billingapp.MonthlyRevenueResult](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ BillingHTTP = BillingHandler{}
