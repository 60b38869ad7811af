package ginserver

import (
	"net/http"

	gin "github.com/gin-gonic/gin"

	"rentdesk/internal/app/commands"
	unitsapp "rentdesk/internal/app/handlers/units"
	"rentdesk/internal/app/queries"
)

type HostUnitHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
}

type createUnitRequest struct {
	PropertyID          string `json:"property_id"`
	Number              string `json:"number"`
	Title               string `json:"title"`
	Description         string `json:"description"`
	BasePriceCents      int64  `json:"base_price_cents"`
	Currency            string `json:"currency"`
	TurnoverBufferHours int    `json:"turnover_buffer_hours"`
}

func (h HostUnitHandler) Create(c *gin.Context) {
	user, ok := requireRole(c, "landlord")
	if !ok {
		return
	}
	var req createUnitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := unitsapp.CreateUnitCommand{
		CommandID:           generateCommandID(),
		PropertyID:          req.PropertyID,
		OwnerID:             user.ID,
		Number:              req.Number,
		Title:               req.Title,
		Description:         req.Description,
		BasePriceCents:      req.BasePriceCents,
		Currency:            req.Currency,
		TurnoverBufferHours: req.TurnoverBufferHours,
	}
	result, err := commands.Dispatch[unitsapp.CreateUnitCommand, *unitsapp.CreateUnitResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

type updateUnitRequest struct {
	Title               *string `json:"title"`
	Description         *string `json:"description"`
	BasePriceCents      *int64  `json:"base_price_cents"`
	Currency            string  `json:"currency"`
	TurnoverBufferHours *int    `json:"turnover_buffer_hours"`
	Active              *bool   `json:"active"`
}

func (h HostUnitHandler) Update(c *gin.Context) {
	user, ok := requireRole(c, "landlord")
	if !ok {
		return
	}
	var req updateUnitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := unitsapp.UpdateUnitCommand{
		UnitID:              c.Param("id"),
		ActorID:             user.ID,
		Title:               req.Title,
		Description:         req.Description,
		BasePriceCents:      req.BasePriceCents,
		Currency:            req.Currency,
		TurnoverBufferHours: req.TurnoverBufferHours,
		Active:              req.Active,
	}
	result, err := commands.Dispatch[unitsapp.UpdateUnitCommand, *unitsapp.UpdateUnitResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h HostUnitHandler) Delete(c *gin.Context) {
	user, ok := requireRole(c, "landlord")
	if !ok {
		return
	}
	cmd := unitsapp.DeleteUnitCommand{UnitID: c.Param("id"), ActorID: user.ID}
	result, err := commands.Dispatch[unitsapp.DeleteUnitCommand, *unitsapp.DeleteUnitResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h HostUnitHandler) List(c *gin.Context) {
	user, ok := requireRole(c, "landlord")
	if !ok {
		return
	}
	q := unitsapp.HostUnitsQuery{OwnerID: user.ID}
	result, err := queries.Ask[unitsapp.HostUnitsQuery, *unitsapp.HostUnitsResult](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ HostUnitHTTP = HostUnitHandler{}
