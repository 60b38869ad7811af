package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"rentdesk/internal/infra/config"
	"rentdesk/internal/infra/obs"
)

type BookingHTTP interface {
	Create(c *gin.Context)
	Confirm(c *gin.Context)
	Cancel(c *gin.Context)
	Complete(c *gin.Context)
	Availability(c *gin.Context)
	ListMine(c *gin.Context)
	ListHost(c *gin.Context)
}

type BillingHTTP interface {
	Pay(c *gin.Context)
	Ledger(c *gin.Context)
	MonthlyRevenue(c *gin.Context)
}

type HostUnitHTTP interface {
	List(c *gin.Context)
	Create(c *gin.Context)
	Update(c *gin.Context)
	Delete(c *gin.Context)
}

type Handlers struct {
	Booking        BookingHTTP
	Billing        BillingHTTP
	HostUnit       HostUnitHTTP
	AuthMiddleware gin.HandlerFunc
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}))
	if h.AuthMiddleware != nil {
		router.Use(h.AuthMiddleware)
	}

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.Booking != nil {
		api.POST("/bookings", h.Booking.Create)
		api.POST("/bookings/:id/confirm", h.Booking.Confirm)
		api.POST("/bookings/:id/cancel", h.Booking.Cancel)
		api.POST("/bookings/:id/complete", h.Booking.Complete)
		api.GET("/units/:id/availability", h.Booking.Availability)
		api.GET("/me/bookings", h.Booking.ListMine)
	}
	if h.Billing != nil {
		api.POST("/invoices/:id/pay", h.Billing.Pay)
	}
	if h.HostUnit != nil || h.Booking != nil || h.Billing != nil {
		hostGroup := api.Group("/host")
		if h.HostUnit != nil {
			hostGroup.GET("/units", h.HostUnit.List)
			hostGroup.POST("/units", h.HostUnit.Create)
			hostGroup.PUT("/units/:id", h.HostUnit.Update)
			hostGroup.DELETE("/units/:id", h.HostUnit.Delete)
		}
		if h.Booking != nil {
			hostGroup.GET("/bookings", h.Booking.ListHost)
		}
		if h.Billing != nil {
			hostGroup.GET("/ledger", h.Billing.Ledger)
			hostGroup.GET("/revenue/monthly", h.Billing.MonthlyRevenue)
		}
	}

	return &http.Server{Addr: cfg.HTTPAddr, Handler: router}
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
