package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"bagel-preorder-backend/config"
	"bagel-preorder-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, server config.ServerConfig, responseCache *mw.ResponseCache) *gin.Engine {
	r := gin.Default()
	// ClientIP reports the socket address; forwarded addresses are only
	// honored through server.request_ip_header.
	r.SetTrustedProxies(nil)
	r.Use(mw.RequestID())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	rateLimiter := mw.RateLimiter(rate.Limit(server.RateLimitPerSec), server.RateLimitBurst, server.RequestIPHeader)
	kitchenAuth := mw.KitchenAuth(h.session)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.POST("/orders", h.CreateOrder)
		api.GET("/slots", responseCache.Middleware(), h.GetSlots)

		api.POST("/manage/login", h.Login)
		api.POST("/manage/logout", h.Logout)

		api.GET("/kitchen/orders", kitchenAuth, h.ListOrders)

		manage := api.Group("/manage", kitchenAuth)
		manage.PATCH("/orders/:id/status", h.UpdateStatus)
		manage.PATCH("/orders/:id", h.EditOrder)
		manage.POST("/orders/:id/resend-sms", h.ResendSMS)
		manage.DELETE("/orders/:id", h.DeleteOrder)
		manage.POST("/reset-weekend", h.ResetWeekend)
		manage.GET("/slots", h.GetCapacity)
		manage.GET("/vapid_public_key", h.GetVAPIDPublicKey)
		manage.PUT("/subscriptions", h.PutSubscription)
		manage.DELETE("/subscriptions", h.DeleteSubscription)
	}

	return r
}
