package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"bagel-preorder-backend/internal/mw"
	"bagel-preorder-backend/internal/order"
)

type loginRequest struct {
	Password string `json:"password"`
}

// Login issues the kitchen session cookie for the shared password.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil || !mw.ValidToken(req.Password, h.kitchen.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid password"})
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(mw.SessionCookie, h.session, h.kitchen.CookieMaxAgeHr*3600, "/", "", h.kitchen.SecureCookie, true)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Logout clears the session cookie.
func (h *Handler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(mw.SessionCookie, "", -1, "/", "", h.kitchen.SecureCookie, true)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ListOrders returns the kitchen board.
func (h *Handler) ListOrders(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = n
	}

	orders, err := h.orders.List(c.Request.Context(), order.ListQuery{
		Week:   c.Query("week"),
		Day:    c.Query("day"),
		Item:   c.Query("item"),
		Slot:   c.Query("slot"),
		Status: c.Query("status"),
		Query:  c.Query("q"),
		Limit:  limit,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus moves an order on the board.
func (h *Handler) UpdateStatus(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Status is required"})
		return
	}

	if err := h.orders.UpdateStatus(c.Request.Context(), id, req.Status); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type editOrderRequest struct {
	Day              *string `json:"day"`
	Slot             *string `json:"slot"`
	Item             *string `json:"item"`
	KitchenNotes     *string `json:"kitchen_notes"`
	OverrideCapacity bool    `json:"overrideCapacity"`
}

// EditOrder reschedules or annotates an order.
func (h *Handler) EditOrder(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	var req editOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	o, err := h.orders.Edit(c.Request.Context(), id, order.EditInput{
		Day:              req.Day,
		Slot:             req.Slot,
		Item:             req.Item,
		KitchenNotes:     req.KitchenNotes,
		OverrideCapacity: req.OverrideCapacity,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "order": o})
}

type resendSMSRequest struct {
	Message string `json:"message"`
}

// ResendSMS texts the customer again.
func (h *Handler) ResendSMS(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	var req resendSMSRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if err := h.orders.ResendSMS(c.Request.Context(), id, req.Message); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// DeleteOrder removes an order.
func (h *Handler) DeleteOrder(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	if err := h.orders.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ResetWeekend deletes every order of the current week.
func (h *Handler) ResetWeekend(c *gin.Context) {
	week, n, err := h.orders.ResetWeek(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"message":      fmt.Sprintf("Reset complete. Deleted %d orders for week %s", n, week),
		"deletedCount": n,
	})
}

// GetCapacity returns per-slot usage for the staff dashboard.
func (h *Handler) GetCapacity(c *gin.Context) {
	slots, err := h.orders.CapacityReport(c.Request.Context(), c.Query("week"), c.Query("day"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"slots": slots})
}

func orderID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order id"})
		return 0, false
	}
	return id, true
}
