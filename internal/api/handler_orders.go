package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bagel-preorder-backend/internal/order"
)

type createOrderRequest struct {
	Name         string         `json:"name"`
	BuildingRoom string         `json:"building_room"`
	Day          string         `json:"day"`
	Slot         string         `json:"slot"`
	Item         string         `json:"item"`
	Phone        string         `json:"phone"`
	Notes        string         `json:"notes"`
	Options      map[string]any `json:"options"`
	PaymentReady any            `json:"payment_ready"`
}

// CreateOrder handles a customer's pre-order.
func (h *Handler) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	res, err := h.orders.Create(c.Request.Context(), order.CreateInput{
		Name:         req.Name,
		BuildingRoom: req.BuildingRoom,
		Day:          req.Day,
		Slot:         req.Slot,
		Item:         req.Item,
		Phone:        req.Phone,
		Notes:        req.Notes,
		Options:      req.Options,
		PaymentReady: truthy(req.PaymentReady),
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"orderId": res.Order.ID,
		"status":  "received",
		"sms":     res.SMS,
		"summary": gin.H{
			"day":         res.Order.Day,
			"slot":        res.Order.Slot,
			"item":        res.Order.Item,
			"total_cents": res.Order.TotalCents,
		},
	})
}

// GetSlots returns the public availability for a day.
func (h *Handler) GetSlots(c *gin.Context) {
	day, item := c.Query("day"), c.Query("item")
	slots, err := h.orders.SlotAvailability(c.Request.Context(), day, item)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"day": day, "item": item, "slots": slots})
}

// truthy follows the loose checks browsers' form code relies on.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	default:
		return true
	}
}
