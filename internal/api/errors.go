package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"bagel-preorder-backend/internal/capacity"
	"bagel-preorder-backend/internal/mw"
	"bagel-preorder-backend/internal/notification"
	"bagel-preorder-backend/internal/order"
	"bagel-preorder-backend/internal/store"
)

const soldOutMessage = "That slot just sold out — please pick another time"

// writeError maps service and store errors to responses. Unknown errors are
// logged and reported without detail.
func writeError(c *gin.Context, err error) {
	var verr *order.ValidationError
	switch {
	case errors.As(err, &verr):
		body := gin.H{"error": verr.Message}
		if len(verr.Missing) > 0 {
			body["missing"] = verr.Missing
		}
		c.JSON(http.StatusBadRequest, body)
	case errors.Is(err, capacity.ErrSlotSoldOut):
		c.JSON(http.StatusConflict, gin.H{"error": "SLOT_SOLD_OUT", "message": soldOutMessage})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, notification.ErrSMSNotConfigured):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "SMS not configured"})
	case errors.Is(err, order.ErrSMSFailed):
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to send SMS"})
	default:
		log.Printf("[%s] %s %s: %v", mw.GetRequestID(c), c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
	}
}
