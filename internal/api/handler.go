package api

import (
	"github.com/SherClockHolmes/webpush-go"

	"bagel-preorder-backend/config"
	"bagel-preorder-backend/internal/mw"
	"bagel-preorder-backend/internal/order"
	"bagel-preorder-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	orders  *order.Service
	store   store.Store
	webpush *webpush.Options
	kitchen config.KitchenConfig
	session string
}

// NewHandler creates a new API handler.
func NewHandler(orders *order.Service, s store.Store, webpushOptions *webpush.Options, kitchen config.KitchenConfig) *Handler {
	return &Handler{
		orders:  orders,
		store:   s,
		webpush: webpushOptions,
		kitchen: kitchen,
		session: mw.SessionToken(kitchen.Password, kitchen.SessionSecret),
	}
}
