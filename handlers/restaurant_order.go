package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetRestaurantOrders lists incoming orders for the owner or staff of a restaurant
func (h *Handler) GetRestaurantOrders(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	orders, err := h.Orders.ListForRestaurant(c.Request.Context(), actor(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(orders), "orders": orders})
}
