package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"restaurant-ordering-api/services"
)

type RemoveFromCartRequest struct {
	ItemID uint `json:"item_id"`
}

// AddToCart puts an item in the caller's cart, adding to an existing line
func (h *Handler) AddToCart(c *gin.Context) {
	var req services.CartAddInput
	if !bind(c, &req) {
		return
	}
	line, err := h.Carts.Add(c.Request.Context(), actor(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Item added to cart.",
		"item":    gin.H{"id": line.ItemID, "quantity": line.Quantity},
	})
}

// UpdateCartItem overwrites a line's quantity; zero or less removes it
func (h *Handler) UpdateCartItem(c *gin.Context) {
	var req services.CartUpdateInput
	if !bind(c, &req) {
		return
	}
	line, removed, err := h.Carts.Update(c.Request.Context(), actor(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	if removed {
		c.JSON(http.StatusOK, gin.H{"message": "Item removed from cart due to zero or negative quantity."})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Cart item quantity updated.",
		"item":    gin.H{"id": line.ItemID, "quantity": line.Quantity},
	})
}

// RemoveFromCart deletes a line from the cart
func (h *Handler) RemoveFromCart(c *gin.Context) {
	var req RemoveFromCartRequest
	if !bind(c, &req) {
		return
	}
	if err := h.Carts.Remove(c.Request.Context(), actor(c), req.ItemID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Item removed from cart."})
}

// ViewCart returns the caller's cart with current prices
func (h *Handler) ViewCart(c *gin.Context) {
	cart, err := h.Carts.View(c.Request.Context(), actor(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cart": cart})
}

// ConfirmCart places an order from the cart
func (h *Handler) ConfirmCart(c *gin.Context) {
	order, err := h.Orders.Confirm(c.Request.Context(), actor(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Order placed successfully.", "order": order})
}

// GetMyOrders lists the caller's order history
func (h *Handler) GetMyOrders(c *gin.Context) {
	orders, err := h.Orders.ListForCustomer(c.Request.Context(), actor(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(orders), "orders": orders})
}

// GetOrder returns one of the caller's orders
func (h *Handler) GetOrder(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	order, err := h.Orders.GetForCustomer(c.Request.Context(), actor(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}
