package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health reports liveness
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "restaurant-ordering-api"})
}

// ListRestaurants returns every restaurant, optionally filtered by ?search= (public)
func (h *Handler) ListRestaurants(c *gin.Context) {
	restaurants, err := h.Restaurants.ListAll(c.Request.Context(), c.Query("search"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(restaurants), "restaurants": restaurants})
}

// GetRestaurant returns a single restaurant (public)
func (h *Handler) GetRestaurant(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	restaurant, err := h.Restaurants.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"restaurant": restaurant})
}

// ListCategories returns the menu categories of a restaurant (public)
func (h *Handler) ListCategories(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	categories, err := h.Catalog.ListCategories(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(categories), "categories": categories})
}

// ListItems returns the items of a category (public)
func (h *Handler) ListItems(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	items, err := h.Catalog.ListItems(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(items), "items": items})
}
