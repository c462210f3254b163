package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"restaurant-ordering-api/apperr"
	"restaurant-ordering-api/services"
)

// ── Restaurant Management ────────────────────────────────────────────────────

// ListMyRestaurants returns the restaurants the caller owns or works at
func (h *Handler) ListMyRestaurants(c *gin.Context) {
	restaurants, err := h.Restaurants.ListForActor(c.Request.Context(), actor(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(restaurants), "restaurants": restaurants})
}

// CreateRestaurant lets an owner open a new restaurant
func (h *Handler) CreateRestaurant(c *gin.Context) {
	var req services.RestaurantInput
	if !bind(c, &req) {
		return
	}
	restaurant, err := h.Restaurants.Create(c.Request.Context(), actor(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Restaurant created", "restaurant": restaurant})
}

// DeleteRestaurant removes a restaurant with its menu, orders and staff links
func (h *Handler) DeleteRestaurant(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.Restaurants.Delete(c.Request.Context(), actor(c), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Restaurant deleted successfully."})
}

// ListEmployees returns the employees of one owned restaurant
func (h *Handler) ListEmployees(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	employees, err := h.Restaurants.Employees(c.Request.Context(), actor(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(employees), "employees": employees})
}

// ListAllEmployees groups employees under every owned restaurant
func (h *Handler) ListAllEmployees(c *gin.Context) {
	grouped, err := h.Restaurants.EmployeesByRestaurant(c.Request.Context(), actor(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"restaurants": grouped})
}

// SetEmployeePermission creates or replaces an employee's capabilities
func (h *Handler) SetEmployeePermission(c *gin.Context) {
	var req services.PermissionInput
	if !bind(c, &req) {
		return
	}
	perm, err := h.Restaurants.SetPermission(c.Request.Context(), actor(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Permissions updated successfully.", "permission": perm})
}

// ── Menu Management ─────────────────────────────────────────────────────────

type CategoryIDRequest struct {
	CategoryID uint `json:"category_id"`
}

type ItemIDRequest struct {
	ItemID uint `json:"item_id"`
}

// CreateCategory adds a category to a restaurant's menu
func (h *Handler) CreateCategory(c *gin.Context) {
	var req services.CategoryInput
	if !bind(c, &req) {
		return
	}
	category, err := h.Catalog.CreateCategory(c.Request.Context(), actor(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Category created", "category": category})
}

// UpdateCategory renames a category
func (h *Handler) UpdateCategory(c *gin.Context) {
	var req services.CategoryUpdateInput
	if !bind(c, &req) {
		return
	}
	category, err := h.Catalog.UpdateCategory(c.Request.Context(), actor(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Category updated", "category": category})
}

// DeleteCategory removes a category and its items
func (h *Handler) DeleteCategory(c *gin.Context) {
	var req CategoryIDRequest
	if !bind(c, &req) {
		return
	}
	if err := h.Catalog.DeleteCategory(c.Request.Context(), actor(c), req.CategoryID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Category deleted successfully."})
}

// AddItem adds an item to a category
func (h *Handler) AddItem(c *gin.Context) {
	var req services.ItemInput
	if !bind(c, &req) {
		return
	}
	item, err := h.Catalog.CreateItem(c.Request.Context(), actor(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Item added", "item": item})
}

// UpdateItem changes the fields present in the body
func (h *Handler) UpdateItem(c *gin.Context) {
	var req services.ItemUpdateInput
	if !bind(c, &req) {
		return
	}
	item, err := h.Catalog.UpdateItem(c.Request.Context(), actor(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Item updated", "item": item})
}

// DeleteItem removes an item from the menu
func (h *Handler) DeleteItem(c *gin.Context) {
	var req ItemIDRequest
	if !bind(c, &req) {
		return
	}
	if err := h.Catalog.DeleteItem(c.Request.Context(), actor(c), req.ItemID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Item deleted successfully."})
}

// UploadItemImage stores the multipart "image" file and links it to the item
func (h *Handler) UploadItemImage(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	fh, err := c.FormFile("image")
	if err != nil {
		fail(c, apperr.ValidationFields(map[string]string{"image": "No file was submitted."}))
		return
	}
	f, err := fh.Open()
	if err != nil {
		fail(c, err)
		return
	}
	defer f.Close()

	item, err := h.Catalog.SetItemImage(c.Request.Context(), actor(c), id, services.Image{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Body:        f,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Image uploaded", "item": item})
}
