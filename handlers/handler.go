package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"

	"restaurant-ordering-api/apperr"
	"restaurant-ordering-api/auth"
	"restaurant-ordering-api/middleware"
	"restaurant-ordering-api/services"
)

// Handler serves the HTTP API on top of the services.
type Handler struct {
	Accounts    *services.AccountService
	Restaurants *services.RestaurantService
	Catalog     *services.CatalogService
	Carts       *services.CartService
	Orders      *services.OrderService
}

// fail renders err and aborts the request.
func fail(c *gin.Context, err error) {
	middleware.Abort(c, err)
}

// bind decodes the JSON body into dst. Field rules are enforced by the services.
func bind(c *gin.Context, dst any) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return true
	}
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.Is(err, io.EOF):
		fail(c, apperr.Validation("Request body is required."))
	case errors.As(err, &typeErr) && typeErr.Field != "":
		fail(c, apperr.ValidationFields(map[string]string{typeErr.Field: "Incorrect type. Expected " + typeErr.Type.String() + "."}))
	default:
		fail(c, apperr.Validation("Malformed JSON body."))
	}
	return false
}

// idParam reads a positive integer path parameter.
func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		fail(c, apperr.NotFound("Not found."))
		return 0, false
	}
	return uint(id), true
}

// actor returns the caller injected by middleware.AuthRequired.
func actor(c *gin.Context) auth.Actor {
	a, _ := middleware.ActorFrom(c)
	return a
}
