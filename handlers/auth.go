package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"restaurant-ordering-api/services"
)

type VerifyOwnerRequest struct {
	OTP   string `json:"otp"`
	Email string `json:"email"`
}

type ResendOTPRequest struct {
	Email string `json:"email"`
}

type VerifyEmployeeRequest struct {
	EmployeeEmail string `json:"employee_email"`
	RestaurantID  uint   `json:"restaurant_id"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterOwner creates a pending owner and sends them an OTP
func (h *Handler) RegisterOwner(c *gin.Context) {
	var req services.RegisterInput
	if !bind(c, &req) {
		return
	}
	user, err := h.Accounts.RegisterOwner(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Owner registered. A verification code has been sent to " + user.Email + ".",
		"user":    user,
	})
}

// VerifyOwner redeems the OTP and activates the owner
func (h *Handler) VerifyOwner(c *gin.Context) {
	var req VerifyOwnerRequest
	if !bind(c, &req) {
		return
	}
	user, err := h.Accounts.VerifyOwner(c.Request.Context(), req.OTP, req.Email)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Email verified successfully.", "user": user})
}

// ResendOTP issues a fresh code to an unverified owner
func (h *Handler) ResendOTP(c *gin.Context) {
	var req ResendOTPRequest
	if !bind(c, &req) {
		return
	}
	if err := h.Accounts.ResendOTP(c.Request.Context(), req.Email); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "A new verification code has been sent."})
}

// RegisterEmployee creates a pending employee of an existing restaurant
func (h *Handler) RegisterEmployee(c *gin.Context) {
	var req services.EmployeeRegisterInput
	if !bind(c, &req) {
		return
	}
	user, err := h.Accounts.RegisterEmployee(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Employee registered. The restaurant owner must verify this account.",
		"user":    user,
	})
}

// VerifyEmployee lets an owner activate one of their employees
func (h *Handler) VerifyEmployee(c *gin.Context) {
	var req VerifyEmployeeRequest
	if !bind(c, &req) {
		return
	}
	user, err := h.Accounts.VerifyEmployee(c.Request.Context(), actor(c), req.EmployeeEmail, req.RestaurantID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Employee verified successfully.", "user": user})
}

// RegisterCustomer creates an active customer
func (h *Handler) RegisterCustomer(c *gin.Context) {
	var req services.RegisterInput
	if !bind(c, &req) {
		return
	}
	user, err := h.Accounts.RegisterCustomer(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Customer registered successfully.", "user": user})
}

// Login authenticates a user and returns a JWT
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if !bind(c, &req) {
		return
	}
	token, user, err := h.Accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Login successful", "token": token, "user": user})
}

// Logout revokes the token used for this request
func (h *Handler) Logout(c *gin.Context) {
	if err := h.Accounts.Logout(c.Request.Context(), actor(c)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully."})
}

// GetProfile returns the authenticated user's profile
func (h *Handler) GetProfile(c *gin.Context) {
	user, err := h.Accounts.Me(c.Request.Context(), actor(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}
