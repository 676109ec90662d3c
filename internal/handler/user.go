package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rideshare/internal/domain"
	"rideshare/internal/middleware"
	"rideshare/internal/service"
)

// UserHandler handles HTTP requests for rider accounts.
type UserHandler struct {
	userService *service.UserService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// RegisterUserRequest is the HTTP request body for rider registration.
type RegisterUserRequest struct {
	Fullname string `json:"fullname"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the HTTP request body for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthUserResponse is the HTTP response for register and login.
type AuthUserResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// UserResponse is the HTTP representation of a rider account.
type UserResponse struct {
	ID        string `json:"id"`
	Fullname  string `json:"fullname"`
	Email     string `json:"email"`
	CreatedAt string `json:"createdAt"`
}

// Register handles POST /v1/users/register
func (h *UserHandler) Register(c *gin.Context) {
	var req RegisterUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	user, token, err := h.userService.Register(c.Request.Context(), req.Fullname, req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	setSessionCookie(c, token)
	respondJSON(c, http.StatusCreated, AuthUserResponse{Token: token, User: toUserResponse(user)})
}

// Login handles POST /v1/users/login
func (h *UserHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	user, token, err := h.userService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	setSessionCookie(c, token)
	respondJSON(c, http.StatusOK, AuthUserResponse{Token: token, User: toUserResponse(user)})
}

// Logout handles GET /v1/users/logout
func (h *UserHandler) Logout(c *gin.Context) {
	if err := h.userService.Logout(c.Request.Context(), c.GetString(middleware.ContextUserID), c.GetString(middleware.ContextToken)); err != nil {
		respondError(c, err)
		return
	}

	clearSessionCookie(c)
	respondJSON(c, http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// Profile handles GET /v1/users/profile
func (h *UserHandler) Profile(c *gin.Context) {
	user, err := h.userService.Profile(c.Request.Context(), c.GetString(middleware.ContextUserID))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toUserResponse(user))
}

func toUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Fullname:  user.Fullname,
		Email:     user.Email,
		CreatedAt: formatTime(user.CreatedAt),
	}
}

func setSessionCookie(c *gin.Context, token string) {
	c.SetCookie("token", token, int((24 * 60 * 60)), "/", "", false, true)
}

func clearSessionCookie(c *gin.Context) {
	c.SetCookie("token", "", -1, "/", "", false, true)
}
