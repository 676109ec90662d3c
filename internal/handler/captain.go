package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"rideshare/internal/domain"
	"rideshare/internal/middleware"
	"rideshare/internal/service"
)

// CaptainHandler handles HTTP requests for captain accounts.
type CaptainHandler struct {
	captainService *service.CaptainService
}

// NewCaptainHandler creates a new CaptainHandler.
func NewCaptainHandler(captainService *service.CaptainService) *CaptainHandler {
	return &CaptainHandler{captainService: captainService}
}

// RegisterCaptainRequest is the HTTP request body for captain registration.
type RegisterCaptainRequest struct {
	Fullname string         `json:"fullname"`
	Email    string         `json:"email"`
	Password string         `json:"password"`
	Vehicle  VehicleRequest `json:"vehicle"`
}

// VehicleRequest is a captain's vehicle in a request body.
type VehicleRequest struct {
	Color       string `json:"color"`
	Plate       string `json:"plate"`
	Capacity    int    `json:"capacity"`
	VehicleType string `json:"vehicleType"`
}

// UpdateStatusRequest is the HTTP request body for availability changes.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateLocationRequest is the HTTP request body for location updates.
type UpdateLocationRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// AuthCaptainResponse is the HTTP response for register and login.
type AuthCaptainResponse struct {
	Token   string          `json:"token"`
	Captain CaptainResponse `json:"captain"`
}

// CaptainResponse is the HTTP representation of a captain account.
type CaptainResponse struct {
	ID            string          `json:"id"`
	Fullname      string          `json:"fullname"`
	Email         string          `json:"email"`
	Vehicle       VehicleResponse `json:"vehicle"`
	Status        string          `json:"status"`
	Rating        float64         `json:"rating"`
	TotalEarnings float64         `json:"totalEarnings"`
	CreatedAt     string          `json:"createdAt"`
}

// NearbyCaptainResponse is one captain in a proximity query result.
type NearbyCaptainResponse struct {
	CaptainID string  `json:"captainId"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Register handles POST /v1/captains/register
func (h *CaptainHandler) Register(c *gin.Context) {
	var req RegisterCaptainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	captain, token, err := h.captainService.Register(c.Request.Context(), service.RegisterCaptainRequest{
		Fullname: req.Fullname,
		Email:    req.Email,
		Password: req.Password,
		Vehicle: domain.Vehicle{
			Color:       req.Vehicle.Color,
			Plate:       req.Vehicle.Plate,
			Capacity:    req.Vehicle.Capacity,
			VehicleType: domain.VehicleType(req.Vehicle.VehicleType),
		},
	})
	if err != nil {
		respondError(c, err)
		return
	}

	setSessionCookie(c, token)
	respondJSON(c, http.StatusCreated, AuthCaptainResponse{Token: token, Captain: toCaptainResponse(captain)})
}

// Login handles POST /v1/captains/login
func (h *CaptainHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	captain, token, err := h.captainService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	setSessionCookie(c, token)
	respondJSON(c, http.StatusOK, AuthCaptainResponse{Token: token, Captain: toCaptainResponse(captain)})
}

// Logout handles GET /v1/captains/logout
func (h *CaptainHandler) Logout(c *gin.Context) {
	if err := h.captainService.Logout(c.Request.Context(), c.GetString(middleware.ContextCaptainID), c.GetString(middleware.ContextToken)); err != nil {
		respondError(c, err)
		return
	}

	clearSessionCookie(c)
	respondJSON(c, http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// Profile handles GET /v1/captains/profile
func (h *CaptainHandler) Profile(c *gin.Context) {
	captain, err := h.captainService.GetCaptain(c.Request.Context(), c.GetString(middleware.ContextCaptainID))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toCaptainResponse(captain))
}

// UpdateStatus handles PATCH /v1/captains/status
func (h *CaptainHandler) UpdateStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.captainService.SetStatus(c.Request.Context(), c.GetString(middleware.ContextCaptainID), domain.CaptainStatus(req.Status)); err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"status": req.Status})
}

// UpdateLocation handles POST /v1/captains/location
func (h *CaptainHandler) UpdateLocation(c *gin.Context) {
	var req UpdateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Latitude == nil || req.Longitude == nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	err := h.captainService.UpdateLocation(c.Request.Context(), c.GetString(middleware.ContextCaptainID), *req.Latitude, *req.Longitude)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"message": "Location updated"})
}

// GetStats handles GET /v1/captains/stats
func (h *CaptainHandler) GetStats(c *gin.Context) {
	stats, err := h.captainService.GetStats(c.Request.Context(), c.GetString(middleware.ContextCaptainID))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, stats)
}

// GetNearby handles GET /v1/captains/nearby
func (h *CaptainHandler) GetNearby(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("latitude"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("longitude"), 64)
	if errLat != nil || errLng != nil {
		respondError(c, service.ErrInvalidLocation)
		return
	}
	radius, err := strconv.ParseFloat(c.DefaultQuery("radius", "5"), 64)
	if err != nil {
		radius = 5
	}

	captains, err := h.captainService.CaptainsNearby(c.Request.Context(), lat, lng, radius)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]NearbyCaptainResponse, 0, len(captains))
	for _, captain := range captains {
		out = append(out, NearbyCaptainResponse{
			CaptainID: captain.CaptainID,
			Latitude:  captain.Lat,
			Longitude: captain.Lng,
		})
	}
	respondJSON(c, http.StatusOK, out)
}

func toCaptainResponse(captain *domain.Captain) CaptainResponse {
	return CaptainResponse{
		ID:       captain.ID,
		Fullname: captain.Fullname,
		Email:    captain.Email,
		Vehicle: VehicleResponse{
			Color:       captain.Vehicle.Color,
			Plate:       captain.Vehicle.Plate,
			Capacity:    captain.Vehicle.Capacity,
			VehicleType: string(captain.Vehicle.VehicleType),
		},
		Status:        string(captain.Status),
		Rating:        captain.Rating,
		TotalEarnings: captain.TotalEarnings,
		CreatedAt:     formatTime(captain.CreatedAt),
	}
}
