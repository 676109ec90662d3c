package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"rideshare/internal/domain"
	"rideshare/internal/middleware"
	"rideshare/internal/service"
)

// RideHandler handles HTTP requests for rides.
type RideHandler struct {
	rideService *service.RideService
}

// NewRideHandler creates a new RideHandler.
func NewRideHandler(rideService *service.RideService) *RideHandler {
	return &RideHandler{rideService: rideService}
}

// GeoPointRequest is a location in a request body. Coordinates are
// pointers so a missing field is distinguishable from zero.
type GeoPointRequest struct {
	Title     string   `json:"title"`
	Address   string   `json:"address"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (p *GeoPointRequest) toDomain() (domain.GeoPoint, bool) {
	if p == nil || p.Latitude == nil || p.Longitude == nil {
		return domain.GeoPoint{}, false
	}
	return domain.GeoPoint{
		Title:     p.Title,
		Address:   p.Address,
		Latitude:  *p.Latitude,
		Longitude: *p.Longitude,
	}, true
}

// ValueTextRequest is a measurement with its display form.
type ValueTextRequest struct {
	Value float64 `json:"value"`
	Text  string  `json:"text"`
}

// CreateRideRequest is the HTTP request body for requesting a ride.
type CreateRideRequest struct {
	Pickup      *GeoPointRequest  `json:"pickup"`
	Destination *GeoPointRequest  `json:"destination"`
	VehicleType string            `json:"vehicleType"`
	Fare        float64           `json:"fare,omitempty"`
	Distance    *ValueTextRequest `json:"distance,omitempty"`
	Duration    *ValueTextRequest `json:"duration,omitempty"`
}

// RateRideRequest is the HTTP request body for rating a completed ride.
type RateRideRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment,omitempty"`
}

// ArrivalTimeRequest is the HTTP request body for updating the captain ETA.
type ArrivalTimeRequest struct {
	Minutes int `json:"minutes"`
}

// RideResponse is the HTTP representation of a ride.
type RideResponse struct {
	ID                 string               `json:"id"`
	UserID             string               `json:"userId"`
	CaptainID          string               `json:"captainId,omitempty"`
	Pickup             GeoPointResponse     `json:"pickup"`
	Destination        GeoPointResponse     `json:"destination"`
	VehicleType        string               `json:"vehicleType"`
	Fare               float64              `json:"fare"`
	Distance           ValueTextRequest     `json:"distance"`
	Duration           ValueTextRequest     `json:"duration"`
	OTP                string               `json:"otp,omitempty"`
	Status             string               `json:"status"`
	ArrivalTime        *ArrivalTimeResponse `json:"arrivalTime,omitempty"`
	StartTime          string               `json:"startTime,omitempty"`
	CompletedAt        string               `json:"completedAt,omitempty"`
	CancelledAt        string               `json:"cancelledAt,omitempty"`
	CancellationReason string               `json:"cancellationReason,omitempty"`
	CaptainRating      *PartyRatingResponse `json:"captainRating,omitempty"`
	Earnings           *EarningsResponse    `json:"earnings,omitempty"`
	PaymentStatus      string               `json:"paymentStatus"`
	User               *UserSummaryResponse `json:"user,omitempty"`
	Captain            *CaptainInfoResponse `json:"captain,omitempty"`
	CreatedAt          string               `json:"createdAt"`
}

// GeoPointResponse is a location in a response body.
type GeoPointResponse struct {
	Title     string  `json:"title"`
	Address   string  `json:"address"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// ArrivalTimeResponse is the captain's ETA in a response body.
type ArrivalTimeResponse struct {
	Minutes   int    `json:"minutes"`
	UpdatedAt string `json:"updatedAt"`
}

// PartyRatingResponse is one party's rating of the other.
type PartyRatingResponse struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment,omitempty"`
	RatedAt string `json:"ratedAt"`
}

// EarningsResponse is the settlement breakdown of a completed ride.
type EarningsResponse struct {
	Amount         float64 `json:"amount"`
	PlatformFee    float64 `json:"platform_fee"`
	CaptainEarning float64 `json:"captain_earning"`
}

// UserSummaryResponse is the rider attached to a ride.
type UserSummaryResponse struct {
	ID       string `json:"id"`
	Fullname string `json:"fullname"`
}

// CaptainInfoResponse is the captain attached to a ride.
type CaptainInfoResponse struct {
	ID       string          `json:"id"`
	Fullname string          `json:"fullname"`
	Vehicle  VehicleResponse `json:"vehicle"`
	Rating   float64         `json:"rating"`
}

// VehicleResponse is a captain's vehicle.
type VehicleResponse struct {
	Color       string `json:"color"`
	Plate       string `json:"plate"`
	Capacity    int    `json:"capacity"`
	VehicleType string `json:"vehicleType"`
}

// FareRequest is the HTTP request body for pricing a trip.
type FareRequest struct {
	Pickup      *GeoPointRequest `json:"pickup"`
	Destination *GeoPointRequest `json:"destination"`
}

// FareResponse is the per-class fare table for one itinerary.
type FareResponse struct {
	Fare     map[string]float64 `json:"fare"`
	Distance ValueTextRequest   `json:"distance"`
	Duration ValueTextRequest   `json:"duration"`
}

// CreateRide handles POST /v1/rides
func (h *RideHandler) CreateRide(c *gin.Context) {
	var req CreateRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	pickup, ok := req.Pickup.toDomain()
	if !ok {
		respondError(c, service.ErrInvalidPickupLocation)
		return
	}
	destination, ok := req.Destination.toDomain()
	if !ok {
		respondError(c, service.ErrInvalidDestinationLocation)
		return
	}

	createReq := service.CreateRideRequest{
		UserID:      c.GetString(middleware.ContextUserID),
		Pickup:      pickup,
		Destination: destination,
		VehicleType: domain.VehicleType(req.VehicleType),
		Fare:        req.Fare,
	}
	if req.Distance != nil {
		createReq.Distance = &domain.ValueText{Value: req.Distance.Value, Text: req.Distance.Text}
	}
	if req.Duration != nil {
		createReq.Duration = &domain.ValueText{Value: req.Duration.Value, Text: req.Duration.Text}
	}

	ride, err := h.rideService.CreateRide(c.Request.Context(), createReq)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toRideResponse(ride, true))
}

// GetFare handles POST /v1/rides/fare
func (h *RideHandler) GetFare(c *gin.Context) {
	var req FareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	pickup, ok := req.Pickup.toDomain()
	if !ok {
		respondError(c, service.ErrInvalidPickupLocation)
		return
	}
	destination, ok := req.Destination.toDomain()
	if !ok {
		respondError(c, service.ErrInvalidDestinationLocation)
		return
	}

	estimate, err := h.rideService.GetFare(c.Request.Context(), pickup, destination)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, FareResponse{
		Fare:     estimate.Fare,
		Distance: ValueTextRequest{Value: estimate.Distance.Value, Text: estimate.Distance.Text},
		Duration: ValueTextRequest{Value: estimate.Duration.Value, Text: estimate.Duration.Text},
	})
}

// GetRide handles GET /v1/rides/:id
func (h *RideHandler) GetRide(c *gin.Context) {
	ride, err := h.rideService.GetRide(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toRideResponse(ride, false))
}

// GetPendingRides handles GET /v1/rides/pending
func (h *RideHandler) GetPendingRides(c *gin.Context) {
	rides, err := h.rideService.GetPendingRides(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toRideResponses(rides, false))
}

// ConfirmRide handles POST /v1/rides/:id/confirm
func (h *RideHandler) ConfirmRide(c *gin.Context) {
	ride, err := h.rideService.ConfirmRide(c.Request.Context(), c.Param("id"), c.GetString(middleware.ContextCaptainID))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toRideResponse(ride, false))
}

// StartRide handles POST /v1/rides/:id/start
func (h *RideHandler) StartRide(c *gin.Context) {
	ride, err := h.rideService.StartRide(c.Request.Context(), c.Param("id"), c.GetString(middleware.ContextCaptainID))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toRideResponse(ride, false))
}

// CompleteRide handles POST /v1/rides/:id/complete
func (h *RideHandler) CompleteRide(c *gin.Context) {
	ride, err := h.rideService.CompleteRide(c.Request.Context(), c.Param("id"), c.GetString(middleware.ContextCaptainID))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toRideResponse(ride, false))
}

// RateRide handles POST /v1/rides/:id/rate
func (h *RideHandler) RateRide(c *gin.Context) {
	var req RateRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ride, err := h.rideService.RateRide(c.Request.Context(), c.Param("id"), c.GetString(middleware.ContextUserID), req.Rating, req.Comment)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toRideResponse(ride, false))
}

// CancelRide handles POST /v1/rides/:id/cancel
func (h *RideHandler) CancelRide(c *gin.Context) {
	actorID := c.GetString(middleware.ContextActorID)
	role := domain.ActorRole(c.GetString(middleware.ContextActorRole))

	ride, err := h.rideService.CancelRide(c.Request.Context(), c.Param("id"), actorID, role)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toRideResponse(ride, false))
}

// UpdateArrivalTime handles POST /v1/rides/:id/arrival
func (h *RideHandler) UpdateArrivalTime(c *gin.Context) {
	var req ArrivalTimeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ride, err := h.rideService.UpdateArrivalTime(c.Request.Context(), c.Param("id"), c.GetString(middleware.ContextCaptainID), req.Minutes)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toRideResponse(ride, false))
}

// GetCaptainHistory handles GET /v1/rides/history
func (h *RideHandler) GetCaptainHistory(c *gin.Context) {
	rides, err := h.rideService.GetCaptainHistory(c.Request.Context(), c.GetString(middleware.ContextCaptainID))
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toRideResponses(rides, false))
}

// toRideResponse converts a domain ride. The OTP is only included on
// creation, where the rider needs it.
func toRideResponse(ride *domain.Ride, includeOTP bool) RideResponse {
	resp := RideResponse{
		ID:                 ride.ID,
		UserID:             ride.UserID,
		CaptainID:          ride.CaptainID,
		Pickup:             toGeoPointResponse(ride.Pickup),
		Destination:        toGeoPointResponse(ride.Destination),
		VehicleType:        string(ride.VehicleType),
		Fare:               ride.Fare,
		Distance:           ValueTextRequest{Value: ride.Distance.Value, Text: ride.Distance.Text},
		Duration:           ValueTextRequest{Value: ride.Duration.Value, Text: ride.Duration.Text},
		Status:             string(ride.Status),
		CancellationReason: ride.CancellationReason,
		PaymentStatus:      string(ride.PaymentStatus),
		CreatedAt:          formatTime(ride.CreatedAt),
	}
	if includeOTP {
		resp.OTP = ride.OTP
	}
	if ride.ArrivalTime != nil {
		resp.ArrivalTime = &ArrivalTimeResponse{
			Minutes:   ride.ArrivalTime.Minutes,
			UpdatedAt: formatTime(ride.ArrivalTime.UpdatedAt),
		}
	}
	if !ride.StartTime.IsZero() {
		resp.StartTime = formatTime(ride.StartTime)
	}
	if !ride.CompletedAt.IsZero() {
		resp.CompletedAt = formatTime(ride.CompletedAt)
	}
	if !ride.CancelledAt.IsZero() {
		resp.CancelledAt = formatTime(ride.CancelledAt)
	}
	if ride.Rating.Captain != nil {
		resp.CaptainRating = &PartyRatingResponse{
			Rating:  ride.Rating.Captain.Rating,
			Comment: ride.Rating.Captain.Comment,
			RatedAt: formatTime(ride.Rating.Captain.RatedAt),
		}
	}
	if ride.Earnings != nil {
		resp.Earnings = &EarningsResponse{
			Amount:         ride.Earnings.Amount,
			PlatformFee:    ride.Earnings.PlatformFee,
			CaptainEarning: ride.Earnings.CaptainEarning,
		}
	}
	if ride.User != nil {
		resp.User = &UserSummaryResponse{ID: ride.User.ID, Fullname: ride.User.Fullname}
	}
	if ride.Captain != nil {
		resp.Captain = &CaptainInfoResponse{
			ID:       ride.Captain.ID,
			Fullname: ride.Captain.Fullname,
			Vehicle: VehicleResponse{
				Color:       ride.Captain.Vehicle.Color,
				Plate:       ride.Captain.Vehicle.Plate,
				Capacity:    ride.Captain.Vehicle.Capacity,
				VehicleType: string(ride.Captain.Vehicle.VehicleType),
			},
			Rating: ride.Captain.Rating,
		}
	}
	return resp
}

func toRideResponses(rides []*domain.Ride, includeOTP bool) []RideResponse {
	out := make([]RideResponse, 0, len(rides))
	for _, ride := range rides {
		out = append(out, toRideResponse(ride, includeOTP))
	}
	return out
}

func toGeoPointResponse(p domain.GeoPoint) GeoPointResponse {
	return GeoPointResponse{
		Title:     p.Title,
		Address:   p.Address,
		Latitude:  p.Latitude,
		Longitude: p.Longitude,
	}
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339)
}
