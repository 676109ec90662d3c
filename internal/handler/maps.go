package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"rideshare/internal/maps"
	"rideshare/internal/service"
)

// MapsHandler handles HTTP requests for geocoding and routing.
type MapsHandler struct {
	geo *maps.GeoapifyClient
}

// NewMapsHandler creates a new MapsHandler.
func NewMapsHandler(geo *maps.GeoapifyClient) *MapsHandler {
	return &MapsHandler{geo: geo}
}

// CoordinatesResponse is the HTTP response for geocoding a single address.
type CoordinatesResponse struct {
	Title     string  `json:"title"`
	Address   string  `json:"address"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Geocode handles GET /v1/maps/coordinates
func (h *MapsHandler) Geocode(c *gin.Context) {
	address := c.Query("address")
	if address == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "address is required"})
		return
	}

	point, err := h.geo.Geocode(c.Request.Context(), address)
	if err != nil {
		respondError(c, &service.UpstreamError{Err: err})
		return
	}

	respondJSON(c, http.StatusOK, CoordinatesResponse{
		Title:     point.Title,
		Address:   point.Address,
		Latitude:  point.Latitude,
		Longitude: point.Longitude,
	})
}

// ReverseGeocode handles GET /v1/maps/address
func (h *MapsHandler) ReverseGeocode(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("latitude"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("longitude"), 64)
	if errLat != nil || errLng != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "latitude and longitude are required"})
		return
	}

	point, err := h.geo.ReverseGeocode(c.Request.Context(), lat, lng)
	if err != nil {
		respondError(c, &service.UpstreamError{Err: err})
		return
	}

	respondJSON(c, http.StatusOK, CoordinatesResponse{
		Title:     point.Title,
		Address:   point.Address,
		Latitude:  point.Latitude,
		Longitude: point.Longitude,
	})
}

// SearchPlaces handles GET /v1/maps/places
func (h *MapsHandler) SearchPlaces(c *gin.Context) {
	query := c.Query("query")
	if query == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "query is required"})
		return
	}

	places, err := h.geo.SearchPlaces(c.Request.Context(), query)
	if err != nil {
		respondError(c, &service.UpstreamError{Err: err})
		return
	}

	out := make([]CoordinatesResponse, 0, len(places))
	for _, p := range places {
		out = append(out, CoordinatesResponse{
			Title:     p.Title,
			Address:   p.Address,
			Latitude:  p.Latitude,
			Longitude: p.Longitude,
		})
	}
	respondJSON(c, http.StatusOK, out)
}
