package service

import (
	"math"

	"rideshare/internal/domain"
)

// Fallback itinerary used when no distance is known for a ride.
const (
	defaultDistanceMeters  = 5000
	defaultDistanceText    = "5.0 km"
	defaultDurationSeconds = 900
	defaultDurationText    = "15 mins"
)

// Fare table constants: a fixed base fare plus a per-kilometer rate for
// each vehicle class.
var (
	baseFare = map[string]float64{
		"bike":    50,
		"car":     100,
		"premium": 200,
	}
	perKmRate = map[string]float64{
		"bike":    20,
		"car":     40,
		"premium": 70,
	}
)

// FareTable maps vehicle class to a whole-unit fare for one itinerary.
type FareTable map[string]float64

// FareEstimate is the result of a fare query: the per-class table plus the
// distance and duration it was computed from.
type FareEstimate struct {
	Fare     FareTable
	Distance domain.ValueText
	Duration domain.ValueText
}

// CalculateFares computes the fare for every class from a distance in
// meters. Deterministic: identical distances always produce identical
// tables.
func CalculateFares(distanceMeters float64) FareTable {
	km := distanceMeters / 1000
	table := make(FareTable, len(baseFare))
	for class, base := range baseFare {
		table[class] = math.Round(base + km*perKmRate[class])
	}
	return table
}

// FareForVehicleType returns the fare for a specific vehicle class, and
// whether the class is priced at all. The table has no entry for "auto";
// such rides must arrive with a precomputed fare.
func FareForVehicleType(table FareTable, vehicleType domain.VehicleType) (float64, bool) {
	fare, ok := table[string(vehicleType)]
	return fare, ok
}
