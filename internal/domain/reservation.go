package domain

import (
	"regexp"
	"strings"
	"time"

	"gopkg.in/guregu/null.v4"
)

// Reservations are append-only: a row is created when a spot is allocated and
// finalized exactly once at release, when LeftAt and Cost are written.
type Reservation struct {
	ID            int       `json:"id"`
	SpotID        int       `json:"spot_id"`
	UserID        int       `json:"user_id"`
	VehicleNumber string    `json:"vehicle_number"`
	LotID         int       `json:"lot_id"`
	LotName       string    `json:"lot"`
	ParkedAt      time.Time `json:"parked_at"`
	LeftAt        null.Time `json:"left_at"`
	Cost          float64   `json:"cost"`
	Username      string    `json:"username,omitempty"` // only on admin views
}

type ReserveDTO struct {
	LotID         int    `json:"lot_id" binding:"required"`
	VehicleNumber string `json:"vehicle_number" binding:"required"`
	Quantity      int    `json:"quantity"`
}

const (
	MinReserveQuantity = 1
	MaxReserveQuantity = 10
)

// Plate format: 2 letters, 2 digits, 2 letters, 4 digits (e.g. AB12CD3456).
var vehicleNumberPattern = regexp.MustCompile(`^[A-Z]{2}\d{2}[A-Z]{2}\d{4}$`)

func NormalizeVehicleNumber(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func ValidVehicleNumber(s string) bool {
	return vehicleNumberPattern.MatchString(s)
}
