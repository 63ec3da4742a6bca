package domain

import "time"

type ParkingLot struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	PricePerHour float64   `json:"price_per_hour"`
	Address      string    `json:"address,omitempty"`
	PinCode      string    `json:"pin_code,omitempty"`
	TotalSpots   int       `json:"total_spots"`
	CreatedAt    time.Time `json:"created_at"`
}

// LotAvailability is the read view served to admins and users: a lot plus
// its current count of available spots.
type LotAvailability struct {
	ParkingLot
	AvailableSpots int `json:"available_spots"`
}

type DashboardStats struct {
	Lots       int `json:"lots"`
	TotalSpots int `json:"total_spots"`
	Occupied   int `json:"occupied"`
}

type ParkingLotDTO struct {
	Name         string  `json:"name" binding:"required"`
	PricePerHour float64 `json:"price_per_hour" binding:"required"`
	TotalSpots   int     `json:"total_spots" binding:"required"`
	Address      string  `json:"address"`
	PinCode      string  `json:"pin_code"`
}

// ParkingLotUpdateDTO carries partial updates; nil fields are left untouched.
type ParkingLotUpdateDTO struct {
	Name         *string  `json:"name"`
	PricePerHour *float64 `json:"price_per_hour"`
	TotalSpots   *int     `json:"total_spots"`
	Address      *string  `json:"address"`
	PinCode      *string  `json:"pin_code"`
}
