package domain

type SpotStatus string

const (
	SpotAvailable SpotStatus = "A"
	SpotOccupied  SpotStatus = "O"
)

type ParkingSpot struct {
	ID     int        `json:"id"`
	LotID  int        `json:"lot_id"`
	Status SpotStatus `json:"status"`
}
